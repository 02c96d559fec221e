// Package template substitutes captured values into stubbed responses.
//
// Tokens take the form <% name %>, with optional whitespace inside the
// delimiters. Names come from the values captured while matching the request:
//
//   - <% url.0 %> - the whole matched URL
//   - <% url.1 %> - the first capture group of the URL pattern
//   - <% query.id.1 %> - the first capture group of the id query pattern
//   - <% headers.x-tenant.0 %> - the matched value of the x-tenant header
//   - <% post.1 %> - the first capture group of the body pattern
//
// Tokens without a captured value are left in place unchanged.
package template
