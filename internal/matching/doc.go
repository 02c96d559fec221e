// Package matching decides whether an incoming request satisfies a stubbed
// request.
//
// Stubbed values are regular expressions compiled through a PatternCache.
// A value that fails to compile is treated as a literal and compared
// byte-for-byte. Patterns match the whole asserting value unless they start
// with ^ or end with $, in which case they are searched for. All patterns
// run in multiline mode.
//
// Matching rules, applied in order:
//
//   - URL: the stubbed pattern against the asserting path
//   - Method: the stubbed set must intersect the asserting set
//   - Body: JSON and XML bodies are compared structurally, others by pattern
//   - Headers: every stubbed header must be present and match
//   - Query: every stubbed parameter must be present and match
//
// Capture groups from every successful pattern match are written into a
// Captures map under url.N, headers.<name>.N, query.<name>.N and post.N so
// that responses can reference them as template tokens.
package matching
