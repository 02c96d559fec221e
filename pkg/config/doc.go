// Package config loads stub definitions from YAML and holds the server's
// runtime settings.
//
// Stub files are YAML documents whose top level is either a list of entries
// or a mapping with an includes list:
//
//	- description: fetch an item
//	  request:
//	    url: ^/item/(\d+)$
//	    method: GET
//	  response:
//	    status: 200
//	    body: '{"id":"<% url.1 %>"}'
//
//	includes:
//	  - stubs/**/*.yaml
//
// Entries are either lifecycles (request plus one or more responses) or
// proxy-config blocks. Loading normalizes methods and header names, resolves
// file references relative to the including file and derives the expected
// Authorization header from the authorization-basic, authorization-bearer and
// authorization-custom pseudo-headers.
//
// Server settings come from DefaultServerConfiguration, overridden by
// STUBD_* environment variables (LoadEnv) and then by command-line flags.
package config
