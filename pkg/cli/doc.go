// Package cli implements the stubd command line.
//
// Commands:
//
//	serve      start the stubs portal, TLS portal and admin portal
//	validate   load stub documents and report problems
//	list       list stubs loaded in a running server
//	stats      print hit counters from a running server
//	version    print build information
//
// list and stats talk to the admin portal named by --admin-url, which
// defaults to STUBD_ADMIN_URL or http://localhost:8889.
package cli
