// Package connection is the CLI's HTTP client for a running cryptsess-server.
//
// Only the unauthenticated operational endpoints are called: readiness and
// the manual expiry sweep. The server restricts the latter by address.
package connection
