// Package httpserver is a reference HTTP host for the session manager.
//
// Routing uses flow. The Sessions middleware carries the identifier in a
// cookie only, resolves it through the manager's fixation defense and
// writes the payload back once the handler returns. Fresh sessions are
// rate limited so unauthenticated clients cannot flood the store.
package httpserver
