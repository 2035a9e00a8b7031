// Package handler implements the endpoints of the reference session host.
//
//   - session.go: read, replace, destroy and regenerate the current session
//   - admin.go: on-demand expiry sweep
//   - health.go: liveness and readiness
//
// The /session handlers work on the Current attached by the session
// middleware and never touch cookies for resumption themselves.
package handler
