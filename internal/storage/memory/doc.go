// Package memory provides an in-process session storage backend.
//
// Records live in a sharded concurrent map (pkg/cmap) and vanish with the
// process. Useful for tests and single-instance deployments that accept
// losing sessions on restart.
package memory
