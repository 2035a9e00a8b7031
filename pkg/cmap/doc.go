// Package cmap provides a sharded concurrent map.
//
// Each shard has its own RWMutex so unrelated keys rarely contend. The
// memory storage backend keeps its envelopes here.
//
// Usage:
//
//	m := cmap.New[string, domain.Envelope]()
//	m.Set("id", env)
//	env, ok := m.Get("id")
package cmap
