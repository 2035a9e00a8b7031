// Package output renders cryptsess CLI results as a table, JSON or YAML.
//
// Table output understands a *Table, a struct (one row per field), a map
// (one row per key, sorted) and a slice of structs (one row per element).
// Field names come from json tags.
package output
