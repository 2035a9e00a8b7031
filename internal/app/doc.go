// Package app assembles cryptsess from configuration.
//
// Both binaries use it: the server to build its session stack and the CLI
// to operate on the configured store directly.
package app
