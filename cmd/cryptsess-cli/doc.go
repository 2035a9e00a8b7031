// Package main provides the entry point for cryptsess-cli, the operator
// tool for inspecting stores, rotating keys and checking a deployment.
package main
