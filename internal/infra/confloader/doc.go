// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Explicit maps (command-line flags)
//  2. Environment variables (CRYPTSESS_ prefix, "__" between levels)
//  3. A YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes to the configuration file so the server can
// apply reloadable settings such as log.level.
package confloader
