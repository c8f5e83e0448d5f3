// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/pveprov/config.cue (or the XDG equivalent),
// falling back to ./config.cue. Every key can be overridden from the environment as
// PVEPROV_<SECTION>_<KEY>, for example PVEPROV_CONTAINER_STORAGE.
//
// Files are validated against the embedded CUE schema (config_schema.cue); values from
// the environment bypass CUE and are checked by Config.Validate.
package config
