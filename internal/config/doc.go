// Package config loads, normalizes, and validates dscache configuration.
// Configuration is TOML with environment-variable and ~ expansion applied to
// every path field at load time; the rest of the codebase never re-parses
// paths. An empty local root is a valid configuration that disables caching.
package config
