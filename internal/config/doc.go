// Package config loads, validates, and normalizes the recap TOML
// configuration file.
package config
