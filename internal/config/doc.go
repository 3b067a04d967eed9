// Package config loads and validates the installer configuration from
// environment variables and an optional YAML file, and resolves the file
// system paths inside the host configuration directory.
package config
