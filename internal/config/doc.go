// Package config loads application configuration from environment
// variables and an optional YAML file. Environment variables use the
// TYREPULSE prefix and take precedence over file values.
package config
