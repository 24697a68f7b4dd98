// Package config loads, normalizes, and validates imfpack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// IMFPACK_CREATOR. The Config type centralizes every knob the assembler and
// CLI need so output, state, and log directories are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
