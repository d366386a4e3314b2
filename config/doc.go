// Package config loads, normalizes, and validates hotseats configuration.
//
// It supplies defaults for the published model, expands user paths (including
// tilde shortcuts), reads TOML files, and honours the HOTSEATS_WEIGHTS_DIR
// environment fallback for the weight cache. Downstream code receives an
// ml.Architecture and absolute artifact paths rather than raw strings.
package config
