// Package config defines the format-agnostic configuration model for the
// bridge and the Loader interface implemented by the format-specific
// packages (hclconfig, yamlconfig).
//
// The `config.Model` is the single source of truth for the `app` package.
package config
