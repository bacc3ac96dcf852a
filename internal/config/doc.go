// Package config defines the format-agnostic configuration model for a flow
// definition, along with the Loader interface for reading it from various
// sources.
//
// The `config.Model` is the single source of truth for the `graph` package.
// Concrete loader implementations, such as for HCL, are provided in separate
// packages.
package config
