// Package config defines the format-agnostic model of a pipeline file, along
// with the Loader interface that concrete formats implement.
//
// The `config.Model` is the single source of truth for the `pipeline`
// package. Concrete implementations of the loader, such as for HCL, are
// provided in separate packages.
package config
