// Package hcl provides the concrete HCL implementation of the `config.Loader`
// interface. It is responsible for file discovery and parsing, and for the
// translation of `input`, `step` and `output` blocks into the config model.
package hcl
