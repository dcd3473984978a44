// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load a
// pipeline, read its inputs, evaluate it and write its outputs. It is
// decoupled from any specific entrypoint like a CLI or server.
package app
