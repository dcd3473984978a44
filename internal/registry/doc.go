// Package registry provides the central "glue" for the operator modules.
//
// The Registry maps operator kinds (e.g., "add_scalar") to two things: a
// Definition that builds the symbolic operator from pipeline attributes, and an
// ImplementationFactory that binds an executable implementation to an operator
// instance. Modules populate the registry at startup through the Module
// interface.
//
// After population the registry is validated to ensure that every operator
// that can be built can also be executed, preventing a class of runtime
// errors in the evaluator.
package registry
