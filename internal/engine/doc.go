// Package engine wires the operator modules, the registry, the evaluator and
// the compile layer into one value. It is the entry point for programs that
// build and run graphs: every registered operator is available as a compiled
// function that works on Nodes and on EventSets alike.
package engine
