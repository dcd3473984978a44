// Package dag provides the directed acyclic graph used to plan evaluations
// and pipeline steps. Vertices are identified by their nodeid string form;
// the graph only tracks dependencies and knows nothing about what a vertex
// computes.
package dag
