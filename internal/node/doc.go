// Package node holds the data-free description of event streams: Features,
// Samplings and Nodes, plus the Operator interface that links a Node back to
// the computation that produced it.
//
// Everything in this package is immutable after construction. Identity is a
// monotonically assigned handle; graph bookkeeping keys on the *Node pointer,
// never on a structural hash, so schema-equal nodes stay distinct.
package node
