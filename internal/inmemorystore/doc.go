// Package inmemorystore provides a thread-safe, in-memory store for the
// results and progress of one evaluation. It is created fresh per
// evaluation and discarded afterwards.
package inmemorystore
