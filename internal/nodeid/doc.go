/*
Package nodeid provides a structured, type-safe representation for the
identifiers of graph vertices, based on the canonical format `path`.

The format is a dot-separated sequence of segments, e.g., `operator.add_scalar[12]`
for an operator instance or `step.daily_sales` for a pipeline step.

Every vertex identifier is built through this package, so the evaluator, the pipeline builder and the logs agree
on how a vertex is named.
*/
package nodeid
