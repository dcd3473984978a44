// Package compile turns graph-building functions into functions that work in
// two modes. Called with Nodes, a compiled function only extends the graph
// and returns Nodes. Called with EventSets, it builds the same graph on the
// EventSets' nodes, evaluates it and returns EventSets shaped like the
// function's output.
package compile

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/metric"
	"github.com/vk/eventflow/internal/node"
)

// Evaluator materializes the nodes of a query given bound input data.
type Evaluator interface {
	Evaluate(ctx context.Context, query any, inputs eventset.Bindings) (any, error)
}

// Args holds the arguments of a compiled call.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Len returns the number of positional arguments.
func (a Args) Len() int { return len(a.Positional) }

// Get returns positional argument i, or the keyword argument name when
// fewer positional arguments were given.
func (a Args) Get(i int, name string) (any, bool) {
	if i >= 0 && i < len(a.Positional) {
		return a.Positional[i], true
	}
	v, ok := a.Keyword[name]
	return v, ok
}

// Node returns argument i (or keyword name) as a node.
func (a Args) Node(i int, name string) (*node.Node, error) {
	v, ok := a.Get(i, name)
	if !ok {
		return nil, fmt.Errorf("missing argument %q", name)
	}
	n, ok := v.(*node.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("argument %q must be a Node or an EventSet, got %T", name, v)
	}
	return n, nil
}

// GraphFunc builds a graph from its arguments. Every EventSet argument has
// already been replaced by its node.
type GraphFunc func(ctx context.Context, args Args) (any, error)

// Func is a compiled graph function.
type Func struct {
	name    string
	fn      GraphFunc
	ev      Evaluator
	metrics *metric.Metrics
}

// Option configures a Func.
type Option func(*Func)

// WithMetrics counts calls per resolved mode.
func WithMetrics(m *metric.Metrics) Option {
	return func(f *Func) { f.metrics = m }
}

// New compiles fn. ev evaluates eager calls; a Func without an evaluator
// only supports symbolic calls.
func New(name string, fn GraphFunc, ev Evaluator, opts ...Option) *Func {
	if fn == nil {
		panic("compile: graph function must not be nil")
	}
	f := &Func{name: name, fn: fn, ev: ev}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsCompiled reports whether v is a compiled function.
func IsCompiled(v any) bool {
	f, ok := v.(*Func)
	return ok && f != nil
}

// Name returns the function name.
func (f *Func) Name() string { return f.name }

// Call invokes the function with positional arguments.
func (f *Func) Call(ctx context.Context, args ...any) (any, error) {
	return f.CallArgs(ctx, Args{Positional: args})
}

// CallArgs invokes the function. Positional arguments are classified first,
// then keyword arguments in sorted key order, all sharing one mode.
func (f *Func) CallArgs(ctx context.Context, args Args) (any, error) {
	logger := ctxlog.FromContext(ctx).With("function", f.name)
	bindings := make(eventset.Bindings)
	mode := ModeUnset

	classified := Args{}
	if args.Positional != nil {
		out, m, err := Classify(args.Positional, mode, bindings)
		if err != nil {
			return nil, err
		}
		classified.Positional, mode = out.([]any), m
	}
	if args.Keyword != nil {
		out, m, err := Classify(args.Keyword, mode, bindings)
		if err != nil {
			return nil, err
		}
		classified.Keyword, mode = out.(map[string]any), m
	}
	logger.Debug("Arguments classified.", "mode", mode.String(), "bindings", len(bindings))
	f.metrics.RecordCompiledCall(f.name, mode.String())

	output, err := f.fn(ctx, classified)
	if err != nil {
		return nil, err
	}
	if mode != ModeEager {
		return output, nil
	}

	if f.ev == nil {
		return nil, errors.New(f.name + ": eager call requires an evaluator")
	}
	logger.Debug("Evaluating eager call.")
	return f.ev.Evaluate(ctx, output, bindings)
}
