package engine

import (
	"context"
	"fmt"

	"github.com/vk/eventflow/internal/compile"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/evaluator"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/metric"
	"github.com/vk/eventflow/internal/registry"
	"github.com/vk/eventflow/modules/arithmetic"
	"github.com/vk/eventflow/modules/calendar"
	"github.com/vk/eventflow/modules/cast"
	"github.com/vk/eventflow/modules/window"
)

// CoreModules returns the operator modules compiled into the binary.
func CoreModules() []registry.Module {
	return []registry.Module{
		&arithmetic.Module{},
		&cast.Module{},
		&calendar.Module{},
		&window.Module{},
	}
}

// Engine holds a validated registry and the evaluator running its
// implementations.
type Engine struct {
	registry  *registry.Registry
	evaluator *evaluator.Evaluator
	metrics   *metric.Metrics
}

type options struct {
	modules []registry.Module
	metrics *metric.Metrics
}

// Option configures an Engine.
type Option func(*options)

// WithModules replaces the core modules.
func WithModules(modules ...registry.Module) Option {
	return func(o *options) { o.modules = modules }
}

// WithMetrics records evaluation and compiled call metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New registers the modules and validates the registry.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	o := options{modules: CoreModules()}
	for _, opt := range opts {
		opt(&o)
	}

	reg := registry.New()
	reg.Register(o.modules...)
	if err := reg.ValidateRegistry(ctx); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Engine ready.", "modules", len(o.modules), "operator_kinds", len(reg.Kinds()))

	return &Engine{
		registry:  reg,
		evaluator: evaluator.New(reg, evaluator.WithMetrics(o.metrics)),
		metrics:   o.metrics,
	}, nil
}

// Registry returns the operator registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Evaluator returns the evaluator.
func (e *Engine) Evaluator() *evaluator.Evaluator { return e.evaluator }

// Evaluate materializes the nodes of query.
func (e *Engine) Evaluate(ctx context.Context, query any, inputs eventset.Bindings) (any, error) {
	return e.evaluator.Evaluate(ctx, query, inputs)
}

// Compile wraps a graph function so it can also be called with EventSets.
func (e *Engine) Compile(name string, fn compile.GraphFunc) *compile.Func {
	return compile.New(name, fn, e.evaluator, compile.WithMetrics(e.metrics))
}

// Operator returns the compiled function of a registered operator kind.
// Positional arguments fill the required inputs in declaration order.
// Keyword arguments naming an input are inputs, all others are attributes.
// The function returns the output node, or a map of output nodes when the
// operator has several.
func (e *Engine) Operator(kind string) (*compile.Func, error) {
	def, ok := e.registry.Definition(kind)
	if !ok {
		return nil, fmt.Errorf("unknown operator kind '%s'", kind)
	}
	return e.Compile(kind, func(_ context.Context, args compile.Args) (any, error) {
		inputs, attrs, err := splitArgs(def, args)
		if err != nil {
			return nil, err
		}
		op, err := e.registry.Build(kind, inputs, attrs)
		if err != nil {
			return nil, err
		}
		outputs := op.Outputs()
		if len(outputs) == 1 {
			for _, n := range outputs {
				return n, nil
			}
		}
		return outputs, nil
	}), nil
}

// MustOperator is like Operator but panics on unknown kinds.
func (e *Engine) MustOperator(kind string) *compile.Func {
	f, err := e.Operator(kind)
	if err != nil {
		panic(err)
	}
	return f
}
