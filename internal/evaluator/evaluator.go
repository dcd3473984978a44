// Package evaluator materializes nodes: given query nodes and concrete data
// for some input nodes, it plans the operators the query depends on and runs
// their implementations in dependency order.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/inmemorystore"
	"github.com/vk/eventflow/internal/metric"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/nodeid"
	"github.com/vk/eventflow/internal/operator"
	"github.com/vk/eventflow/internal/shape"
)

var (
	// ErrUnresolvedInput is returned when a query depends on a node that is
	// neither bound to data nor produced by an operator.
	ErrUnresolvedInput = errors.New("unresolved input")
	// ErrInvalidBinding is returned when bound data does not match the schema
	// of the node it is bound to.
	ErrInvalidBinding = errors.New("invalid binding")
)

var (
	nodeType     = reflect.TypeOf((*node.Node)(nil))
	eventSetType = reflect.TypeOf((*eventset.EventSet)(nil))
)

// ImplementationSource creates the implementation bound to an operator.
type ImplementationSource interface {
	Implementation(op node.Operator) (operator.Implementation, error)
}

// Evaluator runs operator graphs. It holds no per-evaluation state and can
// be shared.
type Evaluator struct {
	impls   ImplementationSource
	metrics *metric.Metrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMetrics records evaluation metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// New creates an Evaluator that looks implementations up in impls.
func New(impls ImplementationSource, opts ...Option) *Evaluator {
	e := &Evaluator{impls: impls}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate materializes the nodes found in query. The query may be a single
// node or any nesting of slices, arrays and maps containing nodes; the
// result has the same shape with every node replaced by its EventSet.
func (e *Evaluator) Evaluate(ctx context.Context, query any, inputs eventset.Bindings) (result any, err error) {
	evalID := uuid.NewString()
	ctx = ctxlog.With(ctx, "evaluation_id", evalID)
	logger := ctxlog.FromContext(ctx)
	defer func() { e.metrics.RecordEvaluation(err) }()

	var targets []*node.Node
	if err := shape.Walk(query, nodeType, func(leaf reflect.Value) error {
		n := leaf.Interface().(*node.Node)
		if n == nil {
			return fmt.Errorf("query contains a nil node")
		}
		targets = append(targets, n)
		return nil
	}); err != nil {
		return nil, err
	}
	logger.Debug("Evaluation started.", "query_nodes", len(targets), "bound_inputs", len(inputs))

	p, err := newPlan(targets, inputs)
	if err != nil {
		return nil, err
	}
	logger.Debug("Evaluation plan built.", "operators", len(p.order))

	store := inmemorystore.New()
	for n, es := range p.bound {
		store.SetResult(n, es)
	}
	for _, op := range p.order {
		if err := e.run(ctx, store, op); err != nil {
			return nil, err
		}
	}

	result, err = shape.Map(query, nodeType, eventSetType, func(leaf reflect.Value) (reflect.Value, error) {
		n := leaf.Interface().(*node.Node)
		es, ok := store.Result(n)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: node %s was not materialized", operator.ErrInvariant, n)
		}
		return reflect.ValueOf(es), nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Evaluation finished.", "materialized_nodes", store.Len())
	return result, nil
}

// EvaluateNode materializes a single node.
func (e *Evaluator) EvaluateNode(ctx context.Context, n *node.Node, inputs eventset.Bindings) (*eventset.EventSet, error) {
	res, err := e.Evaluate(ctx, n, inputs)
	if err != nil {
		return nil, err
	}
	return res.(*eventset.EventSet), nil
}

func (e *Evaluator) run(ctx context.Context, store *inmemorystore.Store, op node.Operator) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("evaluation cancelled before %s: %w", operator.String(op), err)
	}
	addr := nodeid.ForOperator(op.Kind(), op.ID())
	logger := ctxlog.FromContext(ctx).With("operator", addr.String())

	inputs := make(map[string]*eventset.EventSet, len(op.Inputs()))
	for name, in := range op.Inputs() {
		es, ok := store.Result(in)
		if !ok {
			return fmt.Errorf("%w: input %q of %s was not materialized", operator.ErrInvariant, name, addr)
		}
		inputs[name] = es
	}

	impl, err := e.impls.Implementation(op)
	if err != nil {
		store.SetError(addr, err)
		return err
	}

	store.SetStatus(addr, inmemorystore.StatusRunning)
	logger.Debug("Operator started.")
	start := time.Now()
	outputs, err := operator.Run(ctx, impl, inputs)
	events := 0
	for _, out := range outputs {
		events += out.NumEvents()
	}
	e.metrics.RecordOperatorRun(op.Kind(), time.Since(start), events, err)
	if err != nil {
		store.SetError(addr, err)
		logger.Debug("Operator failed.", "error", err)
		return err
	}

	for name, out := range op.Outputs() {
		store.SetResult(out, outputs[name])
	}
	store.SetStatus(addr, inmemorystore.StatusCompleted)
	logger.Debug("Operator completed.", "events", events)
	return nil
}
