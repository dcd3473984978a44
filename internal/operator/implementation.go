package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
)

// Implementation is the executable counterpart of one operator instance. It
// is a pure function of its inputs: it must not mutate input arrays and must
// allocate new arrays for every transformed feature.
type Implementation interface {
	// Operator returns the operator the implementation is bound to.
	Operator() node.Operator
	// Call computes the operator outputs from its inputs, keyed by the
	// operator's input and output names.
	Call(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error)
}

// Run calls an implementation after checking its inputs against the bound
// operator, and checks the outputs it returns. Any mismatch, including a
// panic inside the implementation, is reported as ErrInvariant.
func Run(ctx context.Context, impl Implementation, inputs map[string]*eventset.EventSet) (outputs map[string]*eventset.EventSet, err error) {
	op := impl.Operator()
	logger := ctxlog.FromContext(ctx).With("operator", String(op))

	for name, want := range op.Inputs() {
		got, ok := inputs[name]
		if !ok || got == nil {
			return nil, fmt.Errorf("%s: %w: missing input %q", String(op), ErrInvariant, name)
		}
		if !node.SameSchema(got.Node(), want) {
			return nil, fmt.Errorf("%s: %w: input %q has schema %s, expected %s", String(op), ErrInvariant, name, got.Node(), want)
		}
	}
	for name := range inputs {
		if _, ok := op.Inputs()[name]; !ok {
			return nil, fmt.Errorf("%s: %w: unexpected input %q", String(op), ErrInvariant, name)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = fmt.Errorf("%s: %w: panic: %v", String(op), ErrInvariant, r)
		}
	}()

	start := time.Now()
	logger.Debug("Running operator implementation.")
	outputs, err = impl.Call(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", String(op), err)
	}

	for name, want := range op.Outputs() {
		got, ok := outputs[name]
		if !ok || got == nil {
			return nil, fmt.Errorf("%s: %w: missing output %q", String(op), ErrInvariant, name)
		}
		if got.Node() != want {
			return nil, fmt.Errorf("%s: %w: output %q is not bound to the declared node", String(op), ErrInvariant, name)
		}
		if err := got.Check(); err != nil {
			return nil, fmt.Errorf("%s: %w: output %q: %v", String(op), ErrInvariant, name, err)
		}
	}
	logger.Debug("Operator implementation finished.", "duration", time.Since(start))
	return outputs, nil
}
