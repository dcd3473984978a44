// Package pipeline turns a config model into an operator graph and runs it.
//
// Steps are ordered with the dag package so each one is built after the
// steps it reads from. The whole graph is exposed as one compiled function
// whose keyword arguments are the pipeline inputs: called with nodes it
// returns the output nodes, called with EventSets it evaluates them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vk/eventflow/internal/compile"
	"github.com/vk/eventflow/internal/config"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/dag"
	"github.com/vk/eventflow/internal/engine"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/nodeid"
)

// FuncName is the name of the compiled pipeline function.
const FuncName = "pipeline"

// ErrPlan is wrapped by errors found while ordering the steps.
var ErrPlan = errors.New("cannot plan pipeline")

// Pipeline is a validated model with its steps in dependency order.
type Pipeline struct {
	model  *config.Model
	engine *engine.Engine
	steps  []*config.Step
	fn     *compile.Func
}

// New validates the model against the engine's registry and orders the
// steps.
func New(ctx context.Context, model *config.Model, eng *engine.Engine) (*Pipeline, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	for _, s := range model.Steps {
		def, ok := eng.Registry().Definition(s.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: step '%s': unknown operator kind '%s' (available: %s)", ErrPlan, s.Name, s.Kind, strings.Join(eng.Registry().Kinds(), ", "))
		}
		for _, name := range def.Inputs {
			if _, ok := s.Inputs[name]; !ok {
				return nil, fmt.Errorf("%w: step '%s': missing input '%s' required by '%s'", ErrPlan, s.Name, name, s.Kind)
			}
		}
	}

	steps, err := order(model)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{model: model, engine: eng, steps: steps}
	p.fn = eng.Compile(FuncName, p.build)

	ctxlog.FromContext(ctx).Debug("Pipeline planned.", "inputs", len(model.Inputs), "steps", len(steps), "outputs", len(model.Outputs))
	return p, nil
}

// order sorts the steps so every step follows the steps it references.
func order(model *config.Model) ([]*config.Step, error) {
	g := dag.New()
	byAddr := make(map[string]*config.Step, len(model.Steps))
	for _, in := range model.Inputs {
		g.AddNode(nodeid.ForBlock(nodeid.RootInput, in.Name).String())
	}
	for _, s := range model.Steps {
		addr := nodeid.ForBlock(nodeid.RootStep, s.Name).String()
		g.AddNode(addr)
		byAddr[addr] = s
	}
	for _, s := range model.Steps {
		to := nodeid.ForBlock(nodeid.RootStep, s.Name).String()
		for _, name := range slices.Sorted(maps.Keys(s.Inputs)) {
			if err := g.AddEdge(s.Inputs[name].Address(), to); err != nil {
				return nil, fmt.Errorf("%w: step '%s', input '%s': %w", ErrPlan, s.Name, name, err)
			}
		}
	}

	ids, err := g.TopologicalOrder(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlan, err)
	}
	steps := make([]*config.Step, 0, len(model.Steps))
	for _, id := range ids {
		if s, ok := byAddr[id]; ok {
			steps = append(steps, s)
		}
	}
	return steps, nil
}

// Steps returns the steps in build order.
func (p *Pipeline) Steps() []*config.Step { return slices.Clone(p.steps) }

// Model returns the pipeline model.
func (p *Pipeline) Model() *config.Model { return p.model }

// Func returns the compiled pipeline function. Its keyword arguments are
// the inputs by name; it returns the outputs by name.
func (p *Pipeline) Func() *compile.Func { return p.fn }

// Graph builds the operator graph on the given input nodes and returns the
// output nodes by name.
func (p *Pipeline) Graph(ctx context.Context, inputs map[string]*node.Node) (map[string]*node.Node, error) {
	kw := make(map[string]any, len(inputs))
	for name, n := range inputs {
		kw[name] = n
	}
	res, err := p.fn.CallArgs(ctx, compile.Args{Keyword: kw})
	if err != nil {
		return nil, err
	}
	return res.(map[string]*node.Node), nil
}

// Run evaluates the pipeline on the given input data and returns the
// materialized outputs by name.
func (p *Pipeline) Run(ctx context.Context, data map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
	kw := make(map[string]any, len(data))
	for name, es := range data {
		kw[name] = es
	}
	res, err := p.fn.CallArgs(ctx, compile.Args{Keyword: kw})
	if err != nil {
		return nil, err
	}
	return res.(map[string]*eventset.EventSet), nil
}

// build is the graph function behind Func.
func (p *Pipeline) build(ctx context.Context, args compile.Args) (any, error) {
	logger := ctxlog.FromContext(ctx)
	produced := make(map[string]map[string]*node.Node, len(p.steps))

	resolve := func(ref config.Reference) (*node.Node, error) {
		if ref.Root == nodeid.RootInput {
			return args.Node(-1, ref.Name)
		}
		outputs := produced[ref.Name]
		if ref.Output != "" {
			n, ok := outputs[ref.Output]
			if !ok {
				return nil, fmt.Errorf("step '%s' has no output '%s' (available: %s)", ref.Name, ref.Output, strings.Join(slices.Sorted(maps.Keys(outputs)), ", "))
			}
			return n, nil
		}
		if len(outputs) != 1 {
			return nil, fmt.Errorf("step '%s' has %d outputs, select one with %s.<output>", ref.Name, len(outputs), ref)
		}
		for _, n := range outputs {
			return n, nil
		}
		panic("unreachable")
	}

	for _, s := range p.steps {
		inputs := make(map[string]*node.Node, len(s.Inputs))
		for _, name := range slices.Sorted(maps.Keys(s.Inputs)) {
			n, err := resolve(s.Inputs[name])
			if err != nil {
				return nil, fmt.Errorf("step '%s', input '%s': %w", s.Name, name, err)
			}
			inputs[name] = n
		}
		op, err := p.engine.Registry().Build(s.Kind, inputs, s.Arguments)
		if err != nil {
			return nil, fmt.Errorf("step '%s': %w", s.Name, err)
		}
		produced[s.Name] = op.Outputs()
		logger.Debug("Built step.", "step", s.Name, "kind", s.Kind, "operator_id", op.ID())
	}

	outputs := make(map[string]*node.Node, len(p.model.Outputs))
	for _, out := range p.model.Outputs {
		n, err := resolve(out.From)
		if err != nil {
			return nil, fmt.Errorf("output '%s': %w", out.Name, err)
		}
		outputs[out.Name] = n
	}
	return outputs, nil
}
