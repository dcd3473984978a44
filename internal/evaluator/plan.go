package evaluator

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/eventflow/internal/dag"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/nodeid"
	"github.com/vk/eventflow/internal/operator"
)

// plan is the set of operators an evaluation runs, in dependency order, and
// the bound data it starts from.
type plan struct {
	order []node.Operator
	bound map[*node.Node]*eventset.EventSet
}

type planner struct {
	inputs  eventset.Bindings
	graph   *dag.Graph
	ops     map[string]node.Operator
	bound   map[*node.Node]*eventset.EventSet
	visited map[*node.Node]bool
}

func newPlan(targets []*node.Node, inputs eventset.Bindings) (*plan, error) {
	p := &planner{
		inputs:  inputs,
		graph:   dag.New(),
		ops:     make(map[string]node.Operator),
		bound:   make(map[*node.Node]*eventset.EventSet),
		visited: make(map[*node.Node]bool),
	}
	for _, n := range targets {
		if err := p.visit(n); err != nil {
			return nil, err
		}
	}
	if err := p.graph.DetectCycles(); err != nil {
		return nil, err
	}

	ids, err := p.graph.TopologicalOrder(func(a, b string) int {
		return cmp.Compare(p.ops[a].ID(), p.ops[b].ID())
	})
	if err != nil {
		return nil, err
	}
	order := make([]node.Operator, len(ids))
	for i, id := range ids {
		order[i] = p.ops[id]
	}
	return &plan{order: order, bound: p.bound}, nil
}

// visit walks from n towards the inputs, stopping at bound nodes.
func (p *planner) visit(n *node.Node) error {
	if p.visited[n] {
		return nil
	}
	p.visited[n] = true

	if es, ok := p.inputs[n]; ok && es != nil {
		if es.Node() == n {
			p.bound[n] = es
			return nil
		}
		relabeled, err := es.Relabel(n)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBinding, err)
		}
		p.bound[n] = relabeled
		return nil
	}

	op := n.Creator()
	if op == nil {
		return fmt.Errorf("%w: %s is not bound to data and has no creator operator", ErrUnresolvedInput, n)
	}
	id := p.addOperator(op)

	inputs := op.Inputs()
	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		in := inputs[name]
		if err := p.visit(in); err != nil {
			return fmt.Errorf("input %q of %s: %w", name, operator.String(op), err)
		}
		if _, isBound := p.bound[in]; isBound {
			continue
		}
		if producer := in.Creator(); producer != nil {
			if err := p.graph.AddEdge(p.addOperator(producer), id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *planner) addOperator(op node.Operator) string {
	id := nodeid.ForOperator(op.Kind(), op.ID()).String()
	if _, ok := p.ops[id]; !ok {
		p.ops[id] = op
		p.graph.AddNode(id)
	}
	return id
}
