package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
	"github.com/zclconf/go-cty/cty"
)

type identityOp struct {
	operator.Base
}

func buildIdentity(inputs map[string]*node.Node, attrs map[string]cty.Value) (node.Operator, error) {
	op := &identityOp{Base: operator.NewBase("identity")}
	in := inputs["input"]
	op.AddInput("input", in)
	if label, ok := attrs["label"]; ok {
		op.SetAttribute("label", label.AsString())
	}
	op.AddOutput("output", node.New(in.Features(), in.Sampling(), op))
	return op, nil
}

type identityModule struct{ withImpl bool }

func (m *identityModule) Register(r *Registry) {
	r.RegisterOperator(&Definition{
		Kind:           "identity",
		Inputs:         []string{"input"},
		OptionalInputs: []string{"sampling"},
		Attributes: map[string]AttributeSpec{
			"label": {Type: cty.String},
		},
		Build: buildIdentity,
	})
	if m.withImpl {
		r.RegisterImplementation("identity", func(op node.Operator) (operator.Implementation, error) {
			return nil, nil
		})
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	r := New()
	r.Register(&identityModule{withImpl: true})
	assert.Panics(t, func() { r.Register(&identityModule{}) })
	assert.Panics(t, func() {
		r.RegisterImplementation("identity", func(node.Operator) (operator.Implementation, error) { return nil, nil })
	})
	assert.Equal(t, []string{"identity"}, r.Kinds())
}

func TestValidateRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("parity ok", func(t *testing.T) {
		r := New()
		r.Register(&identityModule{withImpl: true})
		assert.NoError(t, r.ValidateRegistry(ctx))
	})

	t.Run("definition without implementation", func(t *testing.T) {
		r := New()
		r.Register(&identityModule{})
		err := r.ValidateRegistry(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "definition has no registered implementation")
	})

	t.Run("implementation without definition", func(t *testing.T) {
		r := New()
		r.RegisterImplementation("orphan", func(node.Operator) (operator.Implementation, error) { return nil, nil })
		err := r.ValidateRegistry(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'orphan': implementation registered without a definition")
	})
}

func TestBuild(t *testing.T) {
	r := New()
	r.Register(&identityModule{withImpl: true})
	in := node.NewInput([]node.Feature{{Name: "x", DType: dtype.Int64}}, nil, false)

	testCases := []struct {
		name      string
		kind      string
		inputs    map[string]*node.Node
		attrs     map[string]cty.Value
		expectErr string
	}{
		{name: "ok", kind: "identity", inputs: map[string]*node.Node{"input": in}, attrs: map[string]cty.Value{"label": cty.StringVal("a")}},
		{name: "converts attribute", kind: "identity", inputs: map[string]*node.Node{"input": in}, attrs: map[string]cty.Value{"label": cty.NumberIntVal(3)}},
		{name: "unknown kind", kind: "nope", expectErr: "unknown operator kind 'nope' (available: identity)"},
		{name: "missing input", kind: "identity", inputs: map[string]*node.Node{}, expectErr: "missing required input 'input'"},
		{name: "unexpected input", kind: "identity", inputs: map[string]*node.Node{"input": in, "other": in}, expectErr: "unexpected input 'other'"},
		{name: "unsupported attribute", kind: "identity", inputs: map[string]*node.Node{"input": in}, attrs: map[string]cty.Value{"color": cty.StringVal("red")}, expectErr: "unsupported attribute 'color'"},
		{name: "bad attribute type", kind: "identity", inputs: map[string]*node.Node{"input": in}, attrs: map[string]cty.Value{"label": cty.ListValEmpty(cty.String)}, expectErr: "attribute 'label'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			op, err := r.Build(tc.kind, tc.inputs, tc.attrs)
			if tc.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "identity", op.Kind())
		})
	}
}

func TestImplementation_UnknownKind(t *testing.T) {
	r := New()
	in := node.NewInput(nil, nil, false)
	op, err := buildIdentity(map[string]*node.Node{"input": in}, nil)
	require.NoError(t, err)

	_, err = r.Implementation(op)
	assert.ErrorContains(t, err, "no implementation registered for operator kind 'identity'")
}
