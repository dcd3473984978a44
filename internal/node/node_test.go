package node

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/dtype"
)

func TestNew_DistinctIdentity(t *testing.T) {
	features := []Feature{{Name: "sales", DType: dtype.Float64}}
	index := []Feature{{Name: "store_id", DType: dtype.Int64}}
	a := NewInput(features, index, false)
	b := NewInput(features, index, false)

	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.True(t, SameSchema(a, b))
	assert.NotSame(t, a.Sampling(), b.Sampling())
	assert.True(t, a.IsInput())
}

func TestNew_CopiesFeatures(t *testing.T) {
	features := []Feature{{Name: "a", DType: dtype.Int64}}
	n := NewInput(features, nil, false)
	features[0].Name = "mutated"

	assert.Equal(t, []string{"a"}, n.FeatureNames())

	got := n.Features()
	got[0].Name = "also mutated"
	assert.Equal(t, "a", n.Feature(0).Name)
}

func TestNamed(t *testing.T) {
	n := NewInput([]Feature{{Name: "a", DType: dtype.Int64}}, nil, true)
	named := n.Named("raw")

	assert.Equal(t, "raw", named.Name())
	assert.NotEqual(t, n.ID(), named.ID())
	assert.Same(t, n.Sampling(), named.Sampling())
	assert.Contains(t, named.String(), "raw")
	assert.True(t, named.IsInput())
}

func TestNamed_RejectsOperatorOutputs(t *testing.T) {
	in := NewInput([]Feature{{Name: "a", DType: dtype.Int64}}, nil, false)
	op := &stubOperator{id: NextID(), kind: "add_scalar"}
	out := New(in.Features(), in.Sampling(), op)

	assert.PanicsWithValue(t,
		fmt.Sprintf("node: cannot rename %s, it is an output of add_scalar[%d]", out, op.id),
		func() { out.Named("renamed") },
	)
}

type stubOperator struct {
	id   uint64
	kind string
}

func (o *stubOperator) ID() uint64 { return o.id }
func (o *stubOperator) Kind() string { return o.kind }
func (o *stubOperator) Inputs() map[string]*Node { return nil }
func (o *stubOperator) Outputs() map[string]*Node { return nil }
func (o *stubOperator) Attributes() map[string]any { return nil }

func TestSampling_CheckSameIndex(t *testing.T) {
	s1 := NewSampling([]Feature{{Name: "k", DType: dtype.String}}, false, nil)
	s2 := NewSampling([]Feature{{Name: "k", DType: dtype.String}}, false, nil)
	s3 := NewSampling([]Feature{{Name: "k", DType: dtype.Int64}}, false, nil)

	assert.NoError(t, s1.CheckSameIndex(s2, "inputs"))
	err := s1.CheckSameIndex(s3, "inputs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inputs must have the same index")
	assert.Equal(t, []string{"k"}, s1.IndexNames())
}

func TestCheckFeatures(t *testing.T) {
	testCases := []struct {
		name      string
		features  []Feature
		expectErr string
	}{
		{name: "valid", features: []Feature{{Name: "a", DType: dtype.Bool}, {Name: "b", DType: dtype.String}}},
		{name: "empty name", features: []Feature{{Name: "", DType: dtype.Bool}}, expectErr: "cannot be empty"},
		{name: "no dtype", features: []Feature{{Name: "a"}}, expectErr: "has no dtype"},
		{name: "duplicate", features: []Feature{{Name: "a", DType: dtype.Bool}, {Name: "a", DType: dtype.Int64}}, expectErr: "duplicate"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckFeatures(tc.features)
			if tc.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.expectErr)
		})
	}
}
