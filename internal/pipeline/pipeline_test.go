package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/arrowio"
	"github.com/vk/eventflow/internal/config"
	"github.com/vk/eventflow/internal/csvio"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/engine"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

func ref(root, name string) config.Reference { return config.Reference{Root: root, Name: name} }

// salesModel adds 10 to the sales, doubles the result and smooths it over a
// two second window sampled like the raw data.
func salesModel() *config.Model {
	return &config.Model{
		Inputs: []*config.Input{{Name: "sales", Format: config.FormatCSV, Path: "sales.csv", Index: []string{"store"}}},
		Steps: []*config.Step{
			{
				Kind:      "simple_moving_average",
				Name:      "smooth",
				Inputs:    map[string]config.Reference{"input": ref("step", "double"), "sampling": ref("input", "sales")},
				Arguments: map[string]cty.Value{"window_length": cty.NumberIntVal(2)},
			},
			{
				Kind:      "multiply_scalar",
				Name:      "double",
				Inputs:    map[string]config.Reference{"input": ref("step", "plus")},
				Arguments: map[string]cty.Value{"value": cty.NumberIntVal(2)},
			},
			{
				Kind:      "add_scalar",
				Name:      "plus",
				Inputs:    map[string]config.Reference{"input": ref("input", "sales")},
				Arguments: map[string]cty.Value{"value": cty.NumberIntVal(10)},
			},
		},
		Outputs: []*config.Output{
			{Name: "doubled", From: ref("step", "double"), Format: config.FormatCSV, Path: "out/doubled.csv"},
			{Name: "smoothed", From: ref("step", "smooth"), Format: config.FormatArrow, Path: "out/smoothed.arrow"},
		},
	}
}

func newPipeline(t *testing.T, model *config.Model) *Pipeline {
	t.Helper()
	eng, err := engine.New(context.Background())
	require.NoError(t, err)
	p, err := New(context.Background(), model, eng)
	require.NoError(t, err)
	return p
}

func salesData(t *testing.T) *eventset.EventSet {
	t.Helper()
	es, err := eventset.FromArrays(
		[]float64{1, 2, 3, 1},
		[]eventset.Feature{
			{Name: "store", Data: eventset.Strings{"a", "a", "a", "b"}},
			{Name: "sales", Data: eventset.Float64s{1, math.NaN(), 3, 5}},
		},
		eventset.WithIndex("store"),
	)
	require.NoError(t, err)
	return es
}

func TestNew_OrdersSteps(t *testing.T) {
	p := newPipeline(t, salesModel())
	var names []string
	for _, s := range p.Steps() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"plus", "double", "smooth"}, names)
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(m *config.Model)
		wantErr string
	}{
		{
			name:    "unknown kind",
			mutate:  func(m *config.Model) { m.Steps[0].Kind = "nope" },
			wantErr: "unknown operator kind 'nope'",
		},
		{
			name:    "missing required input",
			mutate:  func(m *config.Model) { delete(m.Steps[0].Inputs, "input") },
			wantErr: "missing input 'input' required by 'simple_moving_average'",
		},
		{
			name:    "cycle",
			mutate:  func(m *config.Model) { m.Steps[2].Inputs["input"] = ref("step", "smooth") },
			wantErr: "cycle detected",
		},
		{
			name:    "invalid model",
			mutate:  func(m *config.Model) { m.Outputs[0].From = ref("step", "missing") },
			wantErr: "reference to undeclared step",
		},
	}

	eng, err := engine.New(context.Background())
	require.NoError(t, err)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := salesModel()
			tc.mutate(m)
			_, err := New(context.Background(), m, eng)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestGraph_Symbolic(t *testing.T) {
	p := newPipeline(t, salesModel())
	in := node.NewInput([]node.Feature{{Name: "sales", DType: dtype.Float64}}, []node.Feature{{Name: "store", DType: dtype.String}}, false)

	outputs, err := p.Graph(context.Background(), map[string]*node.Node{"sales": in})
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, []string{"mult_add_sales_10.0_2.0"}, outputs["doubled"].FeatureNames())
	assert.Same(t, in.Sampling(), outputs["smoothed"].Sampling())
	assert.Equal(t, "simple_moving_average", outputs["smoothed"].Creator().Kind())

	_, err = p.Graph(context.Background(), nil)
	assert.ErrorContains(t, err, `missing argument "sales"`)
}

func TestRun_Eager(t *testing.T) {
	p := newPipeline(t, salesModel())
	res, err := p.Run(context.Background(), map[string]*eventset.EventSet{"sales": salesData(t)})
	require.NoError(t, err)

	a, ok := res["doubled"].Get([]any{"a"})
	require.True(t, ok)
	if diff := cmp.Diff(eventset.Float64s{22, math.NaN(), 26}, a.Features[0], cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("doubled mismatch (-want +got):\n%s", diff)
	}
	a, _ = res["smoothed"].Get([]any{"a"})
	if diff := cmp.Diff(eventset.Float64s{22, 22, 26}, a.Features[0], cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("smoothed mismatch (-want +got):\n%s", diff)
	}
	b, _ := res["smoothed"].Get([]any{"b"})
	assert.Equal(t, eventset.Float64s{30}, b.Features[0])
}

func TestRun_MultipleOutputsNeedSelector(t *testing.T) {
	m := salesModel()
	p := newPipeline(t, m)
	// Every core operator has a single output, so select a missing one.
	m.Outputs[0].From = config.Reference{Root: "step", Name: "double", Output: "left"}
	_, err := p.Run(context.Background(), map[string]*eventset.EventSet{"sales": salesData(t)})
	assert.ErrorContains(t, err, "step 'double' has no output 'left' (available: output)")
}

func TestLoadInputsAndWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte("timestamp,store,sales\n1,a,1\n2,a,\n3,a,3\n1,b,5\n"), 0o644))

	p := newPipeline(t, salesModel())
	data, err := p.LoadInputs(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, eventset.Equal(salesData(t), data["sales"]))

	res, err := p.Run(context.Background(), data)
	require.NoError(t, err)
	require.NoError(t, p.WriteOutputs(context.Background(), dir, res))

	doubled, err := csvio.ReadFile(filepath.Join(dir, "out", "doubled.csv"), csvio.Options{Index: []string{"store"}})
	require.NoError(t, err)
	assert.True(t, eventset.Equal(res["doubled"], doubled), "got %s", doubled)

	smoothed, err := arrowio.ReadFile(filepath.Join(dir, "out", "smoothed.arrow"), arrowio.Options{})
	require.NoError(t, err)
	assert.True(t, eventset.Equal(res["smoothed"], smoothed), "got %s", smoothed)
}

func TestLoadInputs_MissingFile(t *testing.T) {
	p := newPipeline(t, salesModel())
	_, err := p.LoadInputs(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "input 'sales'")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
