package csvio

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
)

const salesCSV = `timestamp,store,sales,open
3,b,30,true
1,a,,false
2,a,20,true
1,b,10,true
`

func TestRead(t *testing.T) {
	es, err := Read(strings.NewReader(salesCSV), Options{
		Index:    []string{"store"},
		Features: map[string]dtype.DType{"open": dtype.Bool},
		Name:     "sales",
	})
	require.NoError(t, err)

	assert.Equal(t, "sales", es.Node().Name())
	assert.Equal(t, []node.Feature{
		{Name: "sales", DType: dtype.Float64},
		{Name: "open", DType: dtype.Bool},
	}, es.Node().Features())
	assert.False(t, es.Node().Sampling().IsUnixTimestamp())

	a, ok := es.Get([]any{"a"})
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, a.Timestamps)
	if diff := cmp.Diff(eventset.Float64s{math.NaN(), 20}, a.Features[0], cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("sales mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, eventset.Bools{false, true}, a.Features[1])
}

func TestRead_Inference(t *testing.T) {
	es, err := Read(strings.NewReader("t,count,ratio,label\n1,1,0.5,x\n2,2,1,\n"), Options{Timestamp: "t"})
	require.NoError(t, err)
	assert.Equal(t, []node.Feature{
		{Name: "count", DType: dtype.Int64},
		{Name: "ratio", DType: dtype.Float64},
		{Name: "label", DType: dtype.String},
	}, es.Node().Features())
}

func TestRead_Only(t *testing.T) {
	es, err := Read(strings.NewReader(salesCSV), Options{
		Index:    []string{"store"},
		Features: map[string]dtype.DType{"sales": dtype.Float64},
		Only:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sales"}, es.Node().FeatureNames())
}

func TestRead_RFC3339Timestamps(t *testing.T) {
	in := "timestamp,x\n2023-03-05T14:30:15Z,1\n1970-01-01T00:00:01.5Z,2\n"
	es, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	assert.True(t, es.Node().Sampling().IsUnixTimestamp())
	d, _ := es.Get([]any{})
	assert.Equal(t, []float64{1.5, 1678026615}, d.Timestamps)
}

func TestRead_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		opts    Options
		wantErr string
	}{
		{name: "empty", in: "", wantErr: "missing header row"},
		{name: "no timestamp column", in: "x\n1\n", wantErr: `timestamp column "timestamp" not found`},
		{name: "missing index column", in: "timestamp\n1\n", opts: Options{Index: []string{"k"}}, wantErr: `index column "k" not found`},
		{name: "missing feature column", in: "timestamp\n1\n", opts: Options{Features: map[string]dtype.DType{"f": dtype.Int64}}, wantErr: `feature column "f" not found`},
		{name: "bad timestamp", in: "timestamp\n1\nnope\n", wantErr: `invalid timestamp "nope"`},
		{name: "bad time", in: "timestamp\nmonday\n", wantErr: "neither a number nor an RFC 3339 time"},
		{name: "bad int", in: "timestamp,x\n1,a\n", opts: Options{Features: map[string]dtype.DType{"x": dtype.Int64}}, wantErr: `column "x": row 1`},
		{name: "ragged rows", in: "timestamp,x\n1\n", wantErr: "wrong number of fields"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.in), tc.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestWrite(t *testing.T) {
	es, err := Read(strings.NewReader(salesCSV), Options{
		Index:    []string{"store"},
		Features: map[string]dtype.DType{"open": dtype.Bool},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, es))
	assert.Equal(t, `store,timestamp,sales,open
a,1,,false
a,2,20,true
b,1,10,true
b,3,30,true
`, buf.String())
}

func TestWriteFile_RoundTrip(t *testing.T) {
	es, err := eventset.FromArrays(
		[]float64{1609455600, 0.25},
		[]eventset.Feature{{Name: "x", Data: eventset.Float64s{1.5, math.NaN()}}},
		eventset.WithUnixTimestamps(),
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, es))

	back, err := ReadFile(path, Options{UnixTimestamps: true})
	require.NoError(t, err)
	assert.True(t, eventset.Equal(es, back), "got %s", back)
}
