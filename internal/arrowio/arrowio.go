// Package arrowio converts EventSets to and from Apache Arrow records and
// stores them as Arrow IPC files.
//
// A record has the index columns first, then a float64 timestamp column, then
// the features. The index column names and the unix timestamp flag travel in
// the schema metadata so a written file reads back into the same schema.
package arrowio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v7/arrow"
	"github.com/apache/arrow/go/v7/arrow/array"
	"github.com/apache/arrow/go/v7/arrow/ipc"
	"github.com/apache/arrow/go/v7/arrow/memory"
	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/eventset"
)

const (
	// TimestampField is the name of the timestamp column.
	TimestampField = "timestamp"

	metaIndex = "eventflow.index"
	metaUnix  = "eventflow.unix_timestamps"
)

// ErrFormat is returned for records that do not describe an EventSet.
var ErrFormat = errors.New("invalid arrow content")

// Options controls how records are read. Zero values fall back to the schema
// metadata.
type Options struct {
	// Timestamp names the timestamp column. Defaults to TimestampField.
	Timestamp string
	// Index overrides the index columns stored in the metadata.
	Index []string
	// UnixTimestamps forces the unix timestamp flag.
	UnixTimestamps bool
	// Name is the display name of the created node.
	Name string
}

// DataType returns the Arrow type holding values of d.
func DataType(d dtype.DType) (arrow.DataType, error) {
	switch d {
	case dtype.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case dtype.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case dtype.String:
		return arrow.BinaryTypes.String, nil
	case dtype.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	default:
		return nil, fmt.Errorf("dtype %s has no arrow type", d)
	}
}

// Schema returns the Arrow schema of the records ToRecord produces for es.
func Schema(es *eventset.EventSet) (*arrow.Schema, error) {
	sampling := es.Node().Sampling()
	index := sampling.Index()
	all := append(index, es.Node().Features()...)

	fields := make([]arrow.Field, 0, len(all)+1)
	for i, f := range all {
		if i == len(index) {
			fields = append(fields, arrow.Field{Name: TimestampField, Type: arrow.PrimitiveTypes.Float64})
		}
		dt, err := DataType(f.DType)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Name, err)
		}
		fields = append(fields, arrow.Field{Name: f.Name, Type: dt, Nullable: f.DType.HasMissing()})
	}
	if len(index) == len(all) {
		fields = append(fields, arrow.Field{Name: TimestampField, Type: arrow.PrimitiveTypes.Float64})
	}

	md := arrow.NewMetadata(
		[]string{metaIndex, metaUnix},
		[]string{strings.Join(sampling.IndexNames(), ","), strconv.FormatBool(sampling.IsUnixTimestamp())},
	)
	return arrow.NewSchema(fields, &md), nil
}

// ToRecord converts es into a single record. Rows are ordered by index key,
// then timestamp. Missing strings become nulls; missing floats stay NaN. The
// caller must release the record.
func ToRecord(es *eventset.EventSet, mem memory.Allocator) (arrow.Record, error) {
	schema, err := Schema(es)
	if err != nil {
		return nil, err
	}
	timestamps, features, err := es.Flatten()
	if err != nil {
		return nil, err
	}
	numIndex := len(es.Node().Sampling().Index())

	cols := make([]arrow.Array, 0, len(features)+1)
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	for i, f := range features {
		if i == numIndex {
			cols = append(cols, buildArray(mem, eventset.Float64s(timestamps)))
		}
		cols = append(cols, buildArray(mem, f.Data))
	}
	if numIndex == len(features) {
		cols = append(cols, buildArray(mem, eventset.Float64s(timestamps)))
	}
	return array.NewRecord(schema, cols, int64(len(timestamps))), nil
}

func buildArray(mem memory.Allocator, data eventset.Array) arrow.Array {
	switch x := data.(type) {
	case eventset.Float64s:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(x, nil)
		return b.NewArray()
	case eventset.Int64s:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(x, nil)
		return b.NewArray()
	case eventset.Bools:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(x, nil)
		return b.NewArray()
	case eventset.Strings:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		valid := make([]bool, len(x))
		for i := range x {
			valid[i] = !x.IsMissing(i)
		}
		b.AppendValues(x, valid)
		return b.NewArray()
	default:
		panic(fmt.Sprintf("arrowio: unsupported array %T", data))
	}
}

// FromRecords converts records sharing schema into one EventSet.
func FromRecords(schema *arrow.Schema, records []arrow.Record, opts Options) (*eventset.EventSet, error) {
	tsName := opts.Timestamp
	if tsName == "" {
		tsName = TimestampField
	}
	index, unix := opts.Index, opts.UnixTimestamps
	md := schema.Metadata()
	if i := md.FindKey(metaIndex); i >= 0 && index == nil && md.Values()[i] != "" {
		index = strings.Split(md.Values()[i], ",")
	}
	if i := md.FindKey(metaUnix); i >= 0 && !unix {
		unix, _ = strconv.ParseBool(md.Values()[i])
	}

	tsCols := schema.FieldIndices(tsName)
	if len(tsCols) != 1 {
		return nil, fmt.Errorf("%w: expected one timestamp column %q, found %d", ErrFormat, tsName, len(tsCols))
	}

	var timestamps eventset.Float64s
	columns := make([]eventset.Array, len(schema.Fields()))
	for _, rec := range records {
		if !rec.Schema().Equal(schema) {
			return nil, fmt.Errorf("%w: record schema differs from the file schema", ErrFormat)
		}
		for c, f := range schema.Fields() {
			arr, err := fromArrow(rec.Column(c))
			if err != nil {
				return nil, fmt.Errorf("%w: column %q: %w", ErrFormat, f.Name, err)
			}
			if c == tsCols[0] {
				ts, err := asFloats(arr)
				if err != nil {
					return nil, fmt.Errorf("%w: column %q: %w", ErrFormat, f.Name, err)
				}
				timestamps = append(timestamps, ts...)
				continue
			}
			if columns[c] == nil {
				columns[c] = arr
				continue
			}
			if columns[c], err = eventset.Concat(arr.DType(), columns[c], arr); err != nil {
				return nil, fmt.Errorf("%w: column %q: %w", ErrFormat, f.Name, err)
			}
		}
	}

	features := make([]eventset.Feature, 0, len(columns))
	for c, f := range schema.Fields() {
		if c == tsCols[0] {
			continue
		}
		data := columns[c]
		if data == nil {
			d, err := dtypeOf(f.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q: %w", ErrFormat, f.Name, err)
			}
			data, _ = eventset.NewArray(d, 0)
		}
		features = append(features, eventset.Feature{Name: f.Name, Data: data})
	}

	buildOpts := []eventset.Option{eventset.WithIndex(index...)}
	if unix {
		buildOpts = append(buildOpts, eventset.WithUnixTimestamps())
	}
	if opts.Name != "" {
		buildOpts = append(buildOpts, eventset.WithName(opts.Name))
	}
	return eventset.FromArrays(timestamps, features, buildOpts...)
}

func dtypeOf(dt arrow.DataType) (dtype.DType, error) {
	switch dt.ID() {
	case arrow.FLOAT64, arrow.FLOAT32:
		return dtype.Float64, nil
	case arrow.INT64, arrow.INT32, arrow.INT16, arrow.INT8:
		return dtype.Int64, nil
	case arrow.STRING:
		return dtype.String, nil
	case arrow.BOOL:
		return dtype.Bool, nil
	default:
		return dtype.Invalid, fmt.Errorf("unsupported arrow type %s", dt)
	}
}

// fromArrow copies an Arrow array into an eventset array. Nulls become the
// missing value of float and string columns and are rejected elsewhere.
func fromArrow(a arrow.Array) (eventset.Array, error) {
	n := a.Len()
	checkNulls := func() error {
		if a.NullN() > 0 {
			return fmt.Errorf("%d null values in a %s column", a.NullN(), a.DataType())
		}
		return nil
	}
	switch x := a.(type) {
	case *array.Float64:
		out := slices.Clone(eventset.Float64s(x.Float64Values()))
		for i := range n {
			if x.IsNull(i) {
				out[i] = dtype.MissingFloat()
			}
		}
		return out, nil
	case *array.Float32:
		out := make(eventset.Float64s, n)
		for i := range n {
			out[i] = float64(x.Value(i))
			if x.IsNull(i) {
				out[i] = dtype.MissingFloat()
			}
		}
		return out, nil
	case *array.Int64:
		if err := checkNulls(); err != nil {
			return nil, err
		}
		return slices.Clone(eventset.Int64s(x.Int64Values())), nil
	case *array.Int32:
		if err := checkNulls(); err != nil {
			return nil, err
		}
		out := make(eventset.Int64s, n)
		for i := range n {
			out[i] = int64(x.Value(i))
		}
		return out, nil
	case *array.Int16:
		if err := checkNulls(); err != nil {
			return nil, err
		}
		out := make(eventset.Int64s, n)
		for i := range n {
			out[i] = int64(x.Value(i))
		}
		return out, nil
	case *array.Int8:
		if err := checkNulls(); err != nil {
			return nil, err
		}
		out := make(eventset.Int64s, n)
		for i := range n {
			out[i] = int64(x.Value(i))
		}
		return out, nil
	case *array.String:
		out := make(eventset.Strings, n)
		for i := range n {
			if !x.IsNull(i) {
				out[i] = x.Value(i)
			}
		}
		return out, nil
	case *array.Boolean:
		if err := checkNulls(); err != nil {
			return nil, err
		}
		out := make(eventset.Bools, n)
		for i := range n {
			out[i] = x.Value(i)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported arrow type %s", a.DataType())
	}
}

func asFloats(arr eventset.Array) (eventset.Float64s, error) {
	switch x := arr.(type) {
	case eventset.Float64s:
		return x, nil
	case eventset.Int64s:
		out := make(eventset.Float64s, len(x))
		for i, v := range x {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("timestamps must be numeric, got %s", arr.DType())
	}
}

// Write stores es as an Arrow IPC file with a single record batch.
func Write(w io.Writer, es *eventset.EventSet) error {
	mem := memory.NewGoAllocator()
	rec, err := ToRecord(es, mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

// WriteFile writes es to path as an Arrow IPC file.
func WriteFile(path string, es *eventset.EventSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, es); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// ReadFile reads every record batch of the Arrow IPC file at path into one
// EventSet.
func ReadFile(path string, opts Options) (*eventset.EventSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	fr, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrFormat, err)
	}
	defer fr.Close()

	records := make([]arrow.Record, 0, fr.NumRecords())
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	for i := range fr.NumRecords() {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		rec.Retain()
		records = append(records, rec)
	}

	es, err := FromRecords(fr.Schema(), records, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return es, nil
}
