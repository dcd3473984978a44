// Package csvio reads EventSets from CSV files and writes them back.
//
// A CSV file has a header row. One column holds the timestamps, either as
// float seconds or as RFC 3339 times; the other columns are index or feature
// columns. Empty cells are missing values.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/eventset"
)

// DefaultTimestampColumn is the timestamp column used when Options names none.
const DefaultTimestampColumn = "timestamp"

// ErrFormat is returned for malformed CSV content.
var ErrFormat = errors.New("invalid csv content")

// Options describes how CSV columns map onto an EventSet.
type Options struct {
	// Timestamp names the timestamp column.
	Timestamp string
	// Index names the index columns.
	Index []string
	// Features declares column dtypes. Undeclared columns are inferred:
	// int64 when every cell is an integer, float64 when every cell is a
	// number, string otherwise.
	Features map[string]dtype.DType
	// Only restricts the loaded columns to Index and the keys of Features.
	Only bool
	// UnixTimestamps marks float timestamps as unix seconds. RFC 3339
	// timestamps always are.
	UnixTimestamps bool
	// Name is the display name of the created node.
	Name string
}

// ReadFile reads the CSV file at path.
func ReadFile(path string, opts Options) (*eventset.EventSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	es, err := Read(bufio.NewReader(f), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return es, nil
}

// Read parses CSV content into an EventSet.
func Read(r io.Reader, opts Options) (*eventset.EventSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrFormat)
	}
	header, rows := records[0], records[1:]

	tsName := opts.Timestamp
	if tsName == "" {
		tsName = DefaultTimestampColumn
	}
	tsCol := slices.Index(header, tsName)
	if tsCol < 0 {
		return nil, fmt.Errorf("%w: timestamp column %q not found in header %v", ErrFormat, tsName, header)
	}
	for _, name := range opts.Index {
		if !slices.Contains(header, name) {
			return nil, fmt.Errorf("%w: index column %q not found", ErrFormat, name)
		}
	}
	for name := range opts.Features {
		if !slices.Contains(header, name) {
			return nil, fmt.Errorf("%w: feature column %q not found", ErrFormat, name)
		}
	}

	timestamps, unix, err := parseTimestamps(rows, tsCol)
	if err != nil {
		return nil, err
	}

	var features []eventset.Feature
	for col, name := range header {
		if col == tsCol {
			continue
		}
		d, declared := opts.Features[name]
		if opts.Only && !declared && !slices.Contains(opts.Index, name) {
			continue
		}
		cells := column(rows, col)
		if !declared {
			d = infer(cells)
		}
		arr, err := parseColumn(d, cells)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %w", ErrFormat, name, err)
		}
		features = append(features, eventset.Feature{Name: name, Data: arr})
	}

	buildOpts := []eventset.Option{eventset.WithIndex(opts.Index...)}
	if unix || opts.UnixTimestamps {
		buildOpts = append(buildOpts, eventset.WithUnixTimestamps())
	}
	if opts.Name != "" {
		buildOpts = append(buildOpts, eventset.WithName(opts.Name))
	}
	return eventset.FromArrays(timestamps, features, buildOpts...)
}

func column(rows [][]string, col int) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[col]
	}
	return out
}

// parseTimestamps reads float seconds, falling back to RFC 3339 when the
// first cell is not a number.
func parseTimestamps(rows [][]string, col int) ([]float64, bool, error) {
	out := make([]float64, len(rows))
	if len(rows) == 0 {
		return out, false, nil
	}
	_, numErr := strconv.ParseFloat(rows[0][col], 64)
	asTime := numErr != nil
	for i, row := range rows {
		cell := row[col]
		if asTime {
			t, err := time.Parse(time.RFC3339Nano, cell)
			if err != nil {
				return nil, false, fmt.Errorf("%w: row %d: timestamp %q is neither a number nor an RFC 3339 time", ErrFormat, i+1, cell)
			}
			out[i] = eventset.UnixSeconds([]time.Time{t})[0]
			continue
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsNaN(f) {
			return nil, false, fmt.Errorf("%w: row %d: invalid timestamp %q", ErrFormat, i+1, cell)
		}
		out[i] = f
	}
	return out, asTime, nil
}

func infer(cells []string) dtype.DType {
	isInt, isFloat := true, true
	for _, c := range cells {
		if c == "" {
			isInt = false
			continue
		}
		if _, err := strconv.ParseInt(c, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			isFloat = false
		}
	}
	switch {
	case len(cells) == 0:
		return dtype.Float64
	case isInt:
		return dtype.Int64
	case isFloat:
		return dtype.Float64
	default:
		return dtype.String
	}
}

func parseColumn(d dtype.DType, cells []string) (eventset.Array, error) {
	switch d {
	case dtype.Float64:
		out := make(eventset.Float64s, len(cells))
		for i, c := range cells {
			if c == "" {
				out[i] = dtype.MissingFloat()
				continue
			}
			f, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			out[i] = f
		}
		return out, nil
	case dtype.Int64:
		out := make(eventset.Int64s, len(cells))
		for i, c := range cells {
			v, err := strconv.ParseInt(c, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			out[i] = v
		}
		return out, nil
	case dtype.Bool:
		out := make(eventset.Bools, len(cells))
		for i, c := range cells {
			v, err := strconv.ParseBool(c)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			out[i] = v
		}
		return out, nil
	case dtype.String:
		return eventset.Strings(slices.Clone(cells)), nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", d)
	}
}

// WriteFile writes es to path as CSV, creating or truncating the file.
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

// Write renders es as CSV: index columns, the timestamp column, then the
// features. Rows are ordered by index key, then timestamp. Missing values
// are empty cells.
func Write(w io.Writer, es *eventset.EventSet) error {
	timestamps, features, err := es.Flatten()
	if err != nil {
		return err
	}
	numIndex := len(es.Node().Sampling().Index())

	header := make([]string, 0, len(features)+1)
	for i, f := range features {
		if i == numIndex {
			header = append(header, DefaultTimestampColumn)
		}
		header = append(header, f.Name)
	}
	if numIndex == len(features) {
		header = append(header, DefaultTimestampColumn)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for r, ts := range timestamps {
		row = row[:0]
		for i, f := range features {
			if i == numIndex {
				row = append(row, formatFloat(ts))
			}
			row = append(row, formatCell(f.Data, r))
		}
		if numIndex == len(features) {
			row = append(row, formatFloat(ts))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(arr eventset.Array, i int) string {
	if arr.IsMissing(i) {
		return ""
	}
	switch v := arr.At(i).(type) {
	case float64:
		return formatFloat(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
