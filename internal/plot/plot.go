// Package plot renders EventSets as line charts, one line per index key and
// numeric feature.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/node"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNothingToPlot is returned when an EventSet has no numeric feature.
var ErrNothingToPlot = errors.New("eventset has no numeric feature to plot")

// Options configures the rendered chart.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Format is an image format supported by gonum/plot: png, svg, pdf...
	Format string
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 8 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 4 * vg.Inch
	}
	if o.Format == "" {
		o.Format = "png"
	}
	return o
}

// New builds the chart. Missing values are left out of the lines.
func New(es *eventset.EventSet, opts Options) (*gonumplot.Plot, error) {
	p := gonumplot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "timestamp"
	if es.Node().Sampling().IsUnixTimestamp() {
		p.X.Tick.Marker = gonumplot.TimeTicks{Format: "2006-01-02\n15:04:05"}
	}

	names := es.Node().FeatureNames()
	index := es.Node().Sampling().Index()
	lines := 0
	for _, d := range es.Index() {
		for i, arr := range d.Features {
			if !arr.DType().IsNumeric() {
				continue
			}
			pts := points(d.Timestamps, arr)
			if len(pts) == 0 {
				continue
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", names[i], err)
			}
			line.Color = plotutil.Color(lines)
			line.Dashes = plotutil.Dashes(lines / len(plotutil.DefaultColors))
			p.Add(line)
			p.Legend.Add(legend(names[i], d.Key, index), line)
			lines++
		}
	}
	if lines == 0 {
		return nil, ErrNothingToPlot
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

func points(timestamps []float64, arr eventset.Array) plotter.XYs {
	pts := make(plotter.XYs, 0, len(timestamps))
	for i, ts := range timestamps {
		var y float64
		switch v := arr.At(i).(type) {
		case float64:
			y = v
		case int64:
			y = float64(v)
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: ts, Y: y})
	}
	return pts
}

func legend(feature string, key []any, index []node.Feature) string {
	if len(key) == 0 {
		return feature
	}
	return feature + " (" + eventset.FormatKey(key, index) + ")"
}

// Render writes the chart of es to w.
func Render(w io.Writer, es *eventset.EventSet, opts Options) error {
	opts = opts.withDefaults()
	p, err := New(es, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveFile writes the chart of es to path. Without an explicit format the
// file extension picks it.
func SaveFile(path string, es *eventset.EventSet, opts Options) error {
	if opts.Format == "" {
		opts.Format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(f, es, opts); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
