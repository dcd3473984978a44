package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/eventflow/internal/arrowio"
	"github.com/vk/eventflow/internal/config"
	"github.com/vk/eventflow/internal/csvio"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/eventset"
	"github.com/vk/eventflow/internal/plot"
)

// LoadInputs reads the data of every input block. Relative paths are
// resolved against baseDir.
func (p *Pipeline) LoadInputs(ctx context.Context, baseDir string) (map[string]*eventset.EventSet, error) {
	logger := ctxlog.FromContext(ctx)
	data := make(map[string]*eventset.EventSet, len(p.model.Inputs))
	for _, in := range p.model.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := resolvePath(baseDir, in.Path)
		es, err := ReadInput(in, path)
		if err != nil {
			return nil, fmt.Errorf("input '%s': %w", in.Name, err)
		}
		logger.Info("Loaded input.", "input", in.Name, "path", path, "index_keys", es.Len(), "events", es.NumEvents())
		data[in.Name] = es
	}
	return data, nil
}

// ReadInput reads the file at path in the format of in.
func ReadInput(in *config.Input, path string) (*eventset.EventSet, error) {
	switch in.Format {
	case config.FormatCSV:
		return csvio.ReadFile(path, csvio.Options{
			Timestamp:      in.Timestamp,
			Index:          in.Index,
			Features:       in.Features,
			Only:           in.Features != nil,
			UnixTimestamps: in.UnixTimestamps,
			Name:           in.Name,
		})
	case config.FormatArrow:
		return arrowio.ReadFile(path, arrowio.Options{
			Timestamp:      in.Timestamp,
			Index:          in.Index,
			UnixTimestamps: in.UnixTimestamps,
			Name:           in.Name,
		})
	default:
		return nil, fmt.Errorf("unsupported input format %q", in.Format)
	}
}

// WriteOutputs writes every output block from results. Relative paths are
// resolved against baseDir and missing directories are created.
func (p *Pipeline) WriteOutputs(ctx context.Context, baseDir string, results map[string]*eventset.EventSet) error {
	logger := ctxlog.FromContext(ctx)
	for _, out := range p.model.Outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		es, ok := results[out.Name]
		if !ok {
			return fmt.Errorf("output '%s': no result", out.Name)
		}
		path := resolvePath(baseDir, out.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("output '%s': %w", out.Name, err)
		}
		if err := WriteOutput(out, path, es); err != nil {
			return fmt.Errorf("output '%s': %w", out.Name, err)
		}
		logger.Info("Wrote output.", "output", out.Name, "format", out.Format, "path", path, "events", es.NumEvents())
	}
	return nil
}

// WriteOutput writes es to path in the format of out.
func WriteOutput(out *config.Output, path string, es *eventset.EventSet) error {
	switch out.Format {
	case config.FormatCSV:
		return csvio.WriteFile(path, es)
	case config.FormatArrow:
		return arrowio.WriteFile(path, es)
	case config.FormatPNG, config.FormatSVG:
		return plot.SaveFile(path, es, plot.Options{Title: out.Title, Format: out.Format})
	default:
		return fmt.Errorf("unsupported output format %q", out.Format)
	}
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
