package hcl

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/eventflow/internal/config"
	"github.com/vk/eventflow/internal/ctxlog"
	"github.com/vk/eventflow/internal/fsutil"
	"github.com/vk/eventflow/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file found under paths and merges their blocks into
// one validated model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	model := &config.Model{}
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := l.decodeFile(ctx, model, hclFile); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
	}
	return l.finish(ctx, model)
}

// Parse loads a model from in-memory HCL source.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL source %s: %w", filename, diags)
	}
	model := &config.Model{}
	if err := l.decodeFile(ctx, model, hclFile); err != nil {
		return nil, fmt.Errorf("failed to decode HCL source %s: %w", filename, err)
	}
	return l.finish(ctx, model)
}

func (l *Loader) decodeFile(ctx context.Context, model *config.Model, file *hcl.File) error {
	var root schema.File
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return diags
	}
	for _, s := range root.Inputs {
		in, err := l.translateInput(ctx, s)
		if err != nil {
			return err
		}
		model.Inputs = append(model.Inputs, in)
	}
	for _, s := range root.Steps {
		step, err := l.translateStep(ctx, s)
		if err != nil {
			return err
		}
		model.Steps = append(model.Steps, step)
	}
	for _, s := range root.Outputs {
		out, err := l.translateOutput(ctx, s)
		if err != nil {
			return err
		}
		model.Outputs = append(model.Outputs, out)
	}
	return nil
}

func (l *Loader) finish(ctx context.Context, model *config.Model) (*config.Model, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("HCL loading complete.", "inputs", len(model.Inputs), "steps", len(model.Steps), "outputs", len(model.Outputs))
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a sorted, de-duplicated
// list of all .hcl files found. Missing paths are skipped.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			allFiles = append(allFiles, path)
			continue
		}
		found, err := fsutil.FindFiles(path, ".hcl")
		if err != nil {
			return nil, err
		}
		allFiles = append(allFiles, found...)
	}
	slices.Sort(allFiles)
	return slices.Compact(allFiles), nil
}
