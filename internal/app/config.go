package app

import (
	"errors"
	"os"
	"path/filepath"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePaths []string // hcl files or directories
	// BaseDir resolves relative input and output paths. Empty means the
	// directory of the first pipeline path.
	BaseDir string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.PipelinePaths) == 0 {
		return nil, errors.New("at least one pipeline path is required")
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = defaultBaseDir(cfg.PipelinePaths[0])
	}
	return &cfg, nil
}

func defaultBaseDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
