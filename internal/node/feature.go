package node

import (
	"fmt"

	"github.com/vk/eventflow/internal/dtype"
)

// Feature is a named, typed column of an event stream.
type Feature struct {
	Name  string
	DType dtype.DType
}

// String renders the feature as "name:dtype".
func (f Feature) String() string {
	return fmt.Sprintf("%s:%s", f.Name, f.DType)
}

// CheckFeatures validates a feature list: names must be non-empty and unique,
// dtypes valid.
func CheckFeatures(features []Feature) error {
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if f.Name == "" {
			return fmt.Errorf("feature name cannot be empty")
		}
		if f.DType == dtype.Invalid {
			return fmt.Errorf("feature %q has no dtype", f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate feature name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
