package eventset

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
)

const keySep = "\x1f"

// EncodeKey turns an index key tuple into the string used as map key.
// Values must be int64 or string. Strings are quoted so distinct tuples
// never share an encoding.
func EncodeKey(key []any) (string, error) {
	parts := make([]string, len(key))
	for i, v := range key {
		switch x := v.(type) {
		case int64:
			parts[i] = "i" + strconv.FormatInt(x, 10)
		case string:
			parts[i] = "s" + strconv.Quote(x)
		default:
			return "", fmt.Errorf("index value %v has unsupported type %T", v, v)
		}
	}
	return strings.Join(parts, keySep), nil
}

// CheckKey validates an index key tuple against an index schema.
func CheckKey(key []any, index []node.Feature) error {
	if len(key) != len(index) {
		return fmt.Errorf("index key has %d values, index has %d features", len(key), len(index))
	}
	for i, v := range key {
		d, err := dtype.Of(v)
		if err != nil {
			return fmt.Errorf("index %q: %w", index[i].Name, err)
		}
		if d != index[i].DType {
			return fmt.Errorf("index %q expects %s, got %s", index[i].Name, index[i].DType, d)
		}
	}
	return nil
}

// CompareKeys orders index key tuples value by value.
func CompareKeys(a, b []any) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		var c int
		switch x := a[i].(type) {
		case int64:
			c = cmp.Compare(x, b[i].(int64))
		case string:
			c = cmp.Compare(x, b[i].(string))
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// FormatKey renders a key as "name=value" pairs for logs and errors.
func FormatKey(key []any, index []node.Feature) string {
	if len(key) == 0 {
		return "<no index>"
	}
	parts := make([]string, len(key))
	for i, v := range key {
		name := fmt.Sprintf("#%d", i)
		if i < len(index) {
			name = index[i].Name
		}
		parts[i] = fmt.Sprintf("%s=%v", name, v)
	}
	return strings.Join(parts, ",")
}
