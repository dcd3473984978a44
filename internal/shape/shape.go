// Package shape walks and rebuilds nested argument structures (slices,
// arrays, maps and interfaces, arbitrarily nested) in a fixed order:
// depth-first, left to right for sequences, sorted key order for maps.
package shape

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
)

// LeafFunc maps one leaf value of the source type to a value of the target
// type.
type LeafFunc func(leaf reflect.Value) (reflect.Value, error)

// MapOption configures a Map traversal.
type MapOption func(*mapper)

// Observe calls fn for every value of type typ met during the traversal,
// interleaved with the mapped leaves in traversal order. Observed values are
// kept unchanged. An error from fn stops the traversal.
func Observe(typ reflect.Type, fn func(leaf reflect.Value) error) MapOption {
	return func(m *mapper) {
		m.observe = typ
		m.visit = fn
	}
}

// Map returns a copy of v in which every value of type from is replaced by
// fn's result. Container types whose elements are (transitively) of type
// from are rebuilt with element type to. Containers are always copied; the
// input is never modified. Values of any other type are returned unchanged.
func Map(v any, from, to reflect.Type, fn LeafFunc, opts ...MapOption) (any, error) {
	if v == nil {
		return nil, nil
	}
	m := &mapper{from: from, to: to, fn: fn}
	for _, opt := range opts {
		opt(m)
	}
	out, err := m.value(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// Walk calls fn for every value of type typ in v, in traversal order.
func Walk(v any, typ reflect.Type, fn func(leaf reflect.Value) error) error {
	_, err := Map(v, typ, typ, func(leaf reflect.Value) (reflect.Value, error) {
		return leaf, fn(leaf)
	})
	return err
}

type mapper struct {
	from, to reflect.Type
	fn       LeafFunc
	observe  reflect.Type
	visit    func(reflect.Value) error
}

// convert returns the type a value of type t has after mapping.
func (m *mapper) convert(t reflect.Type) reflect.Type {
	if t == m.from {
		return m.to
	}
	switch t.Kind() {
	case reflect.Slice:
		if e := m.convert(t.Elem()); e != t.Elem() {
			return reflect.SliceOf(e)
		}
	case reflect.Array:
		if e := m.convert(t.Elem()); e != t.Elem() {
			return reflect.ArrayOf(t.Len(), e)
		}
	case reflect.Map:
		if e := m.convert(t.Elem()); e != t.Elem() {
			return reflect.MapOf(t.Key(), e)
		}
	}
	return t
}

func (m *mapper) value(v reflect.Value) (reflect.Value, error) {
	if !v.IsValid() {
		return v, nil
	}
	if v.Type() == m.from {
		out, err := m.fn(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if !out.IsValid() {
			return reflect.Zero(m.to), nil
		}
		return out, nil
	}
	if m.visit != nil && v.Type() == m.observe {
		return v, m.visit(v)
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v, nil
		}
		return m.value(v.Elem())

	case reflect.Slice:
		t := m.convert(v.Type())
		if v.IsNil() {
			return reflect.Zero(t), nil
		}
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			if err := m.set(out.Index(i), v.Index(i), fmt.Sprintf("[%d]", i)); err != nil {
				return reflect.Value{}, err
			}
		}
		return out, nil

	case reflect.Array:
		out := reflect.New(m.convert(v.Type())).Elem()
		for i := 0; i < v.Len(); i++ {
			if err := m.set(out.Index(i), v.Index(i), fmt.Sprintf("[%d]", i)); err != nil {
				return reflect.Value{}, err
			}
		}
		return out, nil

	case reflect.Map:
		t := m.convert(v.Type())
		if v.IsNil() {
			return reflect.Zero(t), nil
		}
		out := reflect.MakeMapWithSize(t, v.Len())
		for _, k := range SortedKeys(v) {
			elem := reflect.New(t.Elem()).Elem()
			if err := m.set(elem, v.MapIndex(k), fmt.Sprintf("[%v]", k)); err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(k, elem)
		}
		return out, nil

	default:
		return v, nil
	}
}

func (m *mapper) set(dst, src reflect.Value, path string) error {
	mapped, err := m.value(src)
	if err != nil {
		return err
	}
	if !mapped.IsValid() {
		return nil
	}
	if !mapped.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("element %s: cannot store %s in %s", path, mapped.Type(), dst.Type())
	}
	dst.Set(mapped)
	return nil
}

// SortedKeys returns the keys of a map value in a deterministic order:
// natural order for strings and numbers, formatted order otherwise.
func SortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	default:
		return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	}
}
