package calendar

import (
	"fmt"
	"time"

	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Year returns a node with the year of every event of sampling.
func Year(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindYear, sampling, loc)
}

// Month returns a node with the month of every event of sampling.
func Month(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindMonth, sampling, loc)
}

// DayOfMonth returns a node with the day of the month of every event.
func DayOfMonth(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindDayOfMonth, sampling, loc)
}

// DayOfWeek returns a node with the day of the week of every event, Monday
// being 0.
func DayOfWeek(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindDayOfWeek, sampling, loc)
}

// DayOfYear returns a node with the day of the year of every event.
func DayOfYear(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindDayOfYear, sampling, loc)
}

// ISOWeek returns a node with the ISO week of every event.
func ISOWeek(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindISOWeek, sampling, loc)
}

// Hour returns a node with the hour of every event.
func Hour(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindHour, sampling, loc)
}

// Minute returns a node with the minute of every event.
func Minute(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindMinute, sampling, loc)
}

// Second returns a node with the second of every event.
func Second(sampling *node.Node, loc *time.Location) (*node.Node, error) {
	return apply(KindSecond, sampling, loc)
}

func apply(kind string, sampling *node.Node, loc *time.Location) (*node.Node, error) {
	op, err := New(kind, sampling, loc)
	if err != nil {
		return nil, err
	}
	return op.Output(OutputName), nil
}

// ZoneFromCty reads a timezone attribute: an IANA name or a number of hours
// offset from UTC.
func ZoneFromCty(v cty.Value) (*time.Location, error) {
	if v.IsNull() || !v.IsKnown() {
		return time.UTC, nil
	}
	switch v.Type() {
	case cty.String:
		return LoadZone(v.AsString())
	case cty.Number:
		var hours float64
		if err := gocty.FromCtyValue(v, &hours); err != nil {
			return nil, err
		}
		return FixedZone(hours), nil
	default:
		return nil, fmt.Errorf("timezone must be a string or a number, got %s", v.Type().FriendlyName())
	}
}

func build(kind string) registry.BuildFunc {
	return func(inputs map[string]*node.Node, attrs map[string]cty.Value) (node.Operator, error) {
		loc := time.UTC
		if v, ok := attrs["timezone"]; ok {
			var err error
			if loc, err = ZoneFromCty(v); err != nil {
				return nil, fmt.Errorf("%s: attribute 'timezone': %w", kind, err)
			}
		}
		return New(kind, inputs[InputName], loc)
	}
}

// Register registers the calendar operators with the engine.
func (m *Module) Register(r *registry.Registry) {
	for _, kind := range Kinds() {
		r.RegisterOperator(&registry.Definition{
			Kind:        kind,
			Description: components[kind].description,
			Inputs:      []string{InputName},
			Attributes: map[string]registry.AttributeSpec{
				"timezone": {Type: cty.DynamicPseudoType, Description: "IANA timezone name or offset from UTC in hours. Defaults to UTC."},
			},
			Build: build(kind),
		})
		r.RegisterImplementation(kind, NewImplementation)
	}
}
