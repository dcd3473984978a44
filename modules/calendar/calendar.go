// Package calendar implements the calendar operators. Each one reads the
// timestamps of its input as unix times and emits one int64 feature holding
// a calendar component (year, month, hour, ...) at every event.
package calendar

import (
	"fmt"
	"math"
	"time"
	_ "time/tzdata"

	"github.com/vk/eventflow/internal/dtype"
	"github.com/vk/eventflow/internal/node"
	"github.com/vk/eventflow/internal/operator"
)

const (
	KindYear       = "calendar_year"
	KindMonth      = "calendar_month"
	KindDayOfMonth = "calendar_day_of_month"
	KindDayOfWeek  = "calendar_day_of_week"
	KindDayOfYear  = "calendar_day_of_year"
	KindISOWeek    = "calendar_iso_week"
	KindHour       = "calendar_hour"
	KindMinute     = "calendar_minute"
	KindSecond     = "calendar_second"
)

const (
	InputName  = "sampling"
	OutputName = "output"
)

// component extracts one calendar field from a time.
type component struct {
	description string
	extract     func(t time.Time) int64
}

var components = map[string]component{
	KindYear: {
		description: "Year of each timestamp.",
		extract:     func(t time.Time) int64 { return int64(t.Year()) },
	},
	KindMonth: {
		description: "Month of each timestamp, from 1 (January) to 12.",
		extract:     func(t time.Time) int64 { return int64(t.Month()) },
	},
	KindDayOfMonth: {
		description: "Day of the month of each timestamp, from 1.",
		extract:     func(t time.Time) int64 { return int64(t.Day()) },
	},
	KindDayOfWeek: {
		description: "Day of the week of each timestamp, from 0 (Monday) to 6 (Sunday).",
		extract:     func(t time.Time) int64 { return int64((t.Weekday() + 6) % 7) },
	},
	KindDayOfYear: {
		description: "Day of the year of each timestamp, from 1.",
		extract:     func(t time.Time) int64 { return int64(t.YearDay()) },
	},
	KindISOWeek: {
		description: "ISO 8601 week number of each timestamp, from 1 to 53.",
		extract: func(t time.Time) int64 {
			_, w := t.ISOWeek()
			return int64(w)
		},
	},
	KindHour: {
		description: "Hour of each timestamp, from 0 to 23.",
		extract:     func(t time.Time) int64 { return int64(t.Hour()) },
	},
	KindMinute: {
		description: "Minute of each timestamp, from 0 to 59.",
		extract:     func(t time.Time) int64 { return int64(t.Minute()) },
	},
	KindSecond: {
		description: "Second of each timestamp, from 0 to 59.",
		extract:     func(t time.Time) int64 { return int64(t.Second()) },
	},
}

// Kinds returns the operator kinds of the family.
func Kinds() []string {
	return []string{KindYear, KindMonth, KindDayOfMonth, KindDayOfWeek, KindDayOfYear, KindISOWeek, KindHour, KindMinute, KindSecond}
}

// Operator computes one calendar component from its input's timestamps.
type Operator struct {
	operator.Base
	loc *time.Location
}

// New builds a calendar operator of the given kind. The input must carry
// unix timestamps; its features are ignored. A nil location means UTC.
func New(kind string, sampling *node.Node, loc *time.Location) (*Operator, error) {
	if _, ok := components[kind]; !ok {
		return nil, operator.SchemaErrorf(kind, "not a calendar operator")
	}
	if sampling == nil {
		return nil, operator.SchemaErrorf(kind, "input is required")
	}
	if !sampling.Sampling().IsUnixTimestamp() {
		return nil, operator.SchemaErrorf(kind, "input timestamps are not unix timestamps; build the input with unix timestamps to use calendar operators")
	}
	if loc == nil {
		loc = time.UTC
	}

	op := &Operator{Base: operator.NewBase(kind), loc: loc}
	op.AddInput(InputName, sampling)
	op.SetAttribute("timezone", loc.String())
	op.AddOutput(OutputName, node.New([]node.Feature{{Name: kind, DType: dtype.Int64}}, sampling.Sampling(), op))
	return op, nil
}

// Location returns the time zone the components are computed in.
func (o *Operator) Location() *time.Location { return o.loc }

// FixedZone returns a location offset from UTC by a number of hours.
// Fractional hours are rounded to the second.
func FixedZone(hours float64) *time.Location {
	offset := int(math.Round(hours * 3600))
	return time.FixedZone(fmt.Sprintf("UTC%+g", hours), offset)
}

// LoadZone resolves an IANA time zone name.
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q, only names defined in the IANA timezone database are valid: %w", name, err)
	}
	return loc, nil
}

// unixTime converts fractional unix seconds to a time in loc.
func unixTime(ts float64, loc *time.Location) time.Time {
	sec, frac := math.Modf(ts)
	if frac < 0 {
		sec--
		frac++
	}
	return time.Unix(int64(sec), int64(frac*1e9)).In(loc)
}
