package release

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoDate          = errors.New("no release date")
	ErrUnparseableDate = errors.New("unparseable release date")
)

// Precision says how much of a Date was actually given by the store.
type Precision int

const (
	PrecisionUnknown Precision = iota
	PrecisionYear
	PrecisionMonth
	PrecisionDay
)

func (p Precision) String() string {
	switch p {
	case PrecisionYear:
		return "year"
	case PrecisionMonth:
		return "month"
	case PrecisionDay:
		return "day"
	default:
		return "unknown"
	}
}

// Date is a release date as the store reported it. It is parsed (Precision set),
// raw (only Raw set) or absent.
type Date struct {
	Time      time.Time
	Raw       string
	Precision Precision
}

type dateLayout struct {
	layout    string
	precision Precision
}

// Tried in order; the store switches between these depending on region and
// how certain the publisher is.
var dateLayouts = []dateLayout{
	{"2 Jan, 2006", PrecisionDay},
	{"Jan 2, 2006", PrecisionDay},
	{"January 2, 2006", PrecisionDay},
	{"2 January, 2006", PrecisionDay},
	{"2006-01-02", PrecisionDay},
	{"Jan 2006", PrecisionMonth},
	{"January 2006", PrecisionMonth},
	{"2006", PrecisionYear},
}

// ParseDate turns the store's date text into a Date. Text matching none of the
// known layouts is kept as a raw Date.
func ParseDate(raw string) Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l.layout, raw); err == nil {
			return Date{Time: t, Raw: raw, Precision: l.precision}
		}
	}
	return Date{Raw: raw}
}

// DayDate builds a day-precision Date.
func DayDate(t time.Time) Date {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Date{Time: t, Raw: t.Format("2006-01-02"), Precision: PrecisionDay}
}

// Known reports whether the date was parsed.
func (d Date) Known() bool {
	return d.Precision != PrecisionUnknown && !d.Time.IsZero()
}

// Absent reports whether the store gave no date at all.
func (d Date) Absent() bool {
	return !d.Known() && d.Raw == ""
}

func (d Date) String() string {
	switch {
	case d.Known() && d.Precision == PrecisionDay:
		return d.Time.Format("January 02, 2006")
	case d.Known() && d.Precision == PrecisionMonth:
		return d.Time.Format("January 2006")
	case d.Known():
		return d.Time.Format("2006")
	case d.Raw != "":
		return d.Raw
	default:
		return "Unknown date"
	}
}

// EventDate returns the day a calendar event should be placed on. A raw date
// made of exactly four digits is read as January 1 of that year.
func EventDate(d Date) (time.Time, error) {
	if d.Known() {
		return d.Time, nil
	}
	if d.Raw == "" {
		return time.Time{}, ErrNoDate
	}
	if len(d.Raw) == 4 {
		if year, err := strconv.Atoi(d.Raw); err == nil && year > 0 {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrUnparseableDate
}
