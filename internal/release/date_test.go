package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      time.Time
		precision Precision
	}{
		{"day abbreviated month comma", "25 Dec, 2023", day(2023, time.December, 25), PrecisionDay},
		{"abbreviated month day", "Dec 25, 2023", day(2023, time.December, 25), PrecisionDay},
		{"full month day", "December 25, 2023", day(2023, time.December, 25), PrecisionDay},
		{"day full month", "25 December, 2023", day(2023, time.December, 25), PrecisionDay},
		{"iso", "2023-12-25", day(2023, time.December, 25), PrecisionDay},
		{"single digit day", "5 Mar, 2024", day(2024, time.March, 5), PrecisionDay},
		{"abbreviated month year", "Dec 2023", day(2023, time.December, 1), PrecisionMonth},
		{"full month year", "December 2023", day(2023, time.December, 1), PrecisionMonth},
		{"year only", "2026", day(2026, time.January, 1), PrecisionYear},
		{"surrounding whitespace", "  Oct 1, 2025 ", day(2025, time.October, 1), PrecisionDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDate(tt.raw)
			require.True(t, d.Known())
			assert.Equal(t, tt.want, d.Time)
			assert.Equal(t, tt.precision, d.Precision)
		})
	}
}

func TestParseDate_Unparseable(t *testing.T) {
	for _, raw := range []string{"Coming soon", "Q3 2025", "To be announced"} {
		d := ParseDate(raw)
		assert.False(t, d.Known(), raw)
		assert.False(t, d.Absent(), raw)
		assert.Equal(t, raw, d.Raw)
		assert.Equal(t, raw, d.String())
	}
}

func TestParseDate_Empty(t *testing.T) {
	d := ParseDate("   ")
	assert.True(t, d.Absent())
	assert.Equal(t, "Unknown date", d.String())
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "December 05, 2023", ParseDate("5 Dec, 2023").String())
	assert.Equal(t, "March 2024", ParseDate("Mar 2024").String())
	assert.Equal(t, "2027", ParseDate("2027").String())
}

func TestEventDate(t *testing.T) {
	got, err := EventDate(ParseDate("Feb 14, 2025"))
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.February, 14), got)

	got, err = EventDate(Date{Raw: "2028"})
	require.NoError(t, err)
	assert.Equal(t, day(2028, time.January, 1), got)

	_, err = EventDate(Date{})
	assert.ErrorIs(t, err, ErrNoDate)

	_, err = EventDate(Date{Raw: "Coming soon"})
	assert.ErrorIs(t, err, ErrUnparseableDate)

	_, err = EventDate(Date{Raw: "20xx"})
	assert.ErrorIs(t, err, ErrUnparseableDate)
}

func TestDayDate(t *testing.T) {
	d := DayDate(time.Date(2025, time.June, 3, 17, 45, 0, 0, time.FixedZone("X", 3600)))
	assert.Equal(t, day(2025, time.June, 3), d.Time)
	assert.Equal(t, PrecisionDay, d.Precision)
	assert.Equal(t, "2025-06-03", d.Raw)
}

func TestStoreURL(t *testing.T) {
	assert.Equal(t, "https://store.steampowered.com/app/1145350", StoreURL(1145350))
	assert.Equal(t, StoreURL(10), Info{AppID: 10}.StoreURL())
}
