package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

func TestDisplay(t *testing.T) {
	ts := time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "14/2/2025, 3:30:00 PM", Display(ts, ist))

	midnight := time.Date(2025, 2, 13, 18, 30, 5, 0, time.UTC)
	assert.Equal(t, "14/2/2025, 12:00:05 AM", Display(midnight, ist))
}

func TestISO(t *testing.T) {
	ts := time.Date(2025, 2, 14, 15, 30, 0, 0, ist)
	assert.Equal(t, "2025-02-14T10:00:00.000Z", ISO(ts))
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-02-14T10:00:00.000Z", time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-02-14T15:30:00+05:30", time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-02-14T15:30", time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)},
		{"2025-02-14", time.Date(2025, 2, 13, 18, 30, 0, 0, time.UTC)},
		{" 2025-02-14 15:30:00 ", time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in, ist)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := Parse("yesterday", ist)
	assert.Error(t, err)
	_, err = Parse("  ", ist)
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	// 20:00 UTC on the 13th is already the 14th in IST.
	start, end := DayBounds(time.Date(2025, 2, 13, 20, 0, 0, 0, time.UTC), ist)
	assert.Equal(t, time.Date(2025, 2, 13, 18, 30, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 14, 18, 30, 0, 0, time.UTC), end)
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}
