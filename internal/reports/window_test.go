package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

func TestResolveWindows(t *testing.T) {
	// Wednesday.
	ref := time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		kind       WindowKind
		start, end time.Time
	}{
		{Today, day(2024, 2, 14), day(2024, 2, 14)},
		{ThisWeek, day(2024, 2, 12), day(2024, 2, 18)},
		{ThisMonth, day(2024, 2, 1), day(2024, 2, 29)},
		{ThisYear, day(2024, 1, 1), day(2024, 12, 31)},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			w, err := Resolve(tc.kind, ref, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tc.start, w.Start)
			assert.Equal(t, tc.end, w.End)
		})
	}
}

func TestResolveWeekOnSundayAndMonday(t *testing.T) {
	sunday := MustResolve(ThisWeek, time.Date(2024, 2, 18, 12, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, day(2024, 2, 12), sunday.Start)
	assert.Equal(t, day(2024, 2, 18), sunday.End)

	monday := MustResolve(ThisWeek, time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, day(2024, 2, 19), monday.Start)
	assert.Equal(t, day(2024, 2, 25), monday.End)
}

func TestResolveUsesLocation(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	// 22:00 UTC on 31 Dec is already 1 Jan in UTC+3.
	ref := time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC)

	w := MustResolve(ThisYear, ref, eat)
	assert.Equal(t, day(2024, 1, 1), w.Start)

	today := MustResolve(Today, ref, eat)
	assert.True(t, today.Contains(day(2024, 1, 1)))
	assert.False(t, today.Contains(day(2023, 12, 31)))
}

func TestWindowBoundsInclusive(t *testing.T) {
	w := MustResolve(ThisMonth, day(2024, 4, 10), time.UTC)
	assert.True(t, w.Contains(day(2024, 4, 1)))
	assert.True(t, w.Contains(day(2024, 4, 30)))
	assert.False(t, w.Contains(day(2024, 5, 1)))
	assert.False(t, w.Contains(day(2024, 3, 31)))
}

func TestParseWindowKind(t *testing.T) {
	k, err := ParseWindowKind("this_week")
	require.NoError(t, err)
	assert.Equal(t, ThisWeek, k)

	_, err = ParseWindowKind("fortnight")
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = Resolve("fortnight", day(2024, 1, 1), time.UTC)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
}
