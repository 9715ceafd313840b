package reports

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

// WindowKind names a calendar window relative to a reference date.
type WindowKind string

const (
	Today     WindowKind = "today"
	ThisWeek  WindowKind = "this_week"
	ThisMonth WindowKind = "this_month"
	ThisYear  WindowKind = "this_year"
)

// WindowKinds lists every window in display order.
var WindowKinds = []WindowKind{Today, ThisWeek, ThisMonth, ThisYear}

// Label is the heading shown in reports.
func (k WindowKind) Label() string {
	switch k {
	case Today:
		return "Today"
	case ThisWeek:
		return "This week"
	case ThisMonth:
		return "This month"
	case ThisYear:
		return "This year"
	default:
		return string(k)
	}
}

// ParseWindowKind validates a window name from a query string.
func ParseWindowKind(raw string) (WindowKind, error) {
	for _, k := range WindowKinds {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", ledger.Invalid("unknown window %q", raw)
}

// Window is an inclusive range of calendar dates. Start and End are civil
// dates carried as midnight UTC, like ledger dates.
type Window struct {
	Kind  WindowKind `json:"kind"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// Resolve computes the window of kind containing ref's calendar date in loc.
// Weeks run Monday to Sunday.
func Resolve(kind WindowKind, ref time.Time, loc *time.Location) (Window, error) {
	day := ledger.DateOf(ref, loc)
	y, m, _ := day.Date()
	w := Window{Kind: kind}
	switch kind {
	case Today:
		w.Start, w.End = day, day
	case ThisWeek:
		offset := (int(day.Weekday()) + 6) % 7
		w.Start = day.AddDate(0, 0, -offset)
		w.End = w.Start.AddDate(0, 0, 6)
	case ThisMonth:
		w.Start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		w.End = w.Start.AddDate(0, 1, -1)
	case ThisYear:
		w.Start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		w.End = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		return Window{}, fmt.Errorf("reports: resolve window: %w", ledger.Invalid("unknown window %q", kind))
	}
	return w, nil
}

// MustResolve is Resolve for the predeclared kinds.
func MustResolve(kind WindowKind, ref time.Time, loc *time.Location) Window {
	w, err := Resolve(kind, ref, loc)
	if err != nil {
		panic(err)
	}
	return w
}

// Contains reports whether the calendar date of d lies in the window.
func (w Window) Contains(d time.Time) bool {
	day := ledger.DateOf(d, time.UTC)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Filter converts the window into a ledger query filter.
func (w Window) Filter() ledger.Filter {
	return ledger.Filter{From: w.Start, To: w.End}
}

func (w Window) String() string {
	if w.Start.Equal(w.End) {
		return w.Start.Format("2006-01-02")
	}
	return w.Start.Format("2006-01-02") + " to " + w.End.Format("2006-01-02")
}
