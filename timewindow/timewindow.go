package timewindow

import (
	"fmt"
	"time"
)

const (
	// Granularity of the intensity API
	HalfHour = 30 * time.Minute

	// DefaultLookback is the series window shown for a selected region
	DefaultLookback = 24 * time.Hour

	// WireLayout is the only timestamp form the API accepts in request paths
	WireLayout = "2006-01-02T15:04:05Z"
)

// Window is a half-open query range [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// AlignToHalfHour floors t to the enclosing half hour in UTC.
// Minutes below 30 become :00, everything else :30; seconds and
// sub-second precision are dropped.
func AlignToHalfHour(t time.Time) time.Time {
	// Truncate works on absolute time, so the result is aligned in UTC
	// regardless of the zone t carries.
	return t.UTC().Truncate(HalfHour)
}

// PointWindow returns the half-hour slot containing t
func PointWindow(t time.Time) Window {
	start := AlignToHalfHour(t)
	return Window{Start: start, End: start.Add(HalfHour)}
}

// RangeWindow returns the window of length d ending at end, truncated to whole seconds
func RangeWindow(end time.Time, d time.Duration) Window {
	end = end.UTC().Truncate(time.Second)
	return Window{
		Start: end.Add(-d).Truncate(time.Second),
		End:   end,
	}
}

// Format renders t in the wire layout (UTC, second precision, literal Z)
func Format(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// FromISO returns the window start in wire format
func (w Window) FromISO() string {
	return Format(w.Start)
}

// ToISO returns the window end in wire format
func (w Window) ToISO() string {
	return Format(w.End)
}

// Duration returns the length of the window
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside [Start, End)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s/%s", w.FromISO(), w.ToISO())
}

// ParseLocal parses a user supplied instant. Inputs without an explicit
// offset are interpreted in loc.
func ParseLocal(input string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}

	formats := []string{
		"2006-01-02 15:04", // full datetime
		"2006-01-02T15:04", // datetime-local form input
		"2006-01-02 15",    // date + hour
		"2006-01-02",       // just date
	}

	for _, layout := range formats {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", input)
}
