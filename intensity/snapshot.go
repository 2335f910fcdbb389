package intensity

import (
	"sort"
	"time"

	"github.com/alphadose/haxmap"
)

// Snapshot is the set of regional readings for one half-hour slot.
// It is immutable once built and safe for concurrent readers.
type Snapshot struct {
	From time.Time
	To   time.Time

	readings []Reading
	byRegion *haxmap.Map[int, Reading]
}

// NewSnapshot copies readings into a new snapshot ordered by region id.
// When a region id appears more than once only the last reading is kept.
func NewSnapshot(from, to time.Time, readings []Reading) Snapshot {
	index := haxmap.New[int, Reading](uintptr(len(readings) + 1))
	for _, r := range readings {
		index.Set(r.RegionID, r)
	}

	sorted := make([]Reading, 0, index.Len())
	index.ForEach(func(_ int, r Reading) bool {
		sorted = append(sorted, r)
		return true
	})
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RegionID < sorted[j].RegionID
	})

	return Snapshot{
		From:     from,
		To:       to,
		readings: sorted,
		byRegion: index,
	}
}

// Readings returns a copy of all readings in region id order
func (s Snapshot) Readings() []Reading {
	out := make([]Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// Reading looks up a region by id
func (s Snapshot) Reading(regionID int) (Reading, bool) {
	if s.byRegion == nil {
		return Reading{}, false
	}
	return s.byRegion.Get(regionID)
}

// Len returns the number of readings
func (s Snapshot) Len() int {
	return len(s.readings)
}

// Empty reports whether the snapshot carries no readings
func (s Snapshot) Empty() bool {
	return len(s.readings) == 0
}
