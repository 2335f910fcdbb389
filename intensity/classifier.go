package intensity

import (
	"fmt"
	"math"
)

// Category is a discrete intensity band used for colouring markers and chart points
type Category int

const (
	VeryLow Category = iota
	Low
	Moderate
	High
	VeryHigh
)

type band struct {
	upper float64 // inclusive; +Inf for the last band
	id    string
	label string
	color string
}

var bands = [...]band{
	VeryLow:  {upper: 50, id: "very-low", label: "Very Low", color: "#00ff00"},
	Low:      {upper: 100, id: "low", label: "Low", color: "#90ee90"},
	Moderate: {upper: 200, id: "moderate", label: "Moderate", color: "#ffa500"},
	High:     {upper: 300, id: "high", label: "High", color: "#ff6b6b"},
	VeryHigh: {upper: math.Inf(1), id: "very-high", label: "Very High", color: "#dc143c"},
}

// Classify maps an intensity in gCO₂/kWh to its category.
// Bounds are inclusive, so a value on a boundary belongs to the lower band.
func Classify(value float64) Category {
	for c := VeryLow; c < VeryHigh; c++ {
		if value <= bands[c].upper {
			return c
		}
	}
	return VeryHigh
}

// Categories returns every category in ascending order
func Categories() []Category {
	return []Category{VeryLow, Low, Moderate, High, VeryHigh}
}

func (c Category) valid() bool {
	return c >= VeryLow && c <= VeryHigh
}

// String returns the hyphenated identifier, e.g. "very-low"
func (c Category) String() string {
	if !c.valid() {
		return "unknown"
	}
	return bands[c].id
}

// Label returns the human readable name, e.g. "Very Low"
func (c Category) Label() string {
	if !c.valid() {
		return "Unknown"
	}
	return bands[c].label
}

// Color returns the hex fill colour for the category
func (c Category) Color() string {
	if !c.valid() {
		return "#808080"
	}
	return bands[c].color
}

// UpperBound returns the inclusive upper bound. ok is false for VeryHigh.
func (c Category) UpperBound() (bound float64, ok bool) {
	if !c.valid() || c == VeryHigh {
		return 0, false
	}
	return bands[c].upper, true
}

// RangeText describes the band for legends, e.g. "≤100 gCO₂/kWh". Read
// in category order the bands are contiguous: each covers everything above
// the previous bound up to and including its own.
func (c Category) RangeText() string {
	if !c.valid() {
		return ""
	}
	if c == VeryHigh {
		return fmt.Sprintf(">%g gCO₂/kWh", bands[High].upper)
	}
	return fmt.Sprintf("≤%g gCO₂/kWh", bands[c].upper)
}

// MarshalText lets categories appear by name in JSON output
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCategory is the inverse of Category.String
func ParseCategory(s string) (Category, error) {
	for c := VeryLow; c <= VeryHigh; c++ {
		if bands[c].id == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown intensity category %q", s)
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
