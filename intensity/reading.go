package intensity

import (
	"sort"
	"strings"
)

// Unit is appended to every displayed intensity
const Unit = "gCO₂/kWh"

// FuelShare is one entry of a generation mix
type FuelShare struct {
	Fuel       string  `json:"fuel"`
	Percentage float64 `json:"perc"`
}

// Reading is the forecast for one region in one snapshot
type Reading struct {
	RegionID      int         `json:"regionid"`
	RegionName    string      `json:"shortname"`
	DNORegion     string      `json:"dnoregion"`
	Forecast      float64     `json:"forecast"`
	GenerationMix []FuelShare `json:"generationmix"`
}

// Category classifies the reading's forecast
func (r Reading) Category() Category {
	return Classify(r.Forecast)
}

// DisplayMix returns the non-zero fuels, largest share first, with
// capitalised fuel names. The reading itself is not modified.
func (r Reading) DisplayMix() []FuelShare {
	mix := make([]FuelShare, 0, len(r.GenerationMix))
	for _, f := range r.GenerationMix {
		if f.Percentage <= 0 {
			continue
		}
		mix = append(mix, FuelShare{Fuel: capitalize(f.Fuel), Percentage: f.Percentage})
	}
	sort.SliceStable(mix, func(i, j int) bool {
		return mix[i].Percentage > mix[j].Percentage
	})
	return mix
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
