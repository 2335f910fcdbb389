package series

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/ChristianF88/carbonx/intensity"
)

// ErrNoData is returned when there is nothing to chart. Callers must show
// an explicit no-data state instead of an empty chart.
var ErrNoData = errors.New("no time series data available")

// RawSample is one half-hour entry as delivered by the API.
// Forecast is nil when the source omitted it.
type RawSample struct {
	From     time.Time
	Forecast *float64
}

// Raw is the unprocessed series for one region
type Raw struct {
	RegionID   int
	RegionName string
	Samples    []RawSample
}

// Sample is a classified point ready for charting
type Sample struct {
	Instant   time.Time          `json:"instant"`
	Intensity float64            `json:"intensity"`
	Category  intensity.Category `json:"category"`
}

// Transform maps raw samples to classified samples sorted by instant.
// Missing forecasts count as 0. The input is not modified.
func Transform(raw []RawSample) []Sample {
	samples := make([]Sample, 0, len(raw))
	for _, r := range raw {
		var value float64
		if r.Forecast != nil {
			value = *r.Forecast
		}
		samples = append(samples, Sample{Instant: r.From, Intensity: value})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Instant.Before(samples[j].Instant)
	})

	for i := range samples {
		samples[i].Category = intensity.Classify(samples[i].Intensity)
	}
	return samples
}

// Domain is a closed value interval for an axis
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min
func (d Domain) Span() float64 {
	return d.Max - d.Min
}

// Chart is a transformed series with its axis domains
type Chart struct {
	Samples []Sample  `json:"samples"`
	Values  Domain    `json:"values"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// NewChart computes axis domains for samples, which must already be sorted
// (as returned by Transform).
func NewChart(samples []Sample) (Chart, error) {
	if len(samples) == 0 {
		return Chart{}, ErrNoData
	}
	return Chart{
		Samples: samples,
		Values:  ValueDomain(samples),
		Start:   samples[0].Instant,
		End:     samples[len(samples)-1].Instant,
	}, nil
}

// ValueDomain returns the [min, max] extent of the intensities. A flat
// series is widened to [0, max(v*1.2, 10)] so it still has a scale.
func ValueDomain(samples []Sample) Domain {
	if len(samples) == 0 {
		return Domain{}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo = math.Min(lo, s.Intensity)
		hi = math.Max(hi, s.Intensity)
	}

	if lo == hi {
		return Domain{Min: 0, Max: math.Max(hi*1.2, 10)}
	}
	return Domain{Min: lo, Max: hi}
}

// Summary holds descriptive statistics of a series
type Summary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Latest Sample  `json:"latest"`
	Count  int     `json:"count"`
}

// Summarize computes statistics over sorted samples. ok is false for an empty series.
func Summarize(samples []Sample) (summary Summary, ok bool) {
	if len(samples) == 0 {
		return Summary{}, false
	}

	summary.Min, summary.Max = math.Inf(1), math.Inf(-1)
	var total float64
	for _, s := range samples {
		summary.Min = math.Min(summary.Min, s.Intensity)
		summary.Max = math.Max(summary.Max, s.Intensity)
		total += s.Intensity
	}
	summary.Count = len(samples)
	summary.Mean = total / float64(len(samples))
	summary.Latest = samples[len(samples)-1]
	return summary, true
}
