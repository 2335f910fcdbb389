package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/series"
)

// Response shapes of the regional endpoints. Pointers mark fields whose
// absence must be detected.

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type snapshotPayload struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Regions *[]regionPayload `json:"regions"`
}

type regionPayload struct {
	RegionID      *int               `json:"regionid"`
	ShortName     string             `json:"shortname"`
	DNORegion     string             `json:"dnoregion"`
	Intensity     *intensityPayload  `json:"intensity"`
	GenerationMix []fuelSharePayload `json:"generationmix"`
}

type intensityPayload struct {
	Forecast *float64 `json:"forecast"`
	Index    string   `json:"index"`
}

type fuelSharePayload struct {
	Fuel string  `json:"fuel"`
	Perc float64 `json:"perc"`
}

type seriesPayload struct {
	RegionID  int             `json:"regionid"`
	ShortName string          `json:"shortname"`
	Data      json.RawMessage `json:"data"`
}

type samplePayload struct {
	From      string            `json:"from"`
	Intensity *intensityPayload `json:"intensity"`
}

// API timestamps usually omit seconds ("2024-01-01T10:30Z")
var apiTimeLayouts = []string{
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
}

func parseAPITime(s string) (time.Time, error) {
	for _, layout := range apiTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeSnapshots extracts the snapshot collection of a regional response
func decodeSnapshots(op string, env envelope) ([]snapshotPayload, error) {
	if isAbsent(env.Data) {
		return nil, &DataFormatError{Op: op, Reason: "missing data collection"}
	}
	var snapshots []snapshotPayload
	if err := json.Unmarshal(env.Data, &snapshots); err != nil {
		return nil, &DataFormatError{Op: op, Reason: "data is not a snapshot list", Err: err}
	}
	return snapshots, nil
}

// toSnapshot validates a snapshot payload and converts it into the domain type
func toSnapshot(op string, p snapshotPayload) (intensity.Snapshot, error) {
	if p.Regions == nil {
		return intensity.Snapshot{}, &DataFormatError{Op: op, Reason: "snapshot without regions"}
	}

	var from, to time.Time
	var err error
	if p.From != "" {
		if from, err = parseAPITime(p.From); err != nil {
			return intensity.Snapshot{}, &DataFormatError{Op: op, Reason: "snapshot start", Err: err}
		}
	}
	if p.To != "" {
		if to, err = parseAPITime(p.To); err != nil {
			return intensity.Snapshot{}, &DataFormatError{Op: op, Reason: "snapshot end", Err: err}
		}
	}

	readings := make([]intensity.Reading, 0, len(*p.Regions))
	for i, r := range *p.Regions {
		if r.RegionID == nil {
			return intensity.Snapshot{}, &DataFormatError{Op: op, Reason: fmt.Sprintf("region %d has no regionid", i)}
		}
		if r.Intensity == nil {
			return intensity.Snapshot{}, &DataFormatError{Op: op, Reason: fmt.Sprintf("region %d has no intensity", *r.RegionID)}
		}

		reading := intensity.Reading{
			RegionID:   *r.RegionID,
			RegionName: r.ShortName,
			DNORegion:  r.DNORegion,
		}
		if r.Intensity.Forecast != nil {
			reading.Forecast = *r.Intensity.Forecast
		}
		for _, f := range r.GenerationMix {
			reading.GenerationMix = append(reading.GenerationMix, intensity.FuelShare{Fuel: f.Fuel, Percentage: f.Perc})
		}
		readings = append(readings, reading)
	}

	return intensity.NewSnapshot(from, to, readings), nil
}

// toSeries validates the single-region series payload
func toSeries(op string, env envelope) (series.Raw, error) {
	if isAbsent(env.Data) {
		return series.Raw{}, &DataFormatError{Op: op, Reason: "missing data object"}
	}

	var p seriesPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return series.Raw{}, &DataFormatError{Op: op, Reason: "data is not a region series", Err: err}
	}
	if isAbsent(p.Data) {
		return series.Raw{}, &DataFormatError{Op: op, Reason: "missing data.data collection"}
	}

	var samples []samplePayload
	if err := json.Unmarshal(p.Data, &samples); err != nil {
		return series.Raw{}, &DataFormatError{Op: op, Reason: "data.data is not a sample list", Err: err}
	}

	raw := series.Raw{
		RegionID:   p.RegionID,
		RegionName: p.ShortName,
		Samples:    make([]series.RawSample, 0, len(samples)),
	}
	for _, s := range samples {
		from, err := parseAPITime(s.From)
		if err != nil {
			return series.Raw{}, &DataFormatError{Op: op, Reason: "sample start", Err: err}
		}
		sample := series.RawSample{From: from}
		if s.Intensity != nil && s.Intensity.Forecast != nil {
			v := *s.Intensity.Forecast
			sample.Forecast = &v
		}
		raw.Samples = append(raw.Samples, sample)
	}
	return raw, nil
}
