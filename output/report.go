package output

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/regions"
	"github.com/ChristianF88/carbonx/series"
)

// Report is the complete output of one command run
type Report struct {
	Metadata Metadata         `json:"metadata"`
	Snapshot *SnapshotSection `json:"snapshot,omitempty"`
	Selected *RegionResult    `json:"selected,omitempty"`
	Series   []SeriesSection  `json:"series,omitempty"`
	Legend   []LegendEntry    `json:"legend"`
	Warnings []Warning        `json:"warnings"`
	Errors   []Error          `json:"errors"`

	// Mutex for thread-safe appending from concurrent fetches
	mu sync.Mutex `json:"-"`
}

// Metadata contains information about the run
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	ReportType  string    `json:"report_type"`
	Version     string    `json:"version"`
	DurationMS  int64     `json:"duration_ms"`
	Source      string    `json:"source,omitempty"`
}

// TimeRange represents a query window
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SnapshotSection describes the regional map of one half hour
type SnapshotSection struct {
	Window   TimeRange      `json:"window"`
	Regions  []RegionResult `json:"regions"`
	Excluded int            `json:"excluded_aggregates"`
}

// RegionResult is one region as drawn on the map
type RegionResult struct {
	RegionID   int                   `json:"region_id"`
	Name       string                `json:"name"`
	DNORegion  string                `json:"dno_region,omitempty"`
	Intensity  float64               `json:"intensity"`
	Category   intensity.Category    `json:"category"`
	Color      string                `json:"color"`
	Coordinate regions.Coordinate    `json:"coordinate"`
	Popup      string                `json:"popup,omitempty"`
	Mix        []intensity.FuelShare `json:"generation_mix,omitempty"`
}

// Series section states
const (
	SeriesOK     = "ok"
	SeriesNoData = "no-data"
	SeriesError  = "error"
)

// SeriesSection is the chart of one region
type SeriesSection struct {
	RegionID int             `json:"region_id"`
	Title    string          `json:"title"`
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Window   *TimeRange      `json:"window,omitempty"`
	Values   *series.Domain  `json:"values,omitempty"`
	Summary  *series.Summary `json:"summary,omitempty"`
	Points   []SeriesPoint   `json:"points"`
}

// SeriesPoint is one plotted sample
type SeriesPoint struct {
	Instant   time.Time          `json:"instant"`
	Intensity float64            `json:"intensity"`
	Category  intensity.Category `json:"category"`
	Color     string             `json:"color"`
}

// LegendEntry explains one colour of the map
type LegendEntry struct {
	Category intensity.Category `json:"category"`
	Label    string             `json:"label"`
	Range    string             `json:"range"`
	Color    string             `json:"color"`
}

// Warning represents a warning message
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Error represents an error message
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// NewReport creates a Report with default metadata and the category legend
func NewReport(reportType, version string, startTime time.Time) *Report {
	return &Report{
		Metadata: Metadata{
			GeneratedAt: time.Now().UTC(),
			ReportType:  reportType,
			Version:     version,
			DurationMS:  time.Since(startTime).Milliseconds(),
		},
		Legend:   Legend(),
		Warnings: []Warning{},
		Errors:   []Error{},
	}
}

// Legend lists every category with its range and colour
func Legend() []LegendEntry {
	cats := intensity.Categories()
	entries := make([]LegendEntry, len(cats))
	for i, c := range cats {
		entries[i] = LegendEntry{
			Category: c,
			Label:    c.Label(),
			Range:    c.RangeText(),
			Color:    c.Color(),
		}
	}
	return entries
}

// ToJSON converts the report to pretty-printed JSON
func (r *Report) ToJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.MarshalIndent(r, "", "  ")
}

// ToCompactJSON converts the report to compact JSON
func (r *Report) ToCompactJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(r)
}

// AddWarning adds a warning to the report (thread-safe)
func (r *Report) AddWarning(warningType, message string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, Warning{
		Type:    warningType,
		Message: message,
		Count:   count,
	})
}

// AddError adds an error to the report (thread-safe)
func (r *Report) AddError(errorType, message string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, Error{
		Type:    errorType,
		Message: message,
		Count:   count,
	})
}

// AddSeries appends a chart section (thread-safe)
func (r *Report) AddSeries(section SeriesSection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Series = append(r.Series, section)
}

// SetSnapshot replaces the map section (thread-safe)
func (r *Report) SetSnapshot(section SnapshotSection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Snapshot = &section
}

// SetSelected records the detail of the selected region (thread-safe)
func (r *Report) SetSelected(region RegionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Selected = &region
}

// UpdateDuration updates the duration in metadata
func (r *Report) UpdateDuration(startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Metadata.DurationMS = time.Since(startTime).Milliseconds()
}
