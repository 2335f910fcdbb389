package output

import (
	"sync"

	"github.com/ChristianF88/carbonx/controller"
	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/regions"
)

// Collector is a headless set of surfaces that records everything the
// controller draws into a Report.
type Collector struct {
	report *Report

	mu       sync.Mutex
	selected int
	markers  int
}

func NewCollector(r *Report) *Collector {
	return &Collector{report: r}
}

func (c *Collector) ReplaceMarkers(markers []controller.Marker, _ controller.SelectFunc) {
	c.mu.Lock()
	c.markers = len(markers)
	c.mu.Unlock()

	c.report.SetSnapshot(SnapshotSection{Regions: RegionsFromMarkers(markers)})
}

func (c *Collector) ShowDetail(d controller.Detail) {
	c.mu.Lock()
	c.selected = d.RegionID
	c.mu.Unlock()

	c.report.SetSelected(RegionResult{
		RegionID:   d.RegionID,
		Name:       d.RegionName,
		DNORegion:  d.DNORegion,
		Intensity:  d.Intensity,
		Category:   d.Category,
		Color:      d.Color,
		Coordinate: regions.CoordinatesFor(d.RegionID),
		Mix:        d.Mix,
	})
}

func (c *Collector) RenderChart(view controller.ChartView) {
	c.report.AddSeries(SeriesFromView(view))
}

func (c *Collector) RenderEmpty(title, message string) {
	c.mu.Lock()
	id := c.selected
	c.mu.Unlock()

	status := SeriesNoData
	if message == controller.SeriesErrorMessage {
		status = SeriesError
	}
	c.report.AddSeries(EmptySeries(id, title, status, message))
}

// Finish stamps the map section with the window of the applied snapshot
func (c *Collector) Finish(snap intensity.Snapshot) {
	c.mu.Lock()
	drawn := c.markers
	c.mu.Unlock()

	c.report.mu.Lock()
	defer c.report.mu.Unlock()
	if c.report.Snapshot == nil {
		return
	}
	c.report.Snapshot.Window = TimeRange{Start: snap.From, End: snap.To}
	c.report.Snapshot.Excluded = snap.Len() - drawn
}

// RegionsFromMarkers converts map markers into report entries
func RegionsFromMarkers(markers []controller.Marker) []RegionResult {
	out := make([]RegionResult, len(markers))
	for i, m := range markers {
		out[i] = RegionResult{
			RegionID:   m.RegionID,
			Name:       m.Name,
			Intensity:  m.Intensity,
			Category:   m.Category,
			Color:      m.FillColor,
			Coordinate: m.Coordinate,
			Popup:      m.PopupText,
		}
	}
	return out
}

// SeriesFromView converts a rendered chart into a report section
func SeriesFromView(view controller.ChartView) SeriesSection {
	points := make([]SeriesPoint, len(view.Points))
	for i, p := range view.Points {
		points[i] = SeriesPoint{
			Instant:   p.Instant,
			Intensity: p.Intensity,
			Category:  p.Category,
			Color:     p.Color,
		}
	}
	values := view.Values
	summary := view.Summary
	return SeriesSection{
		RegionID: view.RegionID,
		Title:    view.Title,
		Status:   SeriesOK,
		Window:   &TimeRange{Start: view.Start, End: view.End},
		Values:   &values,
		Summary:  &summary,
		Points:   points,
	}
}

// EmptySeries is a chart section without points
func EmptySeries(regionID int, title, status, message string) SeriesSection {
	return SeriesSection{
		RegionID: regionID,
		Title:    title,
		Status:   status,
		Message:  message,
		Points:   []SeriesPoint{},
	}
}
