package controller

import (
	"context"
	"time"

	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/regions"
	"github.com/ChristianF88/carbonx/series"
)

// MarkerRadius is the display radius of every region marker
const MarkerRadius = 15

// Marker describes one region on the map
type Marker struct {
	RegionID   int                `json:"regionId"`
	Name       string             `json:"name"`
	Coordinate regions.Coordinate `json:"coordinate"`
	FillColor  string             `json:"fillColor"`
	Radius     int                `json:"radius"`
	PopupText  string             `json:"popupText"`
	Tooltip    string             `json:"tooltip"`
	Intensity  float64            `json:"intensity"`
	Category   intensity.Category `json:"category"`
}

// SelectFunc is invoked by a map surface when the user activates a marker
type SelectFunc func(ctx context.Context, regionID int) error

// MapSurface shows the marker set. Every call replaces all markers.
// Implementations must not call onSelect synchronously from ReplaceMarkers.
type MapSurface interface {
	ReplaceMarkers(markers []Marker, onSelect SelectFunc)
}

// ChartPoint is one plotted sample
type ChartPoint struct {
	Instant   time.Time          `json:"instant"`
	Intensity float64            `json:"intensity"`
	Category  intensity.Category `json:"category"`
	Color     string             `json:"color"`
}

// ChartView is everything a chart surface needs to draw a series
type ChartView struct {
	Title    string         `json:"title"`
	RegionID int            `json:"regionId"`
	Points   []ChartPoint   `json:"points"`
	Values   series.Domain  `json:"values"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Summary  series.Summary `json:"summary"`
}

// ChartSurface draws a series or an explicit empty state
type ChartSurface interface {
	RenderChart(view ChartView)
	RenderEmpty(title, message string)
}

// Detail is the information shown for the selected region
type Detail struct {
	RegionID      int                   `json:"regionId"`
	RegionName    string                `json:"regionName"`
	Intensity     float64               `json:"intensity"`
	Category      intensity.Category    `json:"category"`
	CategoryLabel string                `json:"categoryLabel"`
	Color         string                `json:"color"`
	DNORegion     string                `json:"dnoRegion"`
	Mix           []intensity.FuelShare `json:"mix"`
}

type DetailPanel interface {
	ShowDetail(detail Detail)
}

// Sink receives every snapshot that was applied to the map
type Sink interface {
	Publish(ctx context.Context, snap intensity.Snapshot) error
}
