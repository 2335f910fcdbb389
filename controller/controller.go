// Package controller reconciles user actions, fetched data and the display
// surfaces of one interactive session.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ChristianF88/carbonx/fetcher"
	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/regions"
	"github.com/ChristianF88/carbonx/series"
	"github.com/ChristianF88/carbonx/timewindow"
	"github.com/rs/zerolog"
)

var (
	// ErrRegionExcluded is returned for national or GB aggregate ids
	ErrRegionExcluded = errors.New("region is not a physical region")
	// ErrUnknownRegion is returned when the current snapshot has no such region
	ErrUnknownRegion = errors.New("region not in current snapshot")
	// ErrStale is returned when a newer request superseded this one
	ErrStale = errors.New("result superseded by a newer request")
)

const (
	NoDataMessage      = "No time series data available"
	SeriesErrorMessage = "Error loading time series data"
)

// Fetcher is the data source of the controller
type Fetcher interface {
	FetchCurrent(ctx context.Context) (intensity.Snapshot, error)
	FetchAt(ctx context.Context, t time.Time) (intensity.Snapshot, error)
	FetchSeries(ctx context.Context, regionID int, lookback time.Duration) (series.Raw, error)
}

// Controller owns the displayed snapshot and the selected region.
// Surfaces are called while the state lock is held, so they must not call
// back into the controller synchronously.
type Controller struct {
	fetcher  Fetcher
	mapView  MapSurface
	chart    ChartSurface
	detail   DetailPanel
	sink     Sink
	lookback time.Duration
	logger   zerolog.Logger

	mu         sync.Mutex
	snapshot   intensity.Snapshot
	selected   *intensity.Reading
	markers    []Marker
	issuedSeq  uint64
	appliedSeq uint64
	selectSeq  uint64
}

type Option func(*Controller)

// WithSink forwards every applied snapshot to s
func WithSink(s Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithLookback sets the series window of a selection
func WithLookback(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.lookback = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller drawing on the given surfaces
func New(f Fetcher, m MapSurface, ch ChartSurface, d DetailPanel, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  f,
		mapView:  m,
		chart:    ch,
		detail:   d,
		lookback: timewindow.DefaultLookback,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh loads the current snapshot. On failure the displayed state is kept.
func (c *Controller) Refresh(ctx context.Context) error {
	seq := c.nextSnapshotSeq()

	snap, err := c.fetcher.FetchCurrent(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("loading current data failed, keeping previous map")
		return fmt.Errorf("refresh: %w", err)
	}
	return c.apply(ctx, seq, snap)
}

// ShowAt loads the snapshot of the half hour containing t. An empty result
// leaves the map unchanged and returns fetcher.ErrEmptyResult.
func (c *Controller) ShowAt(ctx context.Context, t time.Time) error {
	seq := c.nextSnapshotSeq()
	w := timewindow.PointWindow(t)

	snap, err := c.fetcher.FetchAt(ctx, t)
	if err != nil {
		c.logger.Warn().Err(err).Str("window", w.String()).Msg("loading historical data failed, keeping previous map")
		return fmt.Errorf("show %s: %w", w.FromISO(), err)
	}
	if snap.Empty() {
		c.logger.Info().Str("window", w.String()).Msg("no data for window, keeping previous map")
		return fmt.Errorf("show %s: %w", w.FromISO(), fetcher.ErrEmptyResult)
	}
	return c.apply(ctx, seq, snap)
}

// Select makes regionID the selected region, shows its details and charts
// its series over the configured lookback.
func (c *Controller) Select(ctx context.Context, regionID int) error {
	if !regions.IsPhysical(regionID) {
		return fmt.Errorf("select region %d: %w", regionID, ErrRegionExcluded)
	}

	c.mu.Lock()
	reading, ok := c.snapshot.Reading(regionID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("select region %d: %w", regionID, ErrUnknownRegion)
	}
	c.selectSeq++
	seq := c.selectSeq
	c.selected = &reading
	c.detail.ShowDetail(DetailFor(reading))
	c.mu.Unlock()

	raw, err := c.fetcher.FetchSeries(ctx, regionID, c.lookback)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.selectSeq {
		return ErrStale
	}

	title := ChartTitle(displayName(reading), c.lookback)
	if err != nil {
		c.logger.Warn().Err(err).Int("region", regionID).Msg("loading time series failed")
		c.chart.RenderEmpty(title, SeriesErrorMessage)
		return fmt.Errorf("select region %d: %w", regionID, err)
	}

	view, err := ChartViewFor(regionID, title, raw)
	if err != nil {
		if !errors.Is(err, series.ErrNoData) {
			return fmt.Errorf("select region %d: %w", regionID, err)
		}
		c.logger.Info().Int("region", regionID).Msg("no time series data")
		c.chart.RenderEmpty(title, NoDataMessage)
		return nil
	}
	c.chart.RenderChart(view)
	return nil
}

// Snapshot returns the currently displayed snapshot
func (c *Controller) Snapshot() intensity.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Selected returns the selected reading, if any
func (c *Controller) Selected() (intensity.Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return intensity.Reading{}, false
	}
	return *c.selected, true
}

// Markers returns a copy of the markers last sent to the map
func (c *Controller) Markers() []Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyMarkers()
}

func (c *Controller) Lookback() time.Duration {
	return c.lookback
}

func (c *Controller) nextSnapshotSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issuedSeq++
	return c.issuedSeq
}

// apply swaps in snap unless a newer snapshot was applied meanwhile
func (c *Controller) apply(ctx context.Context, seq uint64, snap intensity.Snapshot) error {
	c.mu.Lock()
	if seq <= c.appliedSeq {
		c.mu.Unlock()
		c.logger.Debug().Uint64("seq", seq).Msg("dropping stale snapshot")
		return ErrStale
	}
	c.appliedSeq = seq
	c.snapshot = snap
	c.markers = markersFor(snap)
	c.mapView.ReplaceMarkers(c.copyMarkers(), c.Select)

	if c.selected != nil {
		// the selection persists even when the new snapshot lacks the region
		if r, ok := snap.Reading(c.selected.RegionID); ok {
			c.selected = &r
			c.detail.ShowDetail(DetailFor(r))
		}
	}
	c.mu.Unlock()

	c.logger.Debug().
		Int("regions", snap.Len()).
		Time("from", snap.From).
		Msg("snapshot applied")

	if c.sink != nil {
		if err := c.sink.Publish(ctx, snap); err != nil {
			c.logger.Warn().Err(err).Msg("forwarding snapshot failed")
		}
	}
	return nil
}

// copyMarkers expects c.mu to be held
func (c *Controller) copyMarkers() []Marker {
	out := make([]Marker, len(c.markers))
	copy(out, c.markers)
	return out
}

// markersFor builds one marker per physical region of snap. Aggregate ids
// are dropped here and nowhere else.
func markersFor(snap intensity.Snapshot) []Marker {
	readings := snap.Readings()
	markers := make([]Marker, 0, len(readings))
	for _, r := range readings {
		if !regions.IsPhysical(r.RegionID) {
			continue
		}
		cat := r.Category()
		name := displayName(r)
		value := formatIntensity(r.Forecast)
		markers = append(markers, Marker{
			RegionID:   r.RegionID,
			Name:       name,
			Coordinate: regions.CoordinatesFor(r.RegionID),
			FillColor:  cat.Color(),
			Radius:     MarkerRadius,
			PopupText:  fmt.Sprintf("%s\n%s %s\n%s\nDNO: %s", name, value, intensity.Unit, cat.Label(), r.DNORegion),
			Tooltip:    fmt.Sprintf("%s: %s %s", name, value, intensity.Unit),
			Intensity:  r.Forecast,
			Category:   cat,
		})
	}
	return markers
}

// DetailFor builds the detail panel content for r
func DetailFor(r intensity.Reading) Detail {
	cat := r.Category()
	return Detail{
		RegionID:      r.RegionID,
		RegionName:    displayName(r),
		Intensity:     r.Forecast,
		Category:      cat,
		CategoryLabel: cat.Label(),
		Color:         cat.Color(),
		DNORegion:     r.DNORegion,
		Mix:           r.DisplayMix(),
	}
}

// ChartViewFor runs the series pipeline on raw. It returns series.ErrNoData
// when raw has no samples.
func ChartViewFor(regionID int, title string, raw series.Raw) (ChartView, error) {
	samples := series.Transform(raw.Samples)
	chart, err := series.NewChart(samples)
	if err != nil {
		return ChartView{}, err
	}

	points := make([]ChartPoint, len(chart.Samples))
	for i, s := range chart.Samples {
		points[i] = ChartPoint{
			Instant:   s.Instant,
			Intensity: s.Intensity,
			Category:  s.Category,
			Color:     s.Category.Color(),
		}
	}
	summary, _ := series.Summarize(chart.Samples)

	return ChartView{
		Title:    title,
		RegionID: regionID,
		Points:   points,
		Values:   chart.Values,
		Start:    chart.Start,
		End:      chart.End,
		Summary:  summary,
	}, nil
}

// ChartTitle is the heading of a region chart
func ChartTitle(name string, lookback time.Duration) string {
	return fmt.Sprintf("Time Series - %s (Last %s)", name, lookbackText(lookback))
}

func lookbackText(d time.Duration) string {
	if d <= 0 {
		d = timewindow.DefaultLookback
	}
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "Hour"
		}
		return strconv.Itoa(h) + " Hours"
	}
	return d.String()
}

func displayName(r intensity.Reading) string {
	if r.RegionName != "" {
		return r.RegionName
	}
	return regions.Name(r.RegionID)
}

func formatIntensity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
