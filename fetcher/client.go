// Package fetcher talks to the regional endpoints of the carbon intensity API
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/series"
	"github.com/ChristianF88/carbonx/timewindow"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.carbonintensity.org.uk"
	DefaultTimeout = 10 * time.Second

	// cap on the bytes read from an error response before it is discarded
	maxDrainBytes = 64 << 10
)

// Client fetches regional snapshots and single-region series
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit paces outgoing requests. A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the time source used for series windows
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCurrent returns the snapshot for the current half hour
func (c *Client) FetchCurrent(ctx context.Context) (intensity.Snapshot, error) {
	const op = "fetch current intensity"

	var env envelope
	if err := c.get(ctx, op, &env, "regional"); err != nil {
		return intensity.Snapshot{}, err
	}

	snapshots, err := decodeSnapshots(op, env)
	if err != nil {
		return intensity.Snapshot{}, err
	}
	if len(snapshots) == 0 {
		return intensity.Snapshot{}, &DataFormatError{Op: op, Reason: "no snapshot in data collection"}
	}
	return toSnapshot(op, snapshots[0])
}

// FetchAt returns the snapshot for the half hour containing t.
// A response without snapshots yields an empty snapshot covering the
// requested slot and a nil error.
func (c *Client) FetchAt(ctx context.Context, t time.Time) (intensity.Snapshot, error) {
	const op = "fetch historical intensity"
	w := timewindow.PointWindow(t)

	var env envelope
	if err := c.get(ctx, op, &env, "regional", "intensity", w.FromISO(), w.ToISO()); err != nil {
		return intensity.Snapshot{}, err
	}

	snapshots, err := decodeSnapshots(op, env)
	if err != nil {
		return intensity.Snapshot{}, err
	}
	if len(snapshots) == 0 {
		c.logger.Info().Str("window", w.String()).Msg("no snapshot for requested window")
		return intensity.NewSnapshot(w.Start, w.End, nil), nil
	}

	snap, err := toSnapshot(op, snapshots[0])
	if err != nil {
		return intensity.Snapshot{}, err
	}
	if snap.From.IsZero() {
		snap.From, snap.To = w.Start, w.End
	}
	return snap, nil
}

// FetchSeries returns the samples of one region over the lookback window
// ending now
func (c *Client) FetchSeries(ctx context.Context, regionID int, lookback time.Duration) (series.Raw, error) {
	const op = "fetch region series"
	if lookback <= 0 {
		lookback = timewindow.DefaultLookback
	}
	w := timewindow.RangeWindow(c.now(), lookback)

	var env envelope
	err := c.get(ctx, op, &env,
		"regional", "intensity", w.FromISO(), w.ToISO(), "regionid", strconv.Itoa(regionID))
	if err != nil {
		return series.Raw{}, err
	}

	raw, err := toSeries(op, env)
	if err != nil {
		return series.Raw{}, err
	}
	if raw.RegionID == 0 {
		raw.RegionID = regionID
	}
	return raw, nil
}

// get performs one GET request and decodes the JSON body into out
func (c *Client) get(ctx context.Context, op string, out any, segments ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return &NetworkError{Op: op, URL: c.baseURL, Err: fmt.Errorf("build url: %w", err)}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &NetworkError{Op: op, URL: endpoint, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &NetworkError{Op: op, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", endpoint).Msg("api request failed")
		return &NetworkError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		return &NetworkError{
			Op:         op,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DataFormatError{Op: op, Reason: "invalid JSON body", Err: err}
	}
	return nil
}
