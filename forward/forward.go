// Package forward ships applied snapshots to a lumberjack v2 endpoint
// (Logstash beats input, or any go-lumber server).
package forward

import (
	"context"
	"fmt"
	"sync"
	"time"

	v2 "github.com/elastic/go-lumber/client/v2"
	"github.com/rs/zerolog"

	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/regions"
)

const DefaultTimeout = 5 * time.Second

// Forwarder publishes one event per region of every snapshot it receives.
// The connection is dialled lazily and re-dialled after a failed send.
type Forwarder struct {
	address string
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	client *v2.SyncClient
}

type Option func(*Forwarder)

func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(f *Forwarder) { f.logger = l }
}

func New(address string, opts ...Option) *Forwarder {
	f := &Forwarder{
		address: address,
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish sends the readings of snap as a single batch and waits for the ACK
func (f *Forwarder) Publish(ctx context.Context, snap intensity.Snapshot) error {
	events := Events(snap)
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		client, err := v2.SyncDial(f.address, v2.Timeout(f.timeout))
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", f.address, err)
		}
		f.client = client
	}

	n, err := f.client.Send(events)
	if err != nil {
		f.client.Close()
		f.client = nil
		return fmt.Errorf("failed to forward snapshot (%d of %d events acked): %w", n, len(events), err)
	}

	f.logger.Debug().Int("events", n).Str("address", f.address).Msg("snapshot forwarded")
	return nil
}

// Close releases the connection, if any
func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}

// Events converts snap into lumberjack events, one per reading
func Events(snap intensity.Snapshot) []interface{} {
	readings := snap.Readings()
	events := make([]interface{}, 0, len(readings))

	ts := snap.From
	if ts.IsZero() {
		ts = time.Now()
	}
	stamp := ts.UTC().Format(time.RFC3339)

	for _, r := range readings {
		cat := r.Category()
		mix := make(map[string]interface{}, len(r.GenerationMix))
		for _, fs := range r.GenerationMix {
			mix[fs.Fuel] = fs.Percentage
		}
		name := r.RegionName
		if name == "" {
			name = regions.Name(r.RegionID)
		}

		events = append(events, map[string]interface{}{
			"@timestamp":    stamp,
			"message":       fmt.Sprintf("%s %g %s %s", name, r.Forecast, intensity.Unit, cat),
			"regionid":      r.RegionID,
			"shortname":     name,
			"dnoregion":     r.DNORegion,
			"physical":      regions.IsPhysical(r.RegionID),
			"forecast":      r.Forecast,
			"category":      cat.String(),
			"generationmix": mix,
		})
	}
	return events
}
