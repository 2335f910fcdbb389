package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChristianF88/carbonx/config"
	"github.com/ChristianF88/carbonx/controller"
	"github.com/ChristianF88/carbonx/fetcher"
	"github.com/ChristianF88/carbonx/forward"
	"github.com/ChristianF88/carbonx/output"
	"github.com/ChristianF88/carbonx/regions"
	"github.com/ChristianF88/carbonx/series"
	"github.com/ChristianF88/carbonx/timewindow"
	"github.com/ChristianF88/carbonx/tui"
	"github.com/ChristianF88/carbonx/version"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// CONFIGURATION STRUCTS
// ============================================================================

// OutputConfig contains output formatting options
type OutputConfig struct {
	Compact bool
	Plain   bool
}

// Env holds the streams a command writes to
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
}

// ============================================================================
// CORE EXECUTION LOGIC
// ============================================================================

// executeTUI runs the interactive session until the user quits
func executeTUI(cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	app := tui.NewApp(loc)

	logOut, closeLog, err := logOutput(cfg, app.LogWriter())
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(logOut, cfg.Output.LogLevel, cfg.Output.LogFile == "")

	client := newClient(cfg, logger)
	fwd := newForwarder(cfg, logger)
	if fwd != nil {
		defer fwd.Close()
	}

	ctrl := controller.New(client, app, app, app, controllerOptions(cfg, logger, fwd)...)
	app.SetController(ctrl)

	logger.Info().Str("api", client.BaseURL()).Str("version", version.Version).Msg("starting interactive session")
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// executeSnapshot loads the current snapshot, or the half hour containing
// at, and prints it as a report
func executeSnapshot(ctx context.Context, cfg *config.Config, env Env, at *time.Time, plotPath string, out OutputConfig) error {
	start := time.Now()
	ctx, stop := signalContext(ctx)
	defer stop()

	logOut, closeLog, err := logOutput(cfg, env.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(logOut, cfg.Output.LogLevel, false)

	client := newClient(cfg, logger)
	fwd := newForwarder(cfg, logger)
	if fwd != nil {
		defer fwd.Close()
	}

	report := output.NewReport("snapshot", version.Version, start)
	report.Metadata.Source = client.BaseURL()
	collector := output.NewCollector(report)
	ctrl := controller.New(client, collector, collector, collector, controllerOptions(cfg, logger, fwd)...)

	if at != nil {
		err = ctrl.ShowAt(ctx, *at)
	} else {
		err = ctrl.Refresh(ctx)
	}
	switch {
	case at != nil && errors.Is(err, fetcher.ErrEmptyResult):
		// the window is reported with no regions
		w := timewindow.PointWindow(*at)
		report.SetSnapshot(output.SnapshotSection{
			Window:  output.TimeRange{Start: w.Start, End: w.End},
			Regions: []output.RegionResult{},
		})
		report.AddWarning("no_data", fmt.Sprintf("no data for %s", w), 1)
	case err != nil:
		return err
	default:
		collector.Finish(ctrl.Snapshot())
	}

	writePlot(report, plotPath, logger)
	report.UpdateDuration(start)
	return outputResult(env.Stdout, report, out)
}

// executeSeries loads the current snapshot, selects regionID and prints
// its detail and time series
func executeSeries(ctx context.Context, cfg *config.Config, env Env, regionID int, plotPath string, out OutputConfig) error {
	start := time.Now()
	ctx, stop := signalContext(ctx)
	defer stop()

	logOut, closeLog, err := logOutput(cfg, env.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(logOut, cfg.Output.LogLevel, false)

	client := newClient(cfg, logger)
	fwd := newForwarder(cfg, logger)
	if fwd != nil {
		defer fwd.Close()
	}

	report := output.NewReport("series", version.Version, start)
	report.Metadata.Source = client.BaseURL()
	collector := output.NewCollector(report)
	ctrl := controller.New(client, collector, collector, collector, controllerOptions(cfg, logger, fwd)...)

	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}
	collector.Finish(ctrl.Snapshot())

	if err := ctrl.Select(ctx, regionID); err != nil {
		// the chart section already carries the error state
		report.AddError("series", err.Error(), 1)
	}

	writePlot(report, plotPath, logger)
	report.UpdateDuration(start)
	return outputResult(env.Stdout, report, out)
}

// executeReport loads the current snapshot and the series of every
// displayed region in parallel, then writes everything to one HTML page
func executeReport(ctx context.Context, cfg *config.Config, env Env, plotPath string, concurrency int, out OutputConfig) error {
	start := time.Now()
	ctx, stop := signalContext(ctx)
	defer stop()

	logOut, closeLog, err := logOutput(cfg, env.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(logOut, cfg.Output.LogLevel, false)

	client := newClient(cfg, logger)
	fwd := newForwarder(cfg, logger)
	if fwd != nil {
		defer fwd.Close()
	}

	report := output.NewReport("report", version.Version, start)
	report.Metadata.Source = client.BaseURL()
	collector := output.NewCollector(report)
	ctrl := controller.New(client, collector, collector, collector, controllerOptions(cfg, logger, fwd)...)

	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}
	snap := ctrl.Snapshot()
	collector.Finish(snap)

	sections := collectSeries(ctx, client, ctrl.Markers(), cfg.Series.Lookback, concurrency, report, logger)
	for _, s := range sections {
		report.AddSeries(s)
	}

	if err := output.WriteHTML(plotPath, report); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	report.AddWarning("info", fmt.Sprintf("HTML report written to %s", plotPath), 0)

	report.UpdateDuration(start)
	return outputResult(env.Stdout, report, out)
}

// seriesFetcher is the part of the API client the report fan-out needs
type seriesFetcher interface {
	FetchSeries(ctx context.Context, regionID int, lookback time.Duration) (series.Raw, error)
}

// collectSeries fetches the series of every marker with at most
// concurrency requests in flight. Failures become error sections so one
// region never hides the others. Sections keep the order of markers.
func collectSeries(ctx context.Context, f seriesFetcher, markers []controller.Marker, lookback time.Duration,
	concurrency int, report *output.Report, logger zerolog.Logger) []output.SeriesSection {

	sections := make([]output.SeriesSection, len(markers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, m := range markers {
		g.Go(func() error {
			name := m.Name
			if name == "" {
				name = regions.Name(m.RegionID)
			}
			title := controller.ChartTitle(name, lookback)

			raw, err := f.FetchSeries(gctx, m.RegionID, lookback)
			if err != nil {
				logger.Warn().Err(err).Int("region", m.RegionID).Msg("loading time series failed")
				report.AddError("series", fmt.Sprintf("region %d: %v", m.RegionID, err), 1)
				sections[i] = output.EmptySeries(m.RegionID, title, output.SeriesError, controller.SeriesErrorMessage)
				return nil
			}

			view, err := controller.ChartViewFor(m.RegionID, title, raw)
			switch {
			case errors.Is(err, series.ErrNoData):
				report.AddWarning("no_data", fmt.Sprintf("region %d: %s", m.RegionID, controller.NoDataMessage), 1)
				sections[i] = output.EmptySeries(m.RegionID, title, output.SeriesNoData, controller.NoDataMessage)
			case err != nil:
				report.AddError("series", fmt.Sprintf("region %d: %v", m.RegionID, err), 1)
				sections[i] = output.EmptySeries(m.RegionID, title, output.SeriesError, controller.SeriesErrorMessage)
			default:
				sections[i] = output.SeriesFromView(view)
			}
			return nil
		})
	}

	// workers never return errors
	_ = g.Wait()
	return sections
}

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

func newLogger(w io.Writer, level string, color bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !color,
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger()
}

// logOutput returns the configured log file, or fallback when none is set
func logOutput(cfg *config.Config, fallback io.Writer) (io.Writer, func(), error) {
	if cfg.Output.LogFile == "" {
		if fallback == nil {
			fallback = os.Stderr
		}
		return fallback, func() {}, nil
	}
	f, err := os.OpenFile(cfg.Output.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func newClient(cfg *config.Config, logger zerolog.Logger) *fetcher.Client {
	return fetcher.New(cfg.API.BaseURL,
		fetcher.WithTimeout(cfg.API.Timeout),
		fetcher.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		fetcher.WithLogger(logger),
	)
}

func newForwarder(cfg *config.Config, logger zerolog.Logger) *forward.Forwarder {
	if !cfg.ForwardEnabled() {
		return nil
	}
	return forward.New(cfg.Forward.Address,
		forward.WithTimeout(cfg.Forward.Timeout),
		forward.WithLogger(logger),
	)
}

func controllerOptions(cfg *config.Config, logger zerolog.Logger, fwd *forward.Forwarder) []controller.Option {
	opts := []controller.Option{
		controller.WithLookback(cfg.Series.Lookback),
		controller.WithLogger(logger),
	}
	if fwd != nil {
		opts = append(opts, controller.WithSink(fwd))
	}
	return opts
}

// signalContext cancels ctx on SIGINT or SIGTERM
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func writePlot(report *output.Report, plotPath string, logger zerolog.Logger) {
	if plotPath == "" {
		return
	}
	plotStart := time.Now()
	if err := output.WriteHTML(plotPath, report); err != nil {
		logger.Error().Err(err).Str("path", plotPath).Msg("writing plot failed")
		report.AddError("plot", err.Error(), 1)
		return
	}
	report.AddWarning("info", fmt.Sprintf("Plot generated in %v at %s", time.Since(plotStart), plotPath), 0)
}

func outputResult(w io.Writer, report *output.Report, outputConfig OutputConfig) error {
	if outputConfig.Plain {
		output.WritePlain(w, report)
		return nil
	}

	var jsonBytes []byte
	var err error

	if outputConfig.Compact {
		jsonBytes, err = report.ToCompactJSON()
	} else {
		jsonBytes, err = report.ToJSON()
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}
