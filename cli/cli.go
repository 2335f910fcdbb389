package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ChristianF88/carbonx/config"
	"github.com/ChristianF88/carbonx/regions"
	"github.com/ChristianF88/carbonx/timewindow"
	"github.com/ChristianF88/carbonx/version"
	cli "github.com/urfave/cli/v2"
)

// parseDate attempts to parse the build date
func parseDate(d string) time.Time {
	t, err := time.Parse(time.RFC3339, d)
	if err != nil {
		return time.Now()
	}
	return t
}

// Shared flag definitions
var (
	// Configuration flags
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to TOML configuration file. Flags given on the command line override it.",
	}
	baseURLFlag = &cli.StringFlag{
		Name:  "baseURL",
		Usage: "Base URL of the carbon intensity API",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Timeout of a single API request (e.g., '10s')",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "logLevel",
		Usage: "Log level (trace, debug, info, warn, error)",
	}
	forwardFlag = &cli.StringFlag{
		Name:  "forward",
		Usage: "Ship every loaded snapshot to a Logstash/lumberjack endpoint (host:port)",
	}

	// Output flags
	plotPathFlag = &cli.StringFlag{
		Name:  "plotPath",
		Usage: "Path where to save the HTML chart (e.g., '/path/to/carbon.html'). If not provided, no plot will be generated.",
	}
	compactFlag = &cli.BoolFlag{
		Name:  "compact",
		Usage: "Output compact JSON (no pretty printing)",
		Value: false,
	}
	plainFlag = &cli.BoolFlag{
		Name:  "plain",
		Usage: "Output plain text format for easy readability",
		Value: false,
	}

	// Query flags
	atFlag = &cli.StringFlag{
		Name:  "at",
		Usage: "Show the half hour containing this time (formats: YYYY-MM-DD, YYYY-MM-DD HH, YYYY-MM-DD HH:MM or RFC3339)",
	}
	regionFlag = &cli.IntFlag{
		Name:  "region",
		Usage: "Region id (1-14)",
	}
	lookbackFlag = &cli.DurationFlag{
		Name:  "lookback",
		Usage: "Length of the time series ending now (e.g., '24h')",
	}
	concurrencyFlag = &cli.IntFlag{
		Name:  "concurrency",
		Usage: "Number of regions fetched in parallel",
		Value: 4,
	}
)

func commonFlags() []cli.Flag {
	return []cli.Flag{configFlag, baseURLFlag, timeoutFlag, logLevelFlag, forwardFlag}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{plotPathFlag, compactFlag, plainFlag}
}

// loadConfig reads --config (or the defaults) and applies flag overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if configPath := c.String("config"); configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if c.IsSet("baseURL") {
		cfg.API.BaseURL = c.String("baseURL")
	}
	if c.IsSet("timeout") {
		cfg.API.Timeout = c.Duration("timeout")
	}
	if c.IsSet("logLevel") {
		cfg.Output.LogLevel = c.String("logLevel")
	}
	if c.IsSet("forward") {
		cfg.Forward.Address = c.String("forward")
	}
	if c.IsSet("lookback") {
		cfg.Series.Lookback = c.Duration("lookback")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func validatePlotPath(plotPath string) error {
	if plotPath != "" {
		plotDir := filepath.Dir(plotPath)
		if plotDir == "." {
			plotDir, _ = os.Getwd()
		}
		if _, err := os.Stat(plotDir); os.IsNotExist(err) {
			return fmt.Errorf("plot directory does not exist: %s", plotDir)
		}
	}
	return nil
}

func validateRegion(id int) error {
	if !regions.IsPhysical(id) {
		return fmt.Errorf("region must be between 1 and %d, got %d", regions.MaxPhysicalID, id)
	}
	return nil
}

func outputConfigFrom(c *cli.Context) OutputConfig {
	return OutputConfig{
		Compact: c.Bool("compact"),
		Plain:   c.Bool("plain"),
	}
}

// errorJSON renders err the way every command reports failures
func errorJSON(err error) string {
	b, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b)
}

// exitError prints err as JSON on stderr and exits with status 1
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(errorJSON(err), 1)
}

// Command handler functions

// handleTUICommand starts the interactive session
func handleTUICommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}
	return exitError(executeTUI(cfg))
}

// handleSnapshotCommand prints the regional map of now or of --at
func handleSnapshotCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}

	var at *time.Time
	if input := c.String("at"); input != "" {
		loc, err := cfg.Location()
		if err != nil {
			return exitError(err)
		}
		t, err := timewindow.ParseLocal(input, loc)
		if err != nil {
			return exitError(fmt.Errorf("error parsing --at: %w", err))
		}
		at = &t
	}

	plotPath := c.String("plotPath")
	if err := validatePlotPath(plotPath); err != nil {
		return exitError(err)
	}

	return exitError(executeSnapshot(c.Context, cfg, runEnv(c), at, plotPath, outputConfigFrom(c)))
}

// handleSeriesCommand prints the time series of one region
func handleSeriesCommand(c *cli.Context) error {
	if !c.IsSet("region") {
		return exitError(fmt.Errorf("--region is required"))
	}
	regionID := c.Int("region")
	if err := validateRegion(regionID); err != nil {
		return exitError(err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}

	plotPath := c.String("plotPath")
	if err := validatePlotPath(plotPath); err != nil {
		return exitError(err)
	}

	return exitError(executeSeries(c.Context, cfg, runEnv(c), regionID, plotPath, outputConfigFrom(c)))
}

// handleReportCommand writes the map and every region's chart to one HTML page
func handleReportCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return exitError(err)
	}

	plotPath := c.String("plotPath")
	if plotPath == "" {
		plotPath = cfg.GetPlotPath()
	}
	if err := validatePlotPath(plotPath); err != nil {
		return exitError(err)
	}

	concurrency := c.Int("concurrency")
	if concurrency < 1 {
		return exitError(fmt.Errorf("concurrency must be at least 1, got %d", concurrency))
	}

	return exitError(executeReport(c.Context, cfg, runEnv(c), plotPath, concurrency, outputConfigFrom(c)))
}

func runEnv(c *cli.Context) Env {
	return Env{Stdout: c.App.Writer, Stderr: c.App.ErrWriter}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "carbonx",
		Usage:    "Explore the regional carbon intensity of the GB electricity grid",
		Version:  version.Version,
		Compiled: parseDate(version.Date),
		Flags:    commonFlags(),
		Action:   handleTUICommand,
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "Interactive map, region detail and time series in the terminal",
				Flags:  commonFlags(),
				Action: handleTUICommand,
			},
			{
				Name:   "snapshot",
				Usage:  "Regional intensity of the current or a given half hour",
				Flags:  append(append(commonFlags(), atFlag), outputFlags()...),
				Action: handleSnapshotCommand,
			},
			{
				Name:   "series",
				Usage:  "Intensity time series of one region",
				Flags:  append(append(commonFlags(), regionFlag, lookbackFlag), outputFlags()...),
				Action: handleSeriesCommand,
			},
			{
				Name:   "report",
				Usage:  "HTML page with the map and the time series of every region",
				Flags:  append(append(commonFlags(), lookbackFlag, concurrencyFlag), outputFlags()...),
				Action: handleReportCommand,
			},
		},
	}
}

var App = newApp()
