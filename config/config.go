package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ChristianF88/carbonx/fetcher"
	"github.com/ChristianF88/carbonx/forward"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL           = fetcher.DefaultBaseURL
	DefaultTimeout           = fetcher.DefaultTimeout
	DefaultRequestsPerSecond = 4.0
	DefaultBurst             = 2
	DefaultLookback          = 24 * time.Hour
	DefaultLogLevel          = "info"
	DefaultForwardTimeout    = forward.DefaultTimeout

	// The API rejects region ranges longer than 14 days
	MaxLookback = 14 * 24 * time.Hour
)

var HomeDir string = os.Getenv("HOME")
var PlotPath string = filepath.Join(HomeDir, "carbonx.html")

type APIConfig struct {
	BaseURL           string        `toml:"baseURL"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requestsPerSecond"`
	Burst             int           `toml:"burst"`
}

type SeriesConfig struct {
	Lookback time.Duration `toml:"lookback"`
}

type OutputConfig struct {
	PlotPath string `toml:"plotPath"`
	LogFile  string `toml:"logFile"`
	LogLevel string `toml:"logLevel"`
	// IANA zone used for datetimes entered without an offset
	Timezone string `toml:"timezone"`
}

type ForwardConfig struct {
	Address string        `toml:"address"`
	Timeout time.Duration `toml:"timeout"`
}

type Config struct {
	API     *APIConfig     `toml:"api"`
	Series  *SeriesConfig  `toml:"series"`
	Output  *OutputConfig  `toml:"output"`
	Forward *ForwardConfig `toml:"forward"`
}

// Default returns a configuration that talks to the public API
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func LoadConfig(configPath string) (*Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(configData))
}

// Parse decodes TOML text. Missing sections and fields get defaults;
// unknown sections are ignored.
func Parse(data string) (*Config, error) {
	var rawConfig map[string]any
	if _, err := toml.Decode(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config := &Config{}
	var err error

	for key, value := range rawConfig {
		section, ok := value.(map[string]any)
		if !ok {
			continue
		}
		switch key {
		case "api":
			if config.API, err = parseAPIConfig(section); err != nil {
				return nil, fmt.Errorf("parsing [api]: %w", err)
			}
		case "series":
			if config.Series, err = parseSeriesConfig(section); err != nil {
				return nil, fmt.Errorf("parsing [series]: %w", err)
			}
		case "output":
			config.Output = parseOutputConfig(section)
		case "forward":
			if config.Forward, err = parseForwardConfig(section); err != nil {
				return nil, fmt.Errorf("parsing [forward]: %w", err)
			}
		}
	}

	config.applyDefaults()
	return config, nil
}

func parseAPIConfig(m map[string]any) (*APIConfig, error) {
	config := &APIConfig{RequestsPerSecond: -1, Burst: -1}
	if v, ok := m["baseURL"].(string); ok {
		config.BaseURL = v
	}
	if v, ok := m["timeout"].(string); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		config.Timeout = d
	}
	// TOML integers decode as int64, fractions as float64
	if v, ok := m["requestsPerSecond"].(float64); ok {
		config.RequestsPerSecond = v
	} else if i, ok := m["requestsPerSecond"].(int64); ok {
		config.RequestsPerSecond = float64(i)
	}
	if v, ok := m["burst"].(int64); ok {
		config.Burst = int(v)
	}
	return config, nil
}

func parseSeriesConfig(m map[string]any) (*SeriesConfig, error) {
	config := &SeriesConfig{}
	if v, ok := m["lookback"].(string); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid lookback %q: %w", v, err)
		}
		config.Lookback = d
	}
	return config, nil
}

func parseOutputConfig(m map[string]any) *OutputConfig {
	config := &OutputConfig{}
	if v, ok := m["plotPath"].(string); ok {
		config.PlotPath = v
	}
	if v, ok := m["logFile"].(string); ok {
		config.LogFile = v
	}
	if v, ok := m["logLevel"].(string); ok {
		config.LogLevel = v
	}
	if v, ok := m["timezone"].(string); ok {
		config.Timezone = v
	}
	return config
}

func parseForwardConfig(m map[string]any) (*ForwardConfig, error) {
	config := &ForwardConfig{}
	if v, ok := m["address"].(string); ok {
		config.Address = v
	}
	if v, ok := m["timeout"].(string); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		config.Timeout = d
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.API == nil {
		c.API = &APIConfig{RequestsPerSecond: -1, Burst: -1}
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultTimeout
	}
	// an explicit 0 disables pacing, so only unset values get the default
	if c.API.RequestsPerSecond < 0 {
		c.API.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.API.Burst < 0 {
		c.API.Burst = DefaultBurst
	}

	if c.Series == nil {
		c.Series = &SeriesConfig{}
	}
	if c.Series.Lookback == 0 {
		c.Series.Lookback = DefaultLookback
	}

	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	if c.Output.LogLevel == "" {
		c.Output.LogLevel = DefaultLogLevel
	}

	if c.Forward == nil {
		c.Forward = &ForwardConfig{}
	}
	if c.Forward.Timeout == 0 {
		c.Forward.Timeout = DefaultForwardTimeout
	}
}

func (c *Config) GetPlotPath() string {
	if c.Output != nil && c.Output.PlotPath != "" {
		return c.Output.PlotPath
	}
	return PlotPath
}

// ForwardEnabled reports whether snapshots should be shipped
func (c *Config) ForwardEnabled() bool {
	return c.Forward != nil && c.Forward.Address != ""
}

// Location returns the zone for datetimes entered without an offset.
// An empty timezone means the local zone of the process.
func (c *Config) Location() (*time.Location, error) {
	if c.Output == nil || c.Output.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Output.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Output.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if c.API == nil || c.Series == nil || c.Output == nil || c.Forward == nil {
		return fmt.Errorf("configuration is incomplete, use Default or LoadConfig")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL %q: %w", c.API.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("baseURL must use http or https: %s", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("baseURL has no host: %s", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("requestsPerSecond must not be negative, got %g", c.API.RequestsPerSecond)
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst < 1 {
		return fmt.Errorf("burst must be at least 1 when requests are paced, got %d", c.API.Burst)
	}

	if c.Series.Lookback <= 0 {
		return fmt.Errorf("lookback must be positive, got %s", c.Series.Lookback)
	}
	if c.Series.Lookback > MaxLookback {
		return fmt.Errorf("lookback %s exceeds the maximum of %s", c.Series.Lookback, MaxLookback)
	}

	if _, err := zerolog.ParseLevel(c.Output.LogLevel); err != nil {
		return fmt.Errorf("invalid logLevel %q: %w", c.Output.LogLevel, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	return c.ValidateForward()
}

// ValidateForward checks the [forward] section; an empty address disables it
func (c *Config) ValidateForward() error {
	if !c.ForwardEnabled() {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Forward.Address); err != nil {
		return fmt.Errorf("invalid forward address %q: %w", c.Forward.Address, err)
	}
	if c.Forward.Timeout <= 0 {
		return fmt.Errorf("forward timeout must be positive, got %s", c.Forward.Timeout)
	}
	return nil
}
