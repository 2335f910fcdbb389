package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ChristianF88/carbonx/fetcher"
	"github.com/ChristianF88/carbonx/forward"
)

func TestLoadConfig(t *testing.T) {
	testConfigContent := `
[api]
baseURL = "http://localhost:8080"
timeout = "3s"
requestsPerSecond = 2.5
burst = 4

[series]
lookback = "12h"

[output]
plotPath = "/tmp/carbonx.html"
logFile = "/var/log/carbonx.log"
logLevel = "debug"
timezone = "Europe/London"

[forward]
address = "127.0.0.1:5044"
timeout = "1s"

[unknown]
ignored = true
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.toml")

	err := os.WriteFile(configPath, []byte(testConfigContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.API.BaseURL != "http://localhost:8080" {
		t.Errorf("Expected BaseURL 'http://localhost:8080', got '%s'", config.API.BaseURL)
	}
	if config.API.Timeout != 3*time.Second {
		t.Errorf("Expected Timeout 3s, got %v", config.API.Timeout)
	}
	if config.API.RequestsPerSecond != 2.5 {
		t.Errorf("Expected RequestsPerSecond 2.5, got %v", config.API.RequestsPerSecond)
	}
	if config.API.Burst != 4 {
		t.Errorf("Expected Burst 4, got %d", config.API.Burst)
	}
	if config.Series.Lookback != 12*time.Hour {
		t.Errorf("Expected Lookback 12h, got %v", config.Series.Lookback)
	}
	if config.Output.PlotPath != "/tmp/carbonx.html" {
		t.Errorf("Expected PlotPath '/tmp/carbonx.html', got '%s'", config.Output.PlotPath)
	}
	if config.GetPlotPath() != "/tmp/carbonx.html" {
		t.Errorf("GetPlotPath returned '%s'", config.GetPlotPath())
	}
	if config.Output.LogFile != "/var/log/carbonx.log" {
		t.Errorf("Expected LogFile '/var/log/carbonx.log', got '%s'", config.Output.LogFile)
	}
	if config.Output.LogLevel != "debug" {
		t.Errorf("Expected LogLevel 'debug', got '%s'", config.Output.LogLevel)
	}
	if !config.ForwardEnabled() {
		t.Error("Expected forwarding to be enabled")
	}
	if config.Forward.Timeout != time.Second {
		t.Errorf("Expected forward Timeout 1s, got %v", config.Forward.Timeout)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDefaultsMatchClients(t *testing.T) {
	config := Default()
	if config.API.BaseURL != fetcher.DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", config.API.BaseURL, fetcher.DefaultBaseURL)
	}
	if config.API.Timeout != fetcher.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", config.API.Timeout, fetcher.DefaultTimeout)
	}
	if config.Forward.Timeout != forward.DefaultTimeout {
		t.Errorf("Forward.Timeout = %v, want %v", config.Forward.Timeout, forward.DefaultTimeout)
	}
}

func TestParseDefaults(t *testing.T) {
	config, err := Parse("")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if config.API.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default BaseURL, got '%s'", config.API.BaseURL)
	}
	if config.API.Timeout != DefaultTimeout {
		t.Errorf("Expected default Timeout, got %v", config.API.Timeout)
	}
	if config.API.RequestsPerSecond != DefaultRequestsPerSecond {
		t.Errorf("Expected default RequestsPerSecond, got %v", config.API.RequestsPerSecond)
	}
	if config.API.Burst != DefaultBurst {
		t.Errorf("Expected default Burst, got %d", config.API.Burst)
	}
	if config.Series.Lookback != 24*time.Hour {
		t.Errorf("Expected 24h lookback, got %v", config.Series.Lookback)
	}
	if config.Output.LogLevel != "info" {
		t.Errorf("Expected info log level, got '%s'", config.Output.LogLevel)
	}
	if config.ForwardEnabled() {
		t.Error("Forwarding should be disabled without an address")
	}
	if config.GetPlotPath() != PlotPath {
		t.Errorf("Expected default plot path, got '%s'", config.GetPlotPath())
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestParseExplicitZeroRateDisablesPacing(t *testing.T) {
	config, err := Parse(`
[api]
requestsPerSecond = 0
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if config.API.RequestsPerSecond != 0 {
		t.Errorf("Expected 0, got %v", config.API.RequestsPerSecond)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Unpaced config should validate: %v", err)
	}
}

func TestParseIntegerRate(t *testing.T) {
	config, err := Parse(`
[api]
requestsPerSecond = 3
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if config.API.RequestsPerSecond != 3 {
		t.Errorf("Expected 3, got %v", config.API.RequestsPerSecond)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "invalid toml", content: "[api\nbaseURL=", wantErr: "failed to parse config file"},
		{name: "bad api timeout", content: "[api]\ntimeout = \"soon\"", wantErr: "invalid timeout"},
		{name: "bad lookback", content: "[series]\nlookback = \"a day\"", wantErr: "invalid lookback"},
		{name: "bad forward timeout", content: "[forward]\ntimeout = \"1x\"", wantErr: "parsing [forward]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.API.BaseURL = "/regional" }, wantErr: "http or https"},
		{name: "ftp url", mutate: func(c *Config) { c.API.BaseURL = "ftp://example.com" }, wantErr: "http or https"},
		{name: "no host", mutate: func(c *Config) { c.API.BaseURL = "http://" }, wantErr: "no host"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "zero burst", mutate: func(c *Config) { c.API.Burst = 0 }, wantErr: "burst"},
		{name: "negative lookback", mutate: func(c *Config) { c.Series.Lookback = -time.Hour }, wantErr: "lookback must be positive"},
		{name: "lookback too long", mutate: func(c *Config) { c.Series.Lookback = 15 * 24 * time.Hour }, wantErr: "exceeds"},
		{name: "max lookback", mutate: func(c *Config) { c.Series.Lookback = MaxLookback }},
		{name: "bad log level", mutate: func(c *Config) { c.Output.LogLevel = "loud" }, wantErr: "invalid logLevel"},
		{name: "bad timezone", mutate: func(c *Config) { c.Output.Timezone = "Mars/Olympus" }, wantErr: "invalid timezone"},
		{name: "forward without port", mutate: func(c *Config) { c.Forward.Address = "localhost" }, wantErr: "invalid forward address"},
		{name: "forward ok", mutate: func(c *Config) { c.Forward.Address = "localhost:5044" }},
		{name: "forward zero timeout", mutate: func(c *Config) {
			c.Forward.Address = "localhost:5044"
			c.Forward.Timeout = 0
		}, wantErr: "forward timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateIncomplete(t *testing.T) {
	if err := (&Config{}).Validate(); err == nil {
		t.Error("Expected error for zero Config")
	}
}

func TestLocation(t *testing.T) {
	c := Default()
	loc, err := c.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Expected time.Local, got %v, %v", loc, err)
	}

	c.Output.Timezone = "UTC"
	loc, err = c.Location()
	if err != nil {
		t.Fatalf("Location failed: %v", err)
	}
	if loc.String() != "UTC" {
		t.Errorf("Expected UTC, got %v", loc)
	}
}
