package output

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ChristianF88/carbonx/intensity"
)

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════"
	lightRule = "───────────────────────────────────────────────────────────────────────────────"
)

// WritePlain renders the report as human-readable plain text
func WritePlain(w io.Writer, r *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "                          carbonx Carbon Intensity Report\n")
	fmt.Fprintf(w, "%s\n\n", heavyRule)

	fmt.Fprintf(w, "📊 OVERVIEW\n")
	fmt.Fprintln(w, lightRule)
	fmt.Fprintf(w, "Report Type:     %s\n", r.Metadata.ReportType)
	if r.Metadata.Source != "" {
		fmt.Fprintf(w, "Source:          %s\n", r.Metadata.Source)
	}
	fmt.Fprintf(w, "Generated:       %s\n", r.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Duration:        %d ms\n", r.Metadata.DurationMS)
	fmt.Fprintf(w, "\n")

	if r.Snapshot != nil {
		writeSnapshotPlain(w, r.Snapshot)
	}
	if r.Selected != nil {
		writeSelectedPlain(w, r.Selected)
	}
	for i, s := range r.Series {
		writeSeriesPlain(w, s)
		if i < len(r.Series)-1 {
			fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 79))
		}
	}

	fmt.Fprintf(w, "🎨 LEGEND\n")
	fmt.Fprintln(w, lightRule)
	for _, e := range r.Legend {
		fmt.Fprintf(w, "  %-10s %-18s %s\n", e.Label, e.Range, e.Color)
	}
	fmt.Fprintf(w, "\n")

	if len(r.Warnings) > 0 || len(r.Errors) > 0 {
		fmt.Fprintf(w, "⚠️  DIAGNOSTICS\n")
		fmt.Fprintln(w, lightRule)

		if len(r.Warnings) > 0 {
			fmt.Fprintf(w, "Warnings:\n")
			for _, warning := range r.Warnings {
				if warning.Type != "info" { // Skip info messages in plain output
					fmt.Fprintf(w, "  • %s\n", warning.Message)
				}
			}
		}

		if len(r.Errors) > 0 {
			fmt.Fprintf(w, "Errors:\n")
			for _, err := range r.Errors {
				fmt.Fprintf(w, "  • %s\n", err.Message)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintln(w, heavyRule)
}

func writeSnapshotPlain(w io.Writer, s *SnapshotSection) {
	fmt.Fprintf(w, "🗺  REGIONAL INTENSITY\n")
	fmt.Fprintln(w, lightRule)
	if !s.Window.Start.IsZero() {
		fmt.Fprintf(w, "Window:          %s → %s\n",
			s.Window.Start.Format("2006-01-02 15:04"), s.Window.End.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(w, "Regions:         %d (%d aggregates hidden)\n", len(s.Regions), s.Excluded)
	fmt.Fprintf(w, "...............................................................................\n")
	for _, region := range s.Regions {
		fmt.Fprintf(w, "  %2d  %-28s %12s  %s\n",
			region.RegionID, region.Name, FormatIntensity(region.Intensity), region.Category.Label())
	}
	fmt.Fprintf(w, "\n")
}

func writeSelectedPlain(w io.Writer, r *RegionResult) {
	fmt.Fprintf(w, "📍 SELECTED REGION: %s\n", r.Name)
	fmt.Fprintln(w, lightRule)
	fmt.Fprintf(w, "Intensity:       %s (%s)\n", FormatIntensity(r.Intensity), r.Category.Label())
	if r.DNORegion != "" {
		fmt.Fprintf(w, "DNO Region:      %s\n", r.DNORegion)
	}
	if len(r.Mix) > 0 {
		fmt.Fprintf(w, "Generation Mix:\n")
		for _, f := range r.Mix {
			fmt.Fprintf(w, "  %-12s %6.1f%%\n", f.Fuel, f.Percentage)
		}
	}
	fmt.Fprintf(w, "\n")
}

func writeSeriesPlain(w io.Writer, s SeriesSection) {
	fmt.Fprintf(w, "📈 %s\n", s.Title)
	fmt.Fprintln(w, lightRule)

	if s.Status != SeriesOK {
		fmt.Fprintf(w, "  %s\n\n", s.Message)
		return
	}

	if s.Summary != nil {
		fmt.Fprintf(w, "Samples:         %d\n", s.Summary.Count)
		fmt.Fprintf(w, "Min / Mean / Max: %s / %s / %s\n",
			FormatIntensity(s.Summary.Min), FormatIntensity(s.Summary.Mean), FormatIntensity(s.Summary.Max))
	}
	fmt.Fprintf(w, "...............................................................................\n")
	for _, p := range s.Points {
		fmt.Fprintf(w, "  %s  %12s  %s\n",
			p.Instant.Format("2006-01-02 15:04"), FormatIntensity(p.Intensity), p.Category.Label())
	}
	fmt.Fprintf(w, "\n")
}

// FormatIntensity renders a value with at most one decimal and the unit
func FormatIntensity(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + " " + intensity.Unit
}
