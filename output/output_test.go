package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ChristianF88/carbonx/controller"
	"github.com/ChristianF88/carbonx/intensity"
	"github.com/ChristianF88/carbonx/regions"
	"github.com/ChristianF88/carbonx/series"
	"github.com/ChristianF88/carbonx/testutil"
)

func sampleReport() *Report {
	out := NewReport("snapshot", "1.2.3", time.Now())
	out.Metadata.Source = "https://api.carbonintensity.org.uk"
	out.SetSnapshot(SnapshotSection{
		Window: TimeRange{
			Start: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		},
		Regions: []RegionResult{
			{RegionID: 13, Name: "London", Intensity: 180, Category: intensity.Moderate, Color: "#ffa500",
				Coordinate: regions.CoordinatesFor(13), Popup: "London\n180 gCO₂/kWh\nModerate\nDNO: UKPN"},
			{RegionID: 2, Name: "South Scotland", Intensity: 12.34, Category: intensity.VeryLow, Color: "#00ff00",
				Coordinate: regions.CoordinatesFor(2)},
		},
		Excluded: 4,
	})
	values := series.Domain{Min: 40, Max: 120}
	out.AddSeries(SeriesSection{
		RegionID: 13,
		Title:    "Time Series - London (Last 24 Hours)",
		Status:   SeriesOK,
		Values:   &values,
		Summary:  &series.Summary{Min: 40, Max: 120, Mean: 80, Count: 2},
		Points: []SeriesPoint{
			{Instant: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Intensity: 40, Category: intensity.VeryLow, Color: "#00ff00"},
			{Instant: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Intensity: 120, Category: intensity.Moderate, Color: "#ffa500"},
		},
	})
	out.AddSeries(EmptySeries(7, "Time Series - Region 7 (Last 24 Hours)", SeriesNoData, controller.NoDataMessage))
	return out
}

func TestReport_ToJSON_RoundTrip(t *testing.T) {
	out := sampleReport()
	out.AddWarning("empty_result", "no data for 2030-01-01T00:00:00Z", 1)

	data, err := out.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}

	var restored Report
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if restored.Metadata.ReportType != "snapshot" {
		t.Errorf("ReportType = %q, want %q", restored.Metadata.ReportType, "snapshot")
	}
	if restored.Metadata.Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", restored.Metadata.Version, "1.2.3")
	}
	if restored.Snapshot == nil || len(restored.Snapshot.Regions) != 2 {
		t.Fatalf("Snapshot regions not restored: %+v", restored.Snapshot)
	}
	if restored.Snapshot.Regions[0].Category != intensity.Moderate {
		t.Errorf("Category = %v, want moderate", restored.Snapshot.Regions[0].Category)
	}
	if restored.Snapshot.Excluded != 4 {
		t.Errorf("Excluded = %d, want 4", restored.Snapshot.Excluded)
	}
	if len(restored.Series) != 2 {
		t.Fatalf("len(Series) = %d, want 2", len(restored.Series))
	}
	if restored.Series[1].Status != SeriesNoData {
		t.Errorf("Series[1].Status = %q, want %q", restored.Series[1].Status, SeriesNoData)
	}
	if len(restored.Legend) != 5 {
		t.Errorf("len(Legend) = %d, want 5", len(restored.Legend))
	}
	if len(restored.Warnings) != 1 || restored.Warnings[0].Type != "empty_result" {
		t.Errorf("Warnings = %+v", restored.Warnings)
	}

	if !bytes.Contains(data, []byte(`"category": "moderate"`)) {
		t.Error("categories should be encoded by name")
	}

	compact, err := out.ToCompactJSON()
	if err != nil {
		t.Fatalf("ToCompactJSON() error: %v", err)
	}
	if bytes.Contains(compact, []byte("\n")) {
		t.Error("compact JSON should be a single line")
	}
}

func TestReport_AddWarning_Concurrent(t *testing.T) {
	out := NewReport("report", "dev", time.Now())

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			out.AddWarning("concurrent", fmt.Sprintf("warning from goroutine %d", id), id)
		}(i)
	}
	wg.Wait()

	if len(out.Warnings) != goroutines {
		t.Errorf("len(Warnings) = %d, want %d", len(out.Warnings), goroutines)
	}

	// Verify all goroutine IDs are represented
	seen := make(map[int]bool)
	for _, w := range out.Warnings {
		seen[w.Count] = true
	}
	for i := 0; i < goroutines; i++ {
		if !seen[i] {
			t.Errorf("missing warning from goroutine %d", i)
		}
	}
}

func TestReport_AddSeriesAndError_Concurrent(t *testing.T) {
	out := NewReport("report", "dev", time.Now())

	const goroutines = 14
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			out.AddSeries(EmptySeries(id, "t", SeriesError, "boom"))
			out.AddError("fetch", fmt.Sprintf("error from goroutine %d", id), id)
		}(i)
	}
	wg.Wait()

	if len(out.Series) != goroutines || len(out.Errors) != goroutines {
		t.Errorf("len(Series) = %d, len(Errors) = %d, want %d", len(out.Series), len(out.Errors), goroutines)
	}
}

func TestLegend(t *testing.T) {
	legend := Legend()
	want := []string{"#00ff00", "#90ee90", "#ffa500", "#ff6b6b", "#dc143c"}
	if len(legend) != len(want) {
		t.Fatalf("len(Legend) = %d, want %d", len(legend), len(want))
	}
	for i, e := range legend {
		if e.Color != want[i] {
			t.Errorf("Legend[%d].Color = %q, want %q", i, e.Color, want[i])
		}
		if e.Range == "" || e.Label == "" {
			t.Errorf("Legend[%d] incomplete: %+v", i, e)
		}
	}
}

func TestCollector(t *testing.T) {
	out := NewReport("series", "dev", time.Now())
	c := NewCollector(out)

	c.ReplaceMarkers([]controller.Marker{
		{RegionID: 1, Name: "North Scotland", FillColor: "#00ff00", Category: intensity.VeryLow, Radius: 15},
		{RegionID: 13, Name: "London", FillColor: "#ffa500", Category: intensity.Moderate, Radius: 15},
	}, nil)
	c.Finish(intensity.NewSnapshot(
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		[]intensity.Reading{{RegionID: 1}, {RegionID: 13}, {RegionID: 17}, {RegionID: 18}},
	))

	if out.Snapshot == nil || len(out.Snapshot.Regions) != 2 {
		t.Fatalf("Snapshot not collected: %+v", out.Snapshot)
	}
	if out.Snapshot.Excluded != 2 {
		t.Errorf("Excluded = %d, want 2", out.Snapshot.Excluded)
	}
	if out.Snapshot.Window.Start.Hour() != 10 {
		t.Errorf("Window not stamped: %+v", out.Snapshot.Window)
	}

	c.ShowDetail(controller.Detail{RegionID: 13, RegionName: "London", Category: intensity.Moderate})
	if out.Selected == nil || out.Selected.Name != "London" {
		t.Fatalf("Selected = %+v", out.Selected)
	}
	if out.Selected.Coordinate != regions.CoordinatesFor(13) {
		t.Errorf("Selected coordinate = %+v", out.Selected.Coordinate)
	}

	c.RenderEmpty("Time Series - London (Last 24 Hours)", controller.SeriesErrorMessage)
	c.RenderEmpty("Time Series - London (Last 24 Hours)", controller.NoDataMessage)
	c.RenderChart(controller.ChartView{
		Title:    "Time Series - London (Last 24 Hours)",
		RegionID: 13,
		Points:   []controller.ChartPoint{{Intensity: 50, Category: intensity.VeryLow, Color: "#00ff00"}},
		Values:   series.Domain{Min: 0, Max: 60},
	})

	if len(out.Series) != 3 {
		t.Fatalf("len(Series) = %d, want 3", len(out.Series))
	}
	if out.Series[0].Status != SeriesError || out.Series[0].RegionID != 13 {
		t.Errorf("Series[0] = %+v", out.Series[0])
	}
	if out.Series[1].Status != SeriesNoData {
		t.Errorf("Series[1].Status = %q", out.Series[1].Status)
	}
	if out.Series[2].Status != SeriesOK || out.Series[2].Values.Max != 60 {
		t.Errorf("Series[2] = %+v", out.Series[2])
	}
}

func TestWritePlain(t *testing.T) {
	out := sampleReport()
	out.AddError("network", "fetch current intensity: status 503", 1)

	var buf bytes.Buffer
	WritePlain(&buf, out)
	text := buf.String()

	for _, want := range []string{
		"REGIONAL INTENSITY",
		"London",
		"180 gCO₂/kWh",
		"12.3 gCO₂/kWh",
		"4 aggregates hidden",
		"Time Series - London (Last 24 Hours)",
		"Min / Mean / Max: 40 gCO₂/kWh / 80 gCO₂/kWh / 120 gCO₂/kWh",
		controller.NoDataMessage,
		"LEGEND",
		"Very High",
		"status 503",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("plain output missing %q", want)
		}
	}
}

func TestFormatIntensity(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0 gCO₂/kWh"},
		{50, "50 gCO₂/kWh"},
		{12.34, "12.3 gCO₂/kWh"},
		{99.96, "100 gCO₂/kWh"},
		{-3, "-3 gCO₂/kWh"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g", tt.input), func(t *testing.T) {
			if got := FormatIntensity(tt.input); got != tt.want {
				t.Errorf("FormatIntensity(%g) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteHTML(t *testing.T) {
	path := testutil.TempFilePath(t, "carbonx_*.html")
	defer os.Remove(path)

	if err := WriteHTML(path, sampleReport()); err != nil {
		t.Fatalf("WriteHTML() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading plot: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		"UK Carbon Intensity Map",
		"Time Series - London (Last 24 Hours)",
		"#ffa500",
		"#dc143c",
		controller.NoDataMessage,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestWriteHTMLBadPath(t *testing.T) {
	err := WriteHTML(os.DevNull+"/nope/plot.html", NewReport("report", "dev", time.Now()))
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestPopupHTML(t *testing.T) {
	got := popupHTML(RegionResult{Name: "London", Popup: "London\n180 gCO₂/kWh"})
	if got != "<b>London</b><br/>180 gCO₂/kWh" {
		t.Errorf("popupHTML = %q", got)
	}
	got = popupHTML(RegionResult{Name: "Wales", Intensity: 20})
	if got != "<b>Wales</b><br/>20 gCO₂/kWh" {
		t.Errorf("popupHTML fallback = %q", got)
	}
}

func BenchmarkToJSON(b *testing.B) {
	out := sampleReport()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		out.ToJSON()
	}
}

func BenchmarkToCompactJSON(b *testing.B) {
	out := sampleReport()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		out.ToCompactJSON()
	}
}

func BenchmarkAddWarning(b *testing.B) {
	out := NewReport("report", "dev", time.Now())
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		out.AddWarning("bench", "benchmark warning", 1)
	}
}
