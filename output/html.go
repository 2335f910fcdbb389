package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/ChristianF88/carbonx/controller"
	"github.com/ChristianF88/carbonx/intensity"
)

// Plot area of the region map (longitude x latitude)
const (
	mapMinLon = -8.5
	mapMaxLon = 2.5
	mapMinLat = 49.5
	mapMaxLat = 59.5
)

// MapChart plots every region at its coordinate, one series per category
// so the legend doubles as the intensity key
func MapChart(section *SnapshotSection) *charts.Scatter {
	scatter := charts.NewScatter()

	subtitle := ""
	if section != nil && !section.Window.Start.IsZero() {
		subtitle = fmt.Sprintf("%s - %s UTC",
			section.Window.Start.UTC().Format("2006-01-02 15:04"), section.Window.End.UTC().Format("15:04"))
	}

	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "UK Carbon Intensity Map",
			Width:           "900px",
			Height:          "900px",
			Theme:           types.ThemeVintage,
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "UK Carbon Intensity Map",
			Subtitle: subtitle,
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "item",
			Formatter: opts.FuncOpts(`function (params) {
		return params.name;
	}`),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Longitude",
			Type: "value",
			Min:  mapMinLon,
			Max:  mapMaxLon,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Latitude",
			Type: "value",
			Min:  mapMinLat,
			Max:  mapMaxLat,
		}),
	)

	byCategory := make(map[intensity.Category][]opts.ScatterData)
	if section != nil {
		for _, r := range section.Regions {
			byCategory[r.Category] = append(byCategory[r.Category], opts.ScatterData{
				Name:       popupHTML(r),
				Value:      []interface{}{r.Coordinate.Lon, r.Coordinate.Lat, r.Intensity},
				SymbolSize: 2 * controller.MarkerRadius,
			})
		}
	}

	for _, c := range intensity.Categories() {
		scatter.AddSeries(c.Label(), byCategory[c],
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c.Color(), BorderColor: "#fff"}),
		)
	}

	return scatter
}

func popupHTML(r RegionResult) string {
	if r.Popup == "" {
		return fmt.Sprintf("<b>%s</b><br/>%s", r.Name, FormatIntensity(r.Intensity))
	}
	lines := strings.Split(r.Popup, "\n")
	lines[0] = "<b>" + lines[0] + "</b>"
	return strings.Join(lines, "<br/>")
}

// SeriesChart draws a region series as a line with category-coloured points.
// Sections without points become a titled placeholder carrying the message.
func SeriesChart(section SeriesSection) *charts.Line {
	if section.Status != SeriesOK || len(section.Points) == 0 {
		return emptyChart(section.Title, section.Message)
	}

	line := charts.NewLine()

	yAxis := opts.YAxis{
		Name: "Carbon Intensity (" + intensity.Unit + ")",
		Type: "value",
	}
	if section.Values != nil {
		yAxis.Min = section.Values.Min
		yAxis.Max = section.Values.Max
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       section.Title,
			Width:           "900px",
			Height:          "450px",
			Theme:           types.ThemeVintage,
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: section.Title,
			Left:  "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Time",
			Type: "time",
		}),
		charts.WithYAxisOpts(yAxis),
	)

	lineData := make([]opts.LineData, len(section.Points))
	byCategory := make(map[intensity.Category][]opts.ScatterData)
	for i, p := range section.Points {
		ts := p.Instant.UTC().Format(time.RFC3339)
		lineData[i] = opts.LineData{Value: []interface{}{ts, p.Intensity}}
		byCategory[p.Category] = append(byCategory[p.Category], opts.ScatterData{
			Name:       FormatIntensity(p.Intensity),
			Value:      []interface{}{ts, p.Intensity},
			SymbolSize: 8,
		})
	}

	line.AddSeries("Intensity", lineData,
		charts.WithLineStyleOpts(opts.LineStyle{Color: "#2c3e50", Width: 2}),
	)

	points := charts.NewScatter()
	for _, c := range intensity.Categories() {
		if len(byCategory[c]) == 0 {
			continue
		}
		points.AddSeries(c.Label(), byCategory[c],
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c.Color()}),
		)
	}
	line.Overlap(points)

	return line
}

func emptyChart(title, message string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			Width:           "900px",
			Height:          "200px",
			Theme:           types.ThemeVintage,
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: message,
			Left:     "center",
		}),
		charts.WithXAxisOpts(opts.XAxis{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{Show: opts.Bool(false)}),
	)
	return line
}

// WriteHTML renders the map (if any) and every series of r into one page
func WriteHTML(filename string, r *Report) error {
	r.mu.Lock()
	snapshot := r.Snapshot
	sections := make([]SeriesSection, len(r.Series))
	copy(sections, r.Series)
	r.mu.Unlock()

	page := components.NewPage()
	page.PageTitle = "UK Carbon Intensity"
	page.SetLayout(components.PageFlexLayout)

	if snapshot != nil {
		page.AddCharts(MapChart(snapshot))
	}
	for _, s := range sections {
		page.AddCharts(SeriesChart(s))
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create plot file %s: %w", filename, err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("rendering plot: %w", err)
	}
	return nil
}
