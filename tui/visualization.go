package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChristianF88/carbonx/controller"
	"github.com/ChristianF88/carbonx/output"
)

// Geographic bounds of the terminal map
const (
	mapMinLon = -8.5
	mapMaxLon = 2.5
	mapMinLat = 49.5
	mapMaxLat = 59.5
)

const (
	markerGlyph   = "●"
	selectedGlyph = "◉"
	axisWidth     = 8
)

// RenderMap draws markers on a width x height character grid projected onto
// the bounding box of Great Britain. Each marker is followed by its region id.
func RenderMap(markers []controller.Marker, width, height, selected int) string {
	if width < 4 || height < 2 {
		return ""
	}

	grid := make([][]string, height)
	for r := range grid {
		grid[r] = make([]string, width)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}

	// the selected marker is drawn last so nothing covers it
	ordered := make([]controller.Marker, 0, len(markers))
	var sel []controller.Marker
	for _, m := range markers {
		if m.RegionID == selected {
			sel = append(sel, m)
			continue
		}
		ordered = append(ordered, m)
	}
	ordered = append(ordered, sel...)

	type cell struct{ row, col int }
	occupied := make(map[cell]bool, len(ordered))

	for _, m := range ordered {
		col := scale(m.Coordinate.Lon, mapMinLon, mapMaxLon, width-1)
		row := scale(mapMaxLat-m.Coordinate.Lat, 0, mapMaxLat-mapMinLat, height-1)

		glyph := markerGlyph
		if m.RegionID == selected {
			glyph = selectedGlyph
		}
		grid[row][col] = fmt.Sprintf("[%s]%s[-]", m.FillColor, glyph)
		occupied[cell{row, col}] = true

		// id label to the right, never over another marker
		label := fmt.Sprintf("%d", m.RegionID)
		for i, ch := range label {
			c := col + 1 + i
			if c >= width || occupied[cell{row, c}] {
				break
			}
			grid[row][c] = "[::d]" + string(ch) + "[::-]"
		}
	}

	var b strings.Builder
	for r := range grid {
		b.WriteString(strings.Join(grid[r], ""))
		if r < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderChart draws a series as a scatter of category-coloured points with
// a labelled value axis and the first and last sample time underneath
func RenderChart(view controller.ChartView, width, height int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[white::b]%s[white::-]\n", view.Title)

	plotWidth := width - axisWidth
	if plotWidth < 2 || height < 3 || len(view.Points) == 0 {
		return b.String()
	}

	grid := make([][]string, height)
	for r := range grid {
		grid[r] = make([]string, plotWidth)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}

	lo, hi := view.Values.Min, view.Values.Max
	span := view.End.Sub(view.Start)
	for _, p := range view.Points {
		col := 0
		if span > 0 {
			col = scale(float64(p.Instant.Sub(view.Start)), 0, float64(span), plotWidth-1)
		}
		row := height - 1 - scale(p.Intensity, lo, hi, height-1)
		grid[row][col] = fmt.Sprintf("[%s]%s[-]", p.Color, markerGlyph)
	}

	for r := range grid {
		switch r {
		case 0:
			fmt.Fprintf(&b, "%6.0f ┤", hi)
		case height - 1:
			fmt.Fprintf(&b, "%6.0f ┤", lo)
		case (height - 1) / 2:
			fmt.Fprintf(&b, "%6.0f ┤", lo+(hi-lo)/2)
		default:
			b.WriteString("       │")
		}
		b.WriteString(strings.Join(grid[r], ""))
		b.WriteByte('\n')
	}

	b.WriteString("       └" + strings.Repeat("─", plotWidth) + "\n")

	first := view.Start.Local().Format("Jan 02 15:04")
	last := view.End.Local().Format("Jan 02 15:04")
	gap := plotWidth - len(first) - len(last)
	if gap < 1 {
		gap = 1
	}
	fmt.Fprintf(&b, "%s%s%s%s\n", strings.Repeat(" ", axisWidth), first, strings.Repeat(" ", gap), last)

	s := view.Summary
	fmt.Fprintf(&b, "[dim]min %s · mean %s · max %s · %d samples[white]",
		output.FormatIntensity(s.Min), output.FormatIntensity(s.Mean), output.FormatIntensity(s.Max), s.Count)
	return b.String()
}

// RenderEmptyChart is the explicit empty state of the chart panel
func RenderEmptyChart(title, message string) string {
	return fmt.Sprintf("[white::b]%s[white::-]\n\n[yellow]%s[white]", title, message)
}

// RenderDetail formats the selected region panel
func RenderDetail(d controller.Detail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[white::b]%s[white::-]\n\n", d.RegionName)
	fmt.Fprintf(&b, "[%s]%s %s[white]\n", d.Color, markerGlyph, output.FormatIntensity(d.Intensity))
	fmt.Fprintf(&b, "Index: %s\n", d.CategoryLabel)
	if d.DNORegion != "" {
		fmt.Fprintf(&b, "DNO:   %s\n", d.DNORegion)
	}
	if len(d.Mix) > 0 {
		b.WriteString("\n[dim]Generation mix[white]\n")
		for _, f := range d.Mix {
			bar := strings.Repeat("█", int(math.Round(f.Percentage/5)))
			fmt.Fprintf(&b, "%-8s %5.1f%% %s\n", f.Fuel, f.Percentage, bar)
		}
	}
	return b.String()
}

// RenderLegend lists the intensity categories with their colours
func RenderLegend() string {
	var b strings.Builder
	for _, e := range output.Legend() {
		fmt.Fprintf(&b, "[%s]%s[white] %-9s [dim]%s[white]\n", e.Color, markerGlyph, e.Label, e.Range)
	}
	return strings.TrimRight(b.String(), "\n")
}

// scale maps v from [lo, hi] onto [0, steps], clamping at both ends
func scale(v, lo, hi float64, steps int) int {
	if hi <= lo || math.IsNaN(v) {
		return 0
	}
	pos := int(math.Round((v - lo) / (hi - lo) * float64(steps)))
	if pos < 0 {
		return 0
	}
	if pos > steps {
		return steps
	}
	return pos
}
