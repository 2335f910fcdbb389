package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ChristianF88/carbonx/controller"
	"github.com/ChristianF88/carbonx/fetcher"
	"github.com/ChristianF88/carbonx/timewindow"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	pageMain     = "main"
	pageDatetime = "datetime"

	helpText = "n: refresh, d: pick date, Enter: select region, Tab/Shift+Tab: panels, ↑↓: scroll, 'q': quit"
)

// Fallback drawing area before the first layout pass
const (
	defaultMapWidth    = 48
	defaultMapHeight   = 22
	defaultChartWidth  = 60
	defaultChartHeight = 10
)

// Actions is what the app needs from the controller
type Actions interface {
	Refresh(ctx context.Context) error
	ShowAt(ctx context.Context, t time.Time) error
}

// App is the terminal dashboard. It implements the map, chart and detail
// surfaces of the controller. All widget state is only touched on the
// tview event goroutine.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	statusBar *tview.TextView

	regionList  *tview.List
	mapView     *tview.TextView
	detail      *tview.TextView
	chart       *tview.TextView
	legend      *tview.TextView
	diagnostics *tview.TextView
	datetime    *tview.Form

	focusableItems []tview.Primitive
	focusTitles    []string
	currentFocus   int

	actions Actions
	loc     *time.Location
	ctx     context.Context
	cancel  context.CancelFunc

	markers  []controller.Marker
	onSelect controller.SelectFunc
	selected int

	// last chart state, redrawn on resize
	chartView    *controller.ChartView
	emptyTitle   string
	emptyMessage string

	mapSize   [2]int
	chartSize [2]int
}

// NewApp creates the dashboard. Inputs without an explicit offset in the
// date picker are interpreted in loc.
func NewApp(loc *time.Location) *App {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		loc:    loc,
		ctx:    ctx,
		cancel: cancel,
	}
	a.setupUI()
	return a
}

// SetController wires the actions triggered by key bindings
func (a *App) SetController(actions Actions) {
	a.actions = actions
}

// LogWriter returns a writer that appends to the diagnostics panel.
// ANSI colour sequences are translated to tview tags.
func (a *App) LogWriter() io.Writer {
	return tview.ANSIWriter(a.diagnostics)
}

func (a *App) setupUI() {
	a.regionList = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	a.regionList.SetSelectedFunc(func(index int, _ string, _ string, _ rune) {
		a.selectIndex(index)
	})

	a.mapView = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	a.mapView.SetBorder(true).SetTitle(" Map ").SetTitleAlign(tview.AlignLeft)

	a.detail = tview.NewTextView().
		SetDynamicColors(true).
		SetText("[dim]Select a region to see its generation mix[white]")

	a.chart = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	a.legend = tview.NewTextView().
		SetDynamicColors(true).
		SetText(RenderLegend())
	a.legend.SetBorder(true).SetTitle(" Carbon Intensity ").SetTitleAlign(tview.AlignLeft)

	a.diagnostics = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(500)
	a.diagnostics.SetChangedFunc(func() {
		a.diagnostics.ScrollToEnd()
		a.app.Draw()
	})

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetText("[yellow]Loading current intensity...[white] | " + helpText)
	a.statusBar.SetBorder(false)

	a.focusableItems = []tview.Primitive{a.regionList, a.detail, a.chart, a.diagnostics}
	a.focusTitles = []string{"Regions", "Region Detail", "Time Series", "Diagnostics"}
	a.currentFocus = 0
	a.updateFocusBorders()

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.regionList, 0, 1, true).
		AddItem(a.legend, 7, 0, false)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.detail, 0, 1, false).
		AddItem(a.chart, 0, 1, false)

	top := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(left, 30, 0, true).
		AddItem(a.mapView, 0, 2, false).
		AddItem(right, 0, 3, false)

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 0, 1, true).
		AddItem(a.diagnostics, 8, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.setupDatetimeForm()

	a.pages.AddPage(pageMain, main, true, true)
	a.pages.AddPage(pageDatetime, centered(a.datetime, 44, 7), true, false)

	a.app.SetInputCapture(a.handleKey)

	// re-render the drawn panels when the terminal is resized
	a.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		a.resizePanels()
		return false
	})

	a.app.SetRoot(a.pages, true).SetFocus(a.regionList)
}

func (a *App) setupDatetimeForm() {
	a.datetime = tview.NewForm().
		AddInputField("Date/time", "", 20, nil, nil).
		AddButton("Show", a.submitDatetime).
		AddButton("Cancel", a.hideDatetime)
	a.datetime.SetBorder(true).
		SetTitle(" Intensity at (YYYY-MM-DD HH:MM) ").
		SetTitleAlign(tview.AlignLeft)
	a.datetime.SetCancelFunc(a.hideDatetime)
}

// centered wraps p in a fixed size box in the middle of the screen
func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	// the form owns the keyboard while it is open
	if front, _ := a.pages.GetFrontPage(); front == pageDatetime {
		return event
	}

	switch event.Rune() {
	case 'q', 'Q':
		a.cancel()
		a.app.Stop()
		return nil
	case 'n', 'N':
		a.dispatch("Refresh", func(ctx context.Context) error {
			if a.actions == nil {
				return nil
			}
			return a.actions.Refresh(ctx)
		})
		return nil
	case 'd', 'D':
		a.showDatetime()
		return nil
	}

	switch event.Key() {
	case tcell.KeyTab:
		a.nextFocus()
		return nil
	case tcell.KeyBacktab:
		a.prevFocus()
		return nil
	case tcell.KeyDown, tcell.KeyUp, tcell.KeyPgDn, tcell.KeyPgUp:
		if tv, ok := a.getFocusedItem().(*tview.TextView); ok {
			scrollBy(tv, event.Key())
			return nil
		}
	}

	return event
}

func scrollBy(tv *tview.TextView, key tcell.Key) {
	row, col := tv.GetScrollOffset()
	switch key {
	case tcell.KeyDown:
		row++
	case tcell.KeyUp:
		row--
	case tcell.KeyPgDn:
		row += 10
	case tcell.KeyPgUp:
		row -= 10
	}
	if row < 0 {
		row = 0
	}
	tv.ScrollTo(row, col)
}

func (a *App) showDatetime() {
	field, ok := a.datetime.GetFormItem(0).(*tview.InputField)
	if ok {
		field.SetText(time.Now().In(a.loc).Format("2006-01-02 15:04"))
	}
	a.pages.ShowPage(pageDatetime)
	a.app.SetFocus(a.datetime)
	a.statusBar.SetText("[yellow]Enter a date and time[white] | Enter: confirm, Esc: cancel")
}

func (a *App) hideDatetime() {
	a.pages.HidePage(pageDatetime)
	a.app.SetFocus(a.getFocusedItem())
	a.updateStatusBar()
}

func (a *App) submitDatetime() {
	field, ok := a.datetime.GetFormItem(0).(*tview.InputField)
	if !ok {
		a.hideDatetime()
		return
	}

	at, err := timewindow.ParseLocal(strings.TrimSpace(field.GetText()), a.loc)
	if err != nil {
		a.statusBar.SetText(fmt.Sprintf("[red]%v[white] | Enter: confirm, Esc: cancel", err))
		return
	}

	a.hideDatetime()
	label := "Intensity at " + at.In(a.loc).Format("2006-01-02 15:04")
	a.dispatch(label, func(ctx context.Context) error {
		if a.actions == nil {
			return nil
		}
		return a.actions.ShowAt(ctx, at)
	})
}

// selectIndex activates the marker behind a list row
func (a *App) selectIndex(index int) {
	if index < 0 || index >= len(a.markers) || a.onSelect == nil {
		return
	}
	m := a.markers[index]
	onSelect := a.onSelect
	a.dispatch("Loading "+m.Name, func(ctx context.Context) error {
		return onSelect(ctx, m.RegionID)
	})
}

// dispatch runs fn off the event goroutine and reports its outcome in the
// status bar
func (a *App) dispatch(label string, fn func(ctx context.Context) error) {
	a.statusBar.SetText(fmt.Sprintf("[yellow]%s...[white] | %s", label, helpText))
	go func() {
		err := fn(a.ctx)
		text, ok := statusFor(label, err)
		if !ok || a.ctx.Err() != nil {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetText(text + " | " + helpText)
		})
	}()
}

// statusFor maps the result of an action to status bar text. ok is false
// when the status should be left alone.
func statusFor(label string, err error) (text string, ok bool) {
	switch {
	case err == nil:
		return fmt.Sprintf("[green]%s done[white]", label), true
	case errors.Is(err, controller.ErrStale), errors.Is(err, context.Canceled):
		return "", false
	case errors.Is(err, fetcher.ErrEmptyResult):
		return fmt.Sprintf("[yellow]%s: no data for that time, map unchanged[white]", label), true
	case errors.Is(err, controller.ErrRegionExcluded), errors.Is(err, controller.ErrUnknownRegion):
		return fmt.Sprintf("[yellow]%s: %v[white]", label, err), true
	case fetcher.IsNetwork(err):
		return fmt.Sprintf("[red]%s failed: network error[white]", label), true
	case fetcher.IsDataFormat(err):
		return fmt.Sprintf("[red]%s failed: unexpected response[white]", label), true
	default:
		return fmt.Sprintf("[red]%s failed: %v[white]", label, err), true
	}
}

// ReplaceMarkers swaps the whole marker set
func (a *App) ReplaceMarkers(markers []controller.Marker, onSelect controller.SelectFunc) {
	a.app.QueueUpdateDraw(func() {
		a.markers = markers
		a.onSelect = onSelect
		a.rebuildRegionList()
		a.renderMap()
	})
}

func (a *App) rebuildRegionList() {
	current := -1
	a.regionList.Clear()
	for i, m := range a.markers {
		text := fmt.Sprintf("[%s]%s[-] %2d %s", m.FillColor, markerGlyph, m.RegionID, m.Name)
		a.regionList.AddItem(text, m.Tooltip, 0, nil)
		if m.RegionID == a.selected {
			current = i
		}
	}
	if current >= 0 {
		a.regionList.SetCurrentItem(current)
	}
	a.mapView.SetTitle(fmt.Sprintf(" Map (%d regions) ", len(a.markers)))
}

// ShowDetail fills the detail panel for the selected region
func (a *App) ShowDetail(d controller.Detail) {
	a.app.QueueUpdateDraw(func() {
		a.selected = d.RegionID
		a.detail.SetText(RenderDetail(d))
		a.detail.ScrollToBeginning()
		a.renderMap()
	})
}

// RenderChart draws a series
func (a *App) RenderChart(view controller.ChartView) {
	a.app.QueueUpdateDraw(func() {
		a.chartView = &view
		a.renderChart()
	})
}

// RenderEmpty shows an explicit empty chart state
func (a *App) RenderEmpty(title, message string) {
	a.app.QueueUpdateDraw(func() {
		a.chartView = nil
		a.emptyTitle = title
		a.emptyMessage = message
		a.renderChart()
	})
}

func (a *App) renderMap() {
	w, h := innerSize(a.mapView, defaultMapWidth, defaultMapHeight)
	a.mapView.SetText(RenderMap(a.markers, w, h, a.selected))
}

func (a *App) renderChart() {
	w, h := innerSize(a.chart, defaultChartWidth, defaultChartHeight)
	if a.chartView != nil {
		// title, axis and footer take four rows
		a.chart.SetText(RenderChart(*a.chartView, w, h-4))
		return
	}
	if a.emptyTitle != "" {
		a.chart.SetText(RenderEmptyChart(a.emptyTitle, a.emptyMessage))
	}
}

func (a *App) resizePanels() {
	mw, mh := innerSize(a.mapView, defaultMapWidth, defaultMapHeight)
	if a.mapSize != [2]int{mw, mh} {
		a.mapSize = [2]int{mw, mh}
		a.renderMap()
	}
	cw, ch := innerSize(a.chart, defaultChartWidth, defaultChartHeight)
	if a.chartSize != [2]int{cw, ch} {
		a.chartSize = [2]int{cw, ch}
		a.renderChart()
	}
}

func innerSize(tv *tview.TextView, fallbackW, fallbackH int) (int, int) {
	_, _, w, h := tv.GetInnerRect()
	if w <= 0 || h <= 0 {
		return fallbackW, fallbackH
	}
	return w, h
}

// Run loads the current snapshot and blocks until the user quits
func (a *App) Run() error {
	defer a.cancel()

	if a.actions != nil {
		a.dispatch("Loading current intensity", a.actions.Refresh)
	}
	return a.app.Run()
}

// Navigation helper functions
func (a *App) nextFocus() {
	a.currentFocus = (a.currentFocus + 1) % len(a.focusableItems)
	a.app.SetFocus(a.getFocusedItem())
	a.updateFocusBorders()
	a.updateStatusBar()
}

func (a *App) prevFocus() {
	a.currentFocus = (a.currentFocus - 1 + len(a.focusableItems)) % len(a.focusableItems)
	a.app.SetFocus(a.getFocusedItem())
	a.updateFocusBorders()
	a.updateStatusBar()
}

func (a *App) getFocusedItem() tview.Primitive {
	if a.currentFocus >= 0 && a.currentFocus < len(a.focusableItems) {
		return a.focusableItems[a.currentFocus]
	}
	return nil
}

type bordered interface {
	SetBorder(bool) *tview.Box
	SetBorderColor(tcell.Color) *tview.Box
	SetTitle(string) *tview.Box
	SetTitleAlign(int) *tview.Box
}

func (a *App) updateFocusBorders() {
	for i, item := range a.focusableItems {
		b, ok := item.(bordered)
		if !ok {
			continue
		}
		b.SetBorder(true)
		b.SetTitleAlign(tview.AlignLeft)
		if i == a.currentFocus {
			b.SetBorderColor(tcell.ColorYellow)
			b.SetTitle(" [::b]" + a.focusTitles[i] + "[::-] ")
		} else {
			b.SetBorderColor(tcell.ColorDefault)
			b.SetTitle(" " + a.focusTitles[i] + " ")
		}
	}
}

func (a *App) updateStatusBar() {
	a.statusBar.SetText(fmt.Sprintf("[yellow]%s[white] focused | %s", a.focusTitles[a.currentFocus], helpText))
}
