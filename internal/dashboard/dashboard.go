package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/tableloop/internal/cursor"
	"github.com/torosent/tableloop/internal/looper"
	"github.com/torosent/tableloop/internal/metrics"
)

// RunConfig holds the run parameters shown in the summary panel.
type RunConfig struct {
	Path        string        // Resolved table path
	Format      string        // Table format, auto when detected
	LoopMode    string        // single_pass, repeat or infinite
	RepeatCount int           // Passes in repeat mode
	StartRow    int           // First row iterated
	Ticks       int           // Tick budget (0 = until complete)
	Rate        int           // Ticks per second (0 = unlimited)
	Duration    time.Duration // Run duration (0 = unlimited)
	CacheTTL    time.Duration // Cache time-to-live
	ConfigFile  string        // Path to config file if used
}

// Dashboard renders a live terminal UI for a table loop.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid         *ui.Grid
	loadSparkle  *widgets.SparklineGroup
	latencyPara  *widgets.Paragraph
	passGauge    *widgets.Gauge
	errorList    *widgets.List
	rowList      *widgets.List
	summaryPara  *widgets.Paragraph
	cachePara    *widgets.Paragraph
	cursorPara   *widgets.Paragraph
	tpsHistory   []float64
	lastTicks    int64
	lastUpdate   time.Time
	startTime    time.Time
	runDuration  time.Duration
	runConfig    RunConfig
	lastOutput   looper.Output
	cursorState  cursor.State
	haveCursor   bool
	observations int64
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:    collector,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		tpsHistory:   make([]float64, 0, 100),
		startTime:    time.Now(),
		lastUpdate:   time.Now(),
		runConfig:    cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Ticks/s"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.loadSparkle = widgets.NewSparklineGroup(sparkline)
	d.loadSparkle.Title = "Tick Rate"
	d.loadSparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Load Latency"
	d.latencyPara.Text = "No loads yet"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.passGauge = widgets.NewGauge()
	d.passGauge.Title = "Current Pass"
	d.passGauge.Percent = 0
	d.passGauge.BarColor = ui.ColorBlue
	d.passGauge.BorderStyle.Fg = ui.ColorCyan
	d.passGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.errorList = widgets.NewList()
	d.errorList.Title = "Load Errors"
	d.errorList.Rows = []string{"No failures"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.rowList = widgets.NewList()
	d.rowList.Title = "Last Row"
	d.rowList.Rows = []string{"Awaiting data"}
	d.rowList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.rowList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Table Loop"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.cachePara = widgets.NewParagraph()
	d.cachePara.Title = "Cache"
	d.cachePara.Text = "Waiting for data..."
	d.cachePara.BorderStyle.Fg = ui.ColorCyan

	d.cursorPara = widgets.NewParagraph()
	d.cursorPara.Title = "Cursor"
	d.cursorPara.Text = "No table loaded"
	d.cursorPara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.cursorPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()
	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.passGauge),
			ui.NewCol(0.5, d.cursorPara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.loadSparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.cachePara),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.5, d.rowList),
			ui.NewCol(0.5, d.errorList),
		),
	)
}

// Observe records the latest tick. The looper is single-threaded, so the
// run loop pushes its state here rather than the dashboard reading it.
func (d *Dashboard) Observe(out looper.Output, state cursor.State, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastOutput = out
	d.cursorState = state
	d.haveCursor = ok
	d.observations++
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.runDuration = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// GetFinalStats returns the final statistics after the dashboard has stopped.
func (d *Dashboard) GetFinalStats() metrics.Stats {
	return d.collector.Stats(d.runDuration)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop cancels the context once the run has wound down.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector and the last tick.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(d.startTime)
	stats := d.collector.Stats(elapsed)

	// Instantaneous rate since the previous refresh.
	if window := now.Sub(d.lastUpdate).Seconds(); window > 0 {
		tps := float64(stats.Ticks-d.lastTicks) / window
		d.tpsHistory = append(d.tpsHistory, tps)
		if len(d.tpsHistory) > 100 {
			d.tpsHistory = d.tpsHistory[1:]
		}
		d.loadSparkle.Sparklines[0].Data = d.tpsHistory
		d.loadSparkle.Title = fmt.Sprintf("Tick Rate | Current: %.1f/s | Average: %.1f/s", tps, stats.TicksPerSec)
	}
	d.lastTicks = stats.Ticks
	d.lastUpdate = now

	d.summaryPara.Text = fmt.Sprintf("Source: %s\n%s\nElapsed: %s | Ticks: %d | Completions: %d",
		d.runConfig.Path,
		d.formatRunParams(),
		elapsed.Round(time.Second),
		stats.Ticks,
		stats.Completions,
	)

	percent, label := passProgress(d.cursorState, d.haveCursor)
	d.passGauge.Percent = percent
	d.passGauge.Label = label

	d.cursorPara.Text = formatCursorText(d.cursorState, d.haveCursor, d.lastOutput)
	d.cachePara.Text = formatCacheText(stats)
	d.latencyPara.Text = formatLatencyText(stats)
	d.errorList.Rows = formatErrorRows(stats.Errors)
	if d.observations > 0 {
		d.rowList.Rows = formatRowValues(d.lastOutput, 10)
	}
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

// passProgress reports how far the cursor is through the current pass.
func passProgress(state cursor.State, ok bool) (int, string) {
	if !ok || state.RowCount == 0 {
		return 0, "no rows"
	}
	if state.Terminal {
		return 100, fmt.Sprintf("%d/%d (complete)", state.RowCount, state.RowCount)
	}
	percent := state.RowIndex * 100 / state.RowCount
	return percent, fmt.Sprintf("%d/%d", state.RowIndex, state.RowCount)
}

func formatCursorText(state cursor.State, ok bool, last looper.Output) string {
	if !ok {
		if last.Status != "" {
			return fmt.Sprintf("[%s](fg:red)\n%s", metrics.FriendlyErrorName(string(last.Status)), last.Error)
		}
		return "No table loaded"
	}
	lines := []string{
		fmt.Sprintf("Mode:       %s", state.Policy.Mode),
		fmt.Sprintf("Next row:   %d of %d", state.RowIndex, state.RowCount),
	}
	if state.Policy.Mode == cursor.Repeat {
		lines = append(lines, fmt.Sprintf("Passes:     %d of %d left", state.RemainingRepeats, state.Policy.Count))
	}
	if state.Terminal {
		lines = append(lines, "[Loop complete](fg:yellow,mod:bold)")
	}
	return strings.Join(lines, "\n")
}

func formatCacheText(stats metrics.Stats) string {
	return fmt.Sprintf("Hits: %d | Loads: %d | Failed: %d | Hit ratio: %.1f%% | Sources: %d",
		stats.CacheHits,
		stats.Loads,
		stats.LoadFailures,
		stats.HitRatio*100,
		stats.Sources,
	)
}

func formatLatencyText(stats metrics.Stats) string {
	if stats.Loads == 0 {
		return "No loads yet"
	}
	return fmt.Sprintf("Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		stats.MinLoadMs,
		stats.MeanLoadMs,
		stats.P50LoadMs,
		stats.P90LoadMs,
		stats.P99LoadMs,
	)
}

func formatErrorRows(errs map[string]int) []string {
	rows := metrics.FlattenErrors(errs)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", row.Label, row.Count))
	}
	return formatted
}

// formatRowValues lists up to limit column values of the last tick.
func formatRowValues(out looper.Output, limit int) []string {
	if len(out.Values) == 0 {
		if out.Status != "" {
			return []string{fmt.Sprintf("[%s](fg:red)", out.Status)}
		}
		return []string{"[No columns](fg:green)"}
	}
	values := out.Values
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}
	rows := make([]string, 0, len(values)+1)
	rows = append(rows, fmt.Sprintf("[row %d](fg:white,mod:bold)", out.CurrentRow))
	for _, v := range values {
		rows = append(rows, fmt.Sprintf("[%s](fg:cyan) (%s): %v", v.Name, v.Type, v.Value))
	}
	return rows
}

// formatRunParams formats the run configuration for display.
func (d *Dashboard) formatRunParams() string {
	cfg := d.runConfig
	var parts []string

	if cfg.Format != "" && cfg.Format != "auto" {
		parts = append(parts, fmt.Sprintf("Format: %s", cfg.Format))
	}

	mode := cfg.LoopMode
	if mode == "" {
		mode = "single_pass"
	}
	if mode == "repeat" {
		mode = fmt.Sprintf("repeat x%d", cfg.RepeatCount)
	}
	parts = append(parts, fmt.Sprintf("Mode: %s", mode))

	if cfg.StartRow > 0 {
		parts = append(parts, fmt.Sprintf("Start: %d", cfg.StartRow))
	}

	if cfg.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", cfg.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if cfg.Ticks > 0 {
		parts = append(parts, fmt.Sprintf("Ticks: %d", cfg.Ticks))
	}

	if cfg.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", cfg.Duration))
	}

	if cfg.CacheTTL > 0 {
		parts = append(parts, fmt.Sprintf("TTL: %s", cfg.CacheTTL))
	}

	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
