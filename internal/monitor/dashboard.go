package monitor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	progressWidth   = 40
)

// Model is the bubbletea model for the dashboard.
type Model struct {
	serverURL  string
	interval   time.Duration
	client     *StatsClient
	lastUpdate time.Time
	prev       *Sample
	metrics    MetricsSnapshot
	err        error
	quitting   bool

	heapProgress   progress.Model
	searchProgress progress.Model
}

// MetricsSnapshot holds what the dashboard renders.
type MetricsSnapshot struct {
	Documents  int
	Dimension  int
	Rates      Rates
	Goroutines int
	HeapBytes  uint64
	Uptime     int64

	DocumentsHistory  []float64
	SearchRateHistory []float64
	AddRateHistory    []float64
	LatencyHistory    []float64
	HeapHistory       []float64

	// Peaks scale the progress bars.
	SearchRatePeak float64
	HeapPeak       uint64
}

// ANSI 256 palette.
const (
	colorAccent  = lipgloss.Color("51")
	colorLabel   = lipgloss.Color("45")
	colorValue   = lipgloss.Color("231")
	colorMuted   = lipgloss.Color("245")
	colorBorder  = lipgloss.Color("238")
	colorOK      = lipgloss.Color("46")
	colorWarn    = lipgloss.Color("226")
	colorBad     = lipgloss.Color("196")
	colorOnLight = lipgloss.Color("0")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorOnLight).Background(colorAccent).Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(colorLabel)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorValue)
	dimStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	chartStyle   = lipgloss.NewStyle().Foreground(colorAccent)
	frameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(1, 2)

	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	badStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBad)
)

// Search latency thresholds in milliseconds.
const (
	latencyWarnMS = 100
	latencyBadMS  = 500
)

// NewModel creates a dashboard polling serverURL every interval.
func NewModel(serverURL string, interval time.Duration) Model {
	return Model{
		serverURL: serverURL,
		interval:  interval,
		client:    NewStatsClient(serverURL),
		heapProgress:   progress.New(progress.WithGradient("#5fd700", "#ffd700"), progress.WithWidth(progressWidth)),
		searchProgress: progress.New(progress.WithGradient("#00d7ff", "#d700ff"), progress.WithWidth(progressWidth)),
		metrics: MetricsSnapshot{
			DocumentsHistory:  make([]float64, 0, historySize),
			SearchRateHistory: make([]float64, 0, historySize),
			AddRateHistory:    make([]float64, 0, historySize),
			LatencyHistory:    make([]float64, 0, historySize),
			HeapHistory:       make([]float64, 0, historySize),
			SearchRatePeak:    1,
		},
	}
}

func getLatencyBadge(latencyMS float64) string {
	switch {
	case latencyMS >= latencyBadMS:
		return badStyle.Render("[✗]")
	case latencyMS >= latencyWarnMS:
		return warnStyle.Render("[⚠]")
	default:
		return okStyle.Render("[✓]")
	}
}

// getStatusBadge is ERROR on any failed operation or slow searches.
func getStatusBadge(latencyMS, errorsPerMin float64) string {
	switch {
	case errorsPerMin > 0 || latencyMS >= latencyBadMS:
		return badStyle.Render("✗ ERROR")
	case latencyMS >= latencyWarnMS:
		return warnStyle.Render("⚠ WARN")
	default:
		return okStyle.Render("✓ HEALTHY")
	}
}

// appendToHistory keeps the newest historySize values.
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if over := len(history) - historySize; over > 0 {
		history = history[over:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	chart := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		chart.Push(v)
	}
	return chartStyle.Render(chart.View())
}

type tickMsg time.Time
type sampleMsg Sample
type errMsg error

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchStats(m.client),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStats(client *StatsClient) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stats, err := client.Fetch(ctx)
		if err != nil {
			return errMsg(err)
		}
		return sampleMsg(Sample{At: time.Now(), Stats: stats})
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStats(m.client)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetchStats(m.client),
		)

	case sampleMsg:
		m.applySample(Sample(msg))
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// applySample folds a new sample into the snapshot. Rates need two samples,
// so the first one only sets the gauges.
func (m *Model) applySample(s Sample) {
	next := m.metrics
	next.Documents = s.Stats.Documents
	next.Dimension = s.Stats.Dimension
	next.Goroutines = s.Stats.Goroutines
	next.HeapBytes = s.Stats.HeapBytes
	next.Uptime = s.Stats.UptimeSeconds

	if m.prev != nil {
		next.Rates = ComputeRates(*m.prev, s)
		next.SearchRateHistory = appendToHistory(next.SearchRateHistory, next.Rates.SearchPerMin)
		next.AddRateHistory = appendToHistory(next.AddRateHistory, next.Rates.AddPerMin)
		next.LatencyHistory = appendToHistory(next.LatencyHistory, next.Rates.AvgSearchLatency*1000)
	}
	next.DocumentsHistory = appendToHistory(next.DocumentsHistory, float64(next.Documents))
	next.HeapHistory = appendToHistory(next.HeapHistory, float64(next.HeapBytes))

	if next.Rates.SearchPerMin > next.SearchRatePeak {
		next.SearchRatePeak = next.Rates.SearchPerMin
	}
	if next.HeapBytes > next.HeapPeak {
		next.HeapPeak = next.HeapBytes
	}

	m.metrics = next
	m.prev = &s
	m.lastUpdate = s.At
	m.err = nil
}

func (m Model) View() string {
	switch {
	case m.quitting:
		return ""
	case m.err != nil:
		return m.renderError()
	default:
		return m.renderDashboard()
	}
}

func (m Model) renderError() string {
	lines := []string{
		titleStyle.Render("memvec Monitor"),
		"",
		badStyle.Render("⚠ Cannot reach memvec server"),
		"",
		dimStyle.Render("URL: ") + valueStyle.Render(m.serverURL),
		dimStyle.Render("Error: ") + badStyle.Render(m.err.Error()),
		"",
		dimStyle.Render("Start it with: memvec serve"),
		"",
		dimStyle.Render("[q] quit  [r] retry"),
	}
	return frameStyle.Render(strings.Join(lines, "\n"))
}

// field renders "  label: value" followed by optional trailing cells.
func field(label, value string, extra ...string) string {
	row := labelStyle.Render("  "+label+": ") + value
	for _, e := range extra {
		row += "   " + e
	}
	return row
}

func ratio(n, d float64) float64 {
	if d <= 0 {
		return 0
	}
	return math.Min(n/d, 1)
}

func (m Model) renderDashboard() string {
	snap := m.metrics
	rates := snap.Rates
	latencyMS := rates.AvgSearchLatency * 1000

	updated := "Never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}

	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\n") }
	section := func(name string) { line("\n" + sectionStyle.Render("┃ "+name)) }

	line(titleStyle.Render(" memvec Monitor "))
	line(strings.Join([]string{
		getStatusBadge(latencyMS, rates.ErrorsPerMin),
		dimStyle.Render("Uptime:") + " " + valueStyle.Render(FormatDuration(snap.Uptime)),
		dimStyle.Render("Updated: " + updated),
	}, "   "))

	section("Store")
	line(field("Documents",
		valueStyle.Render(strconv.Itoa(snap.Documents))+dimStyle.Render(fmt.Sprintf("  (dim %d)", snap.Dimension)),
		createSparkline(snap.DocumentsHistory)))
	line(field("Adds", valueStyle.Render(FormatRate(rates.AddPerMin)), createSparkline(snap.AddRateHistory)))
	line(field("Deletes", valueStyle.Render(FormatRate(rates.DeletePerMin))))

	section("Search")
	line(field("Rate", valueStyle.Render(FormatRate(rates.SearchPerMin)), createSparkline(snap.SearchRateHistory)))
	line(field("Latency (avg)",
		valueStyle.Render(FormatLatency(rates.AvgSearchLatency))+" "+getLatencyBadge(latencyMS),
		createSparkline(snap.LatencyHistory)))
	load := ratio(rates.SearchPerMin, snap.SearchRatePeak)
	line(field("Load", m.searchProgress.ViewAs(load)+" "+dimStyle.Render(FormatPercentage(load))))
	line(field("Errors", valueStyle.Render(FormatRate(rates.ErrorsPerMin))))

	section("System")
	line(field("Heap", m.heapProgress.ViewAs(ratio(float64(snap.HeapBytes), float64(snap.HeapPeak)))+
		" "+valueStyle.Render(FormatMemory(snap.HeapBytes))+
		dimStyle.Render(" of peak "+FormatMemory(snap.HeapPeak))))
	line(field("Goroutines", valueStyle.Render(strconv.Itoa(snap.Goroutines))))

	b.WriteString("\n" + keyStyle.Render("[q]") + dimStyle.Render(" quit  ") +
		keyStyle.Render("[r]") + dimStyle.Render(" refresh  ") +
		dimStyle.Render("every "+m.interval.String()))

	return frameStyle.Render(b.String())
}
