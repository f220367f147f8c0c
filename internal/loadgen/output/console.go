// Package output renders run progress and results on a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/wesleyorama2/surge/internal/loadgen/config"
	"github.com/wesleyorama2/surge/internal/loadgen/engine"
	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
)

const boxHorizontal = "━"

// ColorScheme defines the colors used for different elements in the output.
type ColorScheme struct {
	Title    *color.Color
	Rule     *color.Color
	Success  *color.Color
	Warn     *color.Color
	Error    *color.Color
	Value    *color.Color
	Dim      *color.Color
	Label    *color.Color
	Progress *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:    color.New(color.Bold),
		Rule:     color.New(color.FgCyan),
		Success:  color.New(color.FgGreen),
		Warn:     color.New(color.FgYellow),
		Error:    color.New(color.FgRed, color.Bold),
		Value:    color.New(color.FgCyan),
		Dim:      color.New(color.Faint),
		Label:    color.New(color.FgMagenta, color.Bold),
		Progress: color.New(color.FgWhite),
	}
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range []*color.Color{
		scheme.Title, scheme.Rule, scheme.Success, scheme.Warn, scheme.Error,
		scheme.Value, scheme.Dim, scheme.Label, scheme.Progress,
	} {
		c.DisableColor()
	}
	return scheme
}

// LiveStats is a periodic status line.
type LiveStats struct {
	Elapsed       time.Duration
	Progress      float64 // 0.0 to 1.0
	ActiveVUs     int
	TargetVUs     int
	TotalRequests int64
	InFlight      int64
	Errors        int64
	AvgMs         float64
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	Quiet       bool
	NoColor     bool
	ForceColors bool
}

// Console writes progress messages and summaries.
//
// Console is safe for concurrent use; progress arrives from every worker.
type Console struct {
	writer io.Writer
	quiet  bool
	colors *ColorScheme
	mu     sync.Mutex
}

// NewConsole creates a console writer.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	useColors := cfg.ForceColors || (!cfg.NoColor && isTerminal(cfg.Writer) && supportsColors())

	scheme := NoColorScheme()
	if useColors {
		scheme = DefaultColorScheme()
		for _, c := range []*color.Color{
			scheme.Title, scheme.Rule, scheme.Success, scheme.Warn, scheme.Error,
			scheme.Value, scheme.Dim, scheme.Label, scheme.Progress,
		} {
			c.EnableColor()
		}
	}

	return &Console{
		writer: cfg.Writer,
		quiet:  cfg.Quiet,
		colors: scheme,
	}
}

// isTerminal checks if the writer is a terminal.
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return checkIsTerminal(f)
	}
	return false
}

// supportsColors checks the environment for color support.
func supportsColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}

// PrintHeader prints the run header.
func (c *Console) PrintHeader(cfg *config.TestConfiguration) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat(boxHorizontal, 56)
	c.writeln(c.colors.Rule.Sprint(line))
	c.writeln(c.colors.Title.Sprintf("%s %s", cfg.Method, cfg.TargetURL()))
	c.writeln(fmt.Sprintf("Users: %s | Ramp-up: %s | Loops: %s | Rate: %s",
		c.colors.Value.Sprint(cfg.Users),
		c.colors.Value.Sprintf("%ds", cfg.RampUp),
		c.colors.Value.Sprint(cfg.LoopCount),
		c.colors.Value.Sprintf("%d/s", cfg.RequestsPerSecond)))
	c.writeln(c.colors.Rule.Sprint(line))
	c.writeln("")
}

// Progress prints one progress message, colored by what it reports.
// In quiet mode only error messages are printed.
func (c *Console) Progress(message string) {
	if c.quiet && !isErrorMessage(message) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeln(c.colorizeProgress(message))
}

// colorizeProgress picks a color for a progress message.
func (c *Console) colorizeProgress(message string) string {
	switch {
	case strings.Contains(message, "with status "+metrics.SuccessCode+" "):
		return c.colors.Success.Sprint(message)
	case strings.Contains(message, "with status "+metrics.FailurePrefix):
		return c.colors.Error.Sprint(message)
	case strings.Contains(message, "with status "):
		return c.colors.Warn.Sprint(message)
	case isErrorMessage(message):
		return c.colors.Error.Sprint(message)
	case strings.Contains(message, "stopped"):
		return c.colors.Warn.Sprint(message)
	default:
		return c.colors.Progress.Sprint(message)
	}
}

// isErrorMessage reports whether a progress message describes a configuration or report error.
func isErrorMessage(message string) bool {
	return strings.HasPrefix(message, "Error") || strings.HasPrefix(message, "Invalid")
}

// PrintCompletion prints the response time aggregates over the completed results.
func (c *Console) PrintCompletion(stats metrics.LatencyStats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if stats.Count == 0 {
		c.writeln(c.colors.Dim.Sprint("Test finished with no results"))
		return
	}
	c.writeln(c.colors.Dim.Sprintf("Test finished: %d results | min %dms | max %dms | avg %dms",
		stats.Count, stats.Min.Milliseconds(), stats.Max.Milliseconds(), stats.Avg.Milliseconds()))
}

// PrintStatus prints a one-line status update.
func (c *Console) PrintStatus(stats LiveStats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(c.colors.Dim.Sprintf("[%s] Progress: %.0f%% | VUs: %d/%d | Reqs: %d | In flight: %d | Errors: %d | Avg: %.1fms",
		formatDuration(stats.Elapsed),
		stats.Progress*100,
		stats.ActiveVUs,
		stats.TargetVUs,
		stats.TotalRequests,
		stats.InFlight,
		stats.Errors,
		stats.AvgMs))
}

// PrintSummary prints the final result of a run.
func (c *Console) PrintSummary(state *engine.RunState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quiet {
		c.writeln(fmt.Sprintf("%d requests, %d successful, %d failed",
			state.Totals.TotalRequests, state.Totals.SuccessRequests, state.Totals.FailedRequests))
		return
	}

	line := strings.Repeat(boxHorizontal, 56)
	status := c.colors.Success.Sprint("Completed ✓")
	if state.Stopped {
		status = c.colors.Warn.Sprint("Stopped")
	}

	c.writeln("")
	c.writeln(c.colors.Rule.Sprint(line))
	c.writeln(fmt.Sprintf("%s - %s", c.colors.Title.Sprint("Load test"), status))
	c.writeln(c.colors.Rule.Sprint(line))
	c.writeln("")

	c.writeln(fmt.Sprintf("Duration:      %s", c.colors.Value.Sprint(formatDuration(state.Duration))))
	c.writeln(fmt.Sprintf("Total Reqs:    %s", c.colors.Value.Sprint(formatNumber(state.Totals.TotalRequests))))
	c.writeln(fmt.Sprintf("Successful:    %s", c.colors.Success.Sprint(formatNumber(state.Totals.SuccessRequests))))

	failed := c.colors.Success
	if state.Totals.FailedRequests > 0 {
		failed = c.colors.Error
	}
	c.writeln(fmt.Sprintf("Failed:        %s", failed.Sprint(formatNumber(state.Totals.FailedRequests))))
	c.writeln("")

	c.writeln(c.colors.Label.Sprint("Response Time:"))
	if avg, ok := state.Totals.AverageMs(); ok {
		c.writeln(fmt.Sprintf("  Min:       %dms", state.Latency.Min.Milliseconds()))
		c.writeln(fmt.Sprintf("  Avg:       %.2fms", avg))
		c.writeln(fmt.Sprintf("  Max:       %dms", state.Latency.Max.Milliseconds()))
	} else {
		c.writeln("  no data")
	}
	c.writeln("")
}

// writeln writes to the output with a newline.
func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

// StatsFrom builds a status line from the engine's live counters.
func StatsFrom(eng *engine.Engine, started time.Time, targetVUs int) LiveStats {
	totals := eng.Collector().Snapshot()
	avg, _ := totals.AverageMs()
	inFlight := eng.GetStartedRequests() - totals.TotalRequests
	if inFlight < 0 {
		inFlight = 0
	}
	return LiveStats{
		Elapsed:       time.Since(started),
		Progress:      eng.GetProgress(),
		ActiveVUs:     eng.GetActiveVUs(),
		TargetVUs:     targetVUs,
		TotalRequests: totals.TotalRequests,
		InFlight:      inFlight,
		Errors:        totals.FailedRequests,
		AvgMs:         avg,
	}
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		result.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}
	return result.String()
}
