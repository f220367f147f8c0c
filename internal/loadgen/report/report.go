// Package report renders the results of a load test run to files.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wesleyorama2/surge/internal/loadgen/config"
	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
)

// Report file names.
const (
	SummaryFile      = "summary_report.txt"
	DetailedFile     = "detailed_report.txt"
	SummaryYAMLFile  = "summary_report.yaml"
	DetailedXLSXFile = "detailed_report.xlsx"
	HTMLFile         = "report.html"
)

// timestampLayout renders report timestamps, e.g. "Mon Oct 19 14:03:05 UTC 2026".
const timestampLayout = "Mon Jan 02 15:04:05 MST 2006"

// Data is everything a report is rendered from.
type Data struct {
	Config  *config.TestConfiguration
	RunID   string
	Start   time.Time
	End     time.Time
	Totals  metrics.Totals
	Latency metrics.LatencyStats
	Results []metrics.Result
}

// Duration returns the wall-clock duration of the run.
func (d Data) Duration() time.Duration {
	return d.End.Sub(d.Start)
}

// Summary renders the summary report.
func Summary(d Data) string {
	cfg := d.Config
	var sb strings.Builder

	sb.WriteString("Load Test Summary Report\n")
	sb.WriteString("=======================\n\n")

	sb.WriteString("Test Configuration:\n")
	sb.WriteString("------------------\n")
	fmt.Fprintf(&sb, "URL: %s\n", cfg.TargetURL())
	fmt.Fprintf(&sb, "HTTP Method: %s\n", cfg.Method)
	fmt.Fprintf(&sb, "Number of Users: %d\n", cfg.Users)
	fmt.Fprintf(&sb, "Ramp-up Time: %d seconds\n", cfg.RampUp)
	fmt.Fprintf(&sb, "Loop Count: %d\n", cfg.LoopCount)
	fmt.Fprintf(&sb, "Requests per Second: %d\n\n", cfg.RequestsPerSecond)

	sb.WriteString("Test Results:\n")
	sb.WriteString("-------------\n")
	writeTiming(&sb, d)
	fmt.Fprintf(&sb, "Total Requests: %d\n", d.Totals.TotalRequests)
	fmt.Fprintf(&sb, "Successful Requests: %d\n", d.Totals.SuccessRequests)
	fmt.Fprintf(&sb, "Failed Requests: %d\n", d.Totals.FailedRequests)

	if avg, ok := d.Totals.AverageMs(); ok {
		fmt.Fprintf(&sb, "Average Response Time: %.2f ms\n", avg)
		fmt.Fprintf(&sb, "Minimum Response Time: %d ms\n", d.Latency.Min.Milliseconds())
		fmt.Fprintf(&sb, "Maximum Response Time: %d ms\n", d.Latency.Max.Milliseconds())
	} else {
		sb.WriteString("Average Response Time: no data\n")
	}

	return sb.String()
}

// Detailed renders the per-request report in completion order.
func Detailed(d Data) string {
	var sb strings.Builder

	sb.WriteString("Detailed Report:\n")
	writeTiming(&sb, d)
	sb.WriteString("\n")

	for _, r := range d.Results {
		fmt.Fprintf(&sb, "Response Code: %s | Response Time: %d ms\n", r.Code, r.ElapsedMillis())
	}

	return sb.String()
}

func writeTiming(sb *strings.Builder, d Data) {
	fmt.Fprintf(sb, "Test Start Time: %s\n", d.Start.Format(timestampLayout))
	fmt.Fprintf(sb, "Test End Time: %s\n", d.End.Format(timestampLayout))
	fmt.Fprintf(sb, "Test Duration: %.2f seconds\n", d.Duration().Seconds())
}

// Write writes the text reports and any extra formats into dir.
//
// Every artifact is attempted; the returned slice holds one error per
// artifact that could not be written.
func Write(dir string, d Data, formats []string) []error {
	var errs []error

	if err := writeFile(filepath.Join(dir, SummaryFile), Summary(d)); err != nil {
		errs = append(errs, fmt.Errorf("failed to save summary report: %w", err))
	}
	if err := writeFile(filepath.Join(dir, DetailedFile), Detailed(d)); err != nil {
		errs = append(errs, fmt.Errorf("failed to save detailed report: %w", err))
	}

	for _, format := range formats {
		var err error
		switch format {
		case config.FormatYAML:
			err = WriteYAML(filepath.Join(dir, SummaryYAMLFile), d)
		case config.FormatXLSX:
			err = WriteXLSX(filepath.Join(dir, DetailedXLSXFile), d)
		case config.FormatHTML:
			err = WriteHTML(filepath.Join(dir, HTMLFile), d)
		default:
			err = fmt.Errorf("unknown report format: %s", format)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
