package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
)

// summaryDocument is the machine-readable form of the summary report.
type summaryDocument struct {
	RunID  string `yaml:"runId"`
	Config struct {
		URL               string `yaml:"url"`
		Method            string `yaml:"method"`
		Users             int    `yaml:"users"`
		RampUpSeconds     int    `yaml:"rampUpSeconds"`
		LoopCount         int    `yaml:"loopCount"`
		RequestsPerSecond int    `yaml:"requestsPerSecond"`
	} `yaml:"config"`
	Start           string         `yaml:"start"`
	End             string         `yaml:"end"`
	DurationSeconds float64        `yaml:"durationSeconds"`
	Totals          metrics.Totals `yaml:"totals"`
	Latency         *latencyMillis `yaml:"latencyMs,omitempty"`
}

type latencyMillis struct {
	Min int64   `yaml:"min"`
	Max int64   `yaml:"max"`
	Avg float64 `yaml:"avg"`
}

func newSummaryDocument(d Data) summaryDocument {
	var doc summaryDocument
	doc.RunID = d.RunID
	doc.Config.URL = d.Config.TargetURL()
	doc.Config.Method = d.Config.Method
	doc.Config.Users = d.Config.Users
	doc.Config.RampUpSeconds = d.Config.RampUp
	doc.Config.LoopCount = d.Config.LoopCount
	doc.Config.RequestsPerSecond = d.Config.RequestsPerSecond
	doc.Start = d.Start.Format(time.RFC3339Nano)
	doc.End = d.End.Format(time.RFC3339Nano)
	doc.DurationSeconds = d.Duration().Seconds()
	doc.Totals = d.Totals

	if avg, ok := d.Totals.AverageMs(); ok {
		doc.Latency = &latencyMillis{
			Min: d.Latency.Min.Milliseconds(),
			Max: d.Latency.Max.Milliseconds(),
			Avg: avg,
		}
	}
	return doc
}

// SummaryYAML renders the summary as YAML.
func SummaryYAML(d Data) ([]byte, error) {
	return yaml.Marshal(newSummaryDocument(d))
}

// WriteYAML writes the YAML summary to path.
func WriteYAML(path string, d Data) error {
	out, err := SummaryYAML(d)
	if err != nil {
		return fmt.Errorf("failed to encode YAML summary: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to save YAML summary: %w", err)
	}
	return nil
}
