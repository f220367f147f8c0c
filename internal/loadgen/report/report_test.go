package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/surge/internal/loadgen/config"
	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
)

func sampleData() Data {
	start := time.Date(2026, 10, 19, 14, 3, 5, 0, time.UTC)
	results := []metrics.Result{
		{Code: "200", Elapsed: 50 * time.Millisecond, User: 1, Iteration: 1},
		{Code: "404", Elapsed: 30 * time.Millisecond, User: 2, Iteration: 1},
		metrics.FailureResult(errors.New("connection refused")),
	}

	c := metrics.NewCollector(nil)
	for _, r := range results {
		c.Record(r)
	}

	return Data{
		Config: &config.TestConfiguration{
			URL:               "http://localhost:8080/health",
			Method:            "GET",
			Users:             2,
			RampUp:            1,
			LoopCount:         3,
			RequestsPerSecond: 4,
		},
		RunID:   "run-1",
		Start:   start,
		End:     start.Add(1234 * time.Millisecond),
		Totals:  c.Snapshot(),
		Latency: c.Latency(),
		Results: c.Results(),
	}
}

func TestSummary(t *testing.T) {
	out := Summary(sampleData())

	for _, want := range []string{
		"Load Test Summary Report\n",
		"URL: http://localhost:8080/health\n",
		"HTTP Method: GET\n",
		"Number of Users: 2\n",
		"Ramp-up Time: 1 seconds\n",
		"Loop Count: 3\n",
		"Requests per Second: 4\n",
		"Test Start Time: Mon Oct 19 14:03:05 UTC 2026\n",
		"Test End Time: Mon Oct 19 14:03:06 UTC 2026\n",
		"Test Duration: 1.23 seconds\n",
		"Total Requests: 3\n",
		"Successful Requests: 1\n",
		"Failed Requests: 2\n",
		"Average Response Time: 26.67 ms\n",
		"Minimum Response Time: 0 ms\n",
		"Maximum Response Time: 50 ms\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestSummary_NoData(t *testing.T) {
	d := sampleData()
	d.Totals = metrics.Totals{}
	d.Latency = metrics.LatencyStats{}
	d.Results = nil

	out := Summary(d)
	if !strings.Contains(out, "Average Response Time: no data\n") {
		t.Errorf("summary should report no data:\n%s", out)
	}
	if strings.Contains(out, "NaN") || strings.Contains(out, "Inf") {
		t.Errorf("summary divided by zero:\n%s", out)
	}
}

func TestDetailed(t *testing.T) {
	out := Detailed(sampleData())

	if !strings.HasPrefix(out, "Detailed Report:\nTest Start Time: ") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "Test Duration: 1.23 seconds\n\n") {
		t.Errorf("header should end with duration and a blank line:\n%s", out)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	body := lines[len(lines)-3:]
	want := []string{
		"Response Code: 200 | Response Time: 50 ms",
		"Response Code: 404 | Response Time: 30 ms",
		"Response Code: Request failed: connection refused | Response Time: 0 ms",
	}
	for i := range want {
		if body[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, body[i], want[i])
		}
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	errs := Write(dir, sampleData(), []string{config.FormatYAML, config.FormatXLSX, config.FormatHTML})
	if len(errs) != 0 {
		t.Fatalf("Write() errors = %v", errs)
	}

	for _, name := range []string{SummaryFile, DetailedFile, SummaryYAMLFile, DetailedXLSXFile, HTMLFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	summary, _ := os.ReadFile(filepath.Join(dir, SummaryFile))
	if string(summary) != Summary(sampleData()) {
		t.Error("summary file content differs from Summary()")
	}
}

func TestWrite_Failure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	errs := Write(dir, sampleData(), nil)
	if len(errs) != 2 {
		t.Fatalf("Write() returned %d errors, want 2", len(errs))
	}
	if !strings.Contains(errs[0].Error(), "summary") || !strings.Contains(errs[1].Error(), "detailed") {
		t.Errorf("errors should name the report: %v", errs)
	}
}

func TestSummaryYAML(t *testing.T) {
	out, err := SummaryYAML(sampleData())
	if err != nil {
		t.Fatalf("SummaryYAML() error = %v", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if doc["runId"] != "run-1" {
		t.Errorf("runId = %v", doc["runId"])
	}
	totals, ok := doc["totals"].(map[string]interface{})
	if !ok || totals["totalRequests"] != 3 {
		t.Errorf("totals = %v", doc["totals"])
	}
	if _, ok := doc["latencyMs"]; !ok {
		t.Error("latencyMs should be present when requests were recorded")
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), DetailedXLSXFile)
	if err := WriteXLSX(path, sampleData()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(requestsSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if rows[0][3] != "Response Code" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "200" || rows[1][4] != "50" {
		t.Errorf("first row = %v", rows[1])
	}
}
