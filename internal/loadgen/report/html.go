package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
)

// htmlData contains all data needed to render the HTML report.
type htmlData struct {
	Data
	Status       string
	Average      string
	ResultsJSON  template.JS
	StatusCounts []statusCount
}

// statusCount is the number of results that share a response code.
type statusCount struct {
	Code  string
	Count int
	OK    bool
}

// resultPoint is a single result as exported to the chart script.
type resultPoint struct {
	Index     int    `json:"i"`
	User      int    `json:"user"`
	Iteration int    `json:"iteration"`
	Code      string `json:"code"`
	Ms        int64  `json:"ms"`
	OK        bool   `json:"ok"`
}

// WriteHTML renders the HTML report and writes it to path.
func WriteHTML(path string, d Data) error {
	html, err := HTML(d)
	if err != nil {
		return fmt.Errorf("failed to generate HTML report: %w", err)
	}

	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write HTML report: %w", err)
	}
	return nil
}

// HTML renders a self-contained HTML report.
func HTML(d Data) (string, error) {
	if d.Config == nil {
		return "", fmt.Errorf("report data has no configuration")
	}

	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	resultsJSON, err := convertResultsJSON(d.Results)
	if err != nil {
		return "", fmt.Errorf("failed to convert results: %w", err)
	}

	data := htmlData{
		Data:         d,
		Status:       "PASSED",
		Average:      "no data",
		ResultsJSON:  template.JS(resultsJSON),
		StatusCounts: countStatuses(d.Results),
	}
	if d.Totals.FailedRequests > 0 {
		data.Status = "FAILURES"
	}
	if avg, ok := d.Totals.AverageMs(); ok {
		data.Average = fmt.Sprintf("%.2f ms", avg)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// convertResultsJSON converts results to JSON for chart rendering.
func convertResultsJSON(results []metrics.Result) (string, error) {
	if len(results) == 0 {
		return "[]", nil
	}

	points := make([]resultPoint, len(results))
	for i, r := range results {
		points[i] = resultPoint{
			Index:     i + 1,
			User:      r.User,
			Iteration: r.Iteration,
			Code:      r.Code,
			Ms:        r.ElapsedMillis(),
			OK:        r.Success(),
		}
	}

	b, err := json.Marshal(points)
	if err != nil {
		return "[]", err
	}
	return string(b), nil
}

// countStatuses groups results by response code in order of first appearance.
func countStatuses(results []metrics.Result) []statusCount {
	var counts []statusCount
	index := map[string]int{}
	for _, r := range results {
		i, ok := index[r.Code]
		if !ok {
			i = len(counts)
			index[r.Code] = i
			counts = append(counts, statusCount{Code: r.Code, OK: r.Success()})
		}
		counts[i].Count++
	}
	return counts
}

// templateFuncs returns the template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatTime":  func(t time.Time) string { return t.Format(timestampLayout) },
		"seconds":     func(d time.Duration) string { return fmt.Sprintf("%.2f", d.Seconds()) },
		"millis":      func(d time.Duration) int64 { return d.Milliseconds() },
		"successRate": successRate,
	}
}

// successRate returns the percentage of successful requests.
func successRate(t metrics.Totals) float64 {
	if t.TotalRequests == 0 {
		return 0
	}
	return float64(t.SuccessRequests) / float64(t.TotalRequests) * 100
}
