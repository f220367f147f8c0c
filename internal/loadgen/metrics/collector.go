// Package metrics accumulates per-request outcomes for a load test run.
package metrics

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// SuccessCode is the only outcome code counted as a success.
const SuccessCode = "200"

// FailurePrefix starts the outcome code of a request that never got a response.
const FailurePrefix = "Request failed: "

// Result is the outcome of a single request.
//
// Elapsed is zero for transport failures. Latency aggregates include those zeros.
type Result struct {
	Code      string        `json:"code" yaml:"code"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	User      int           `json:"user" yaml:"user"`
	Iteration int           `json:"iteration" yaml:"iteration"`
}

// StatusResult builds a result for a received HTTP status.
func StatusResult(status int, elapsed time.Duration) Result {
	return Result{Code: strconv.Itoa(status), Elapsed: elapsed}
}

// FailureResult builds a result for a request that failed before a response arrived.
func FailureResult(err error) Result {
	return Result{Code: FailurePrefix + err.Error()}
}

// Success reports whether the outcome code is exactly "200".
func (r Result) Success() bool {
	return r.Code == SuccessCode
}

// Failed reports whether the request failed at the transport level.
func (r Result) Failed() bool {
	return strings.HasPrefix(r.Code, FailurePrefix)
}

// ElapsedMillis returns the elapsed time in whole milliseconds.
func (r Result) ElapsedMillis() int64 {
	return r.Elapsed.Milliseconds()
}

// Totals is a view of the running counters.
//
// The counters are independent, so a view taken mid-run may be off by the
// requests being recorded at that instant.
type Totals struct {
	TotalRequests   int64 `json:"totalRequests" yaml:"totalRequests"`
	SuccessRequests int64 `json:"successRequests" yaml:"successRequests"`
	FailedRequests  int64 `json:"failedRequests" yaml:"failedRequests"`
	CumulativeMs    int64 `json:"cumulativeMs" yaml:"cumulativeMs"`
}

// AverageMs returns the average response time, and false when nothing was recorded.
func (t Totals) AverageMs() (float64, bool) {
	if t.TotalRequests == 0 {
		return 0, false
	}
	return float64(t.CumulativeMs) / float64(t.TotalRequests), true
}

// LatencyStats contains the latency aggregates reported for a run.
type LatencyStats struct {
	Min   time.Duration `json:"min" yaml:"min"`
	Max   time.Duration `json:"max" yaml:"max"`
	Avg   time.Duration `json:"avg" yaml:"avg"`
	Count int64         `json:"count" yaml:"count"`
}

// Observer receives every recorded result. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveResult(r Result)
}

// Collector accumulates results from every virtual user of a run.
//
// # Thread Safety
//
// Collector is safe for concurrent use. Counters use atomic operations,
// the result list and histogram use mutex protection.
type Collector struct {
	totalRequests   atomic.Int64
	successRequests atomic.Int64
	failedRequests  atomic.Int64
	cumulativeMs    atomic.Int64

	// Completion-ordered results
	results   []Result
	resultsMu sync.Mutex

	// Range: 1ms to 1 hour, 3 significant figures. Zero-valued failures land in the first bucket.
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	observer Observer
}

// histogramMaxMs is the largest latency the histogram tracks.
const histogramMaxMs = int64(time.Hour / time.Millisecond)

// NewCollector creates an empty collector. The observer may be nil.
func NewCollector(observer Observer) *Collector {
	return &Collector{
		results:     make([]Result, 0, 64),
		latencyHist: hdrhistogram.New(1, histogramMaxMs, 3),
		observer:    observer,
	}
}

// Record appends a result and updates the running totals.
func (c *Collector) Record(r Result) {
	c.resultsMu.Lock()
	c.results = append(c.results, r)
	c.resultsMu.Unlock()

	ms := r.ElapsedMillis()
	c.totalRequests.Add(1)
	if r.Success() {
		c.successRequests.Add(1)
	} else {
		c.failedRequests.Add(1)
	}
	c.cumulativeMs.Add(ms)

	if ms > histogramMaxMs {
		ms = histogramMaxMs
	}
	c.latencyHistMu.Lock()
	_ = c.latencyHist.RecordValue(ms)
	c.latencyHistMu.Unlock()

	if c.observer != nil {
		c.observer.ObserveResult(r)
	}
}

// Snapshot returns the current totals.
func (c *Collector) Snapshot() Totals {
	return Totals{
		TotalRequests:   c.totalRequests.Load(),
		SuccessRequests: c.successRequests.Load(),
		FailedRequests:  c.failedRequests.Load(),
		CumulativeMs:    c.cumulativeMs.Load(),
	}
}

// Results returns a copy of the recorded results in completion order.
func (c *Collector) Results() []Result {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()

	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// Latency returns min, max and average latency over all recorded results.
func (c *Collector) Latency() LatencyStats {
	totals := c.Snapshot()

	c.latencyHistMu.Lock()
	count := c.latencyHist.TotalCount()
	minMs := c.latencyHist.Min()
	maxMs := c.latencyHist.Max()
	c.latencyHistMu.Unlock()

	if count == 0 {
		return LatencyStats{}
	}

	avg, _ := totals.AverageMs()
	return LatencyStats{
		Min:   time.Duration(minMs) * time.Millisecond,
		Max:   time.Duration(maxMs) * time.Millisecond,
		Avg:   time.Duration(avg * float64(time.Millisecond)),
		Count: count,
	}
}

// Stats computes latency aggregates over a list of results.
func Stats(results []Result) LatencyStats {
	if len(results) == 0 {
		return LatencyStats{}
	}

	var total time.Duration
	minD, maxD := results[0].Elapsed, results[0].Elapsed
	for _, r := range results {
		total += r.Elapsed
		if r.Elapsed < minD {
			minD = r.Elapsed
		}
		if r.Elapsed > maxD {
			maxD = r.Elapsed
		}
	}

	return LatencyStats{
		Min:   minD,
		Max:   maxD,
		Avg:   total / time.Duration(len(results)),
		Count: int64(len(results)),
	}
}
