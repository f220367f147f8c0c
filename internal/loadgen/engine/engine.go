// Package engine orchestrates a load test run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/surge/internal/loadgen"
	"github.com/wesleyorama2/surge/internal/loadgen/config"
	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
	"github.com/wesleyorama2/surge/internal/loadgen/rate"
	"github.com/wesleyorama2/surge/internal/loadgen/report"
)

// DefaultDrainTimeout is how long workers get to exit before they are cancelled.
const DefaultDrainTimeout = 60 * time.Second

// ErrAlreadyStarted is returned when Run is called twice on the same Engine.
var ErrAlreadyStarted = errors.New("engine has already been started")

// Engine runs one load test.
//
// It coordinates:
//   - Configuration validation and output directory creation
//   - Ramp-up: one worker per virtual user, started index × stagger apart
//   - The completion barrier over the expected request count
//   - Graceful drain, forced cancellation, reporting and completion
//
// Example usage:
//
//	eng := engine.New(cfg)
//	state, err := eng.Run(ctx, loadgen.Callback{OnProgress: log.Println})
type Engine struct {
	config *config.TestConfiguration

	logger       *zap.Logger
	observer     metrics.Observer
	httpClient   *http.Client
	drainTimeout time.Duration

	collector *metrics.Collector
	stop      *loadgen.StopSignal

	started   atomic.Bool
	expected  atomic.Int64
	remaining atomic.Int64

	vus   []*loadgen.VirtualUser
	vusMu sync.RWMutex
}

// RunState is the outcome of a finished run.
type RunState struct {
	RunID    string
	Start    time.Time
	End      time.Time
	Duration time.Duration

	Totals  metrics.Totals
	Latency metrics.LatencyStats
	Results []metrics.Result

	// Stopped is true when the run ended through Stop or context cancellation.
	Stopped bool

	// ReportErrors holds report write failures. They do not fail the run.
	ReportErrors []error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver mirrors every recorded result to the observer.
func WithObserver(observer metrics.Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithHTTPClient replaces the HTTP client used by the request executor.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = client
	}
}

// WithDrainTimeout sets how long workers may take to exit before cancellation.
func WithDrainTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.drainTimeout = d
		}
	}
}

// New creates an engine for the configuration. The configuration is copied.
func New(cfg *config.TestConfiguration, opts ...Option) *Engine {
	e := &Engine{
		config:       cfg.Clone(),
		logger:       zap.NewNop(),
		drainTimeout: DefaultDrainTimeout,
		stop:         loadgen.NewStopSignal(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.collector = metrics.NewCollector(e.observer)
	return e
}

// Stop asks every worker to finish after its current request.
func (e *Engine) Stop() {
	e.stop.Stop()
}

// Collector returns the run's metrics collector for live progress views.
func (e *Engine) Collector() *metrics.Collector {
	return e.collector
}

// GetProgress returns completed requests over expected requests (0.0 to 1.0).
func (e *Engine) GetProgress() float64 {
	expected := e.expected.Load()
	if expected == 0 {
		return 0
	}
	done := expected - e.remaining.Load()
	return float64(done) / float64(expected)
}

// GetActiveVUs returns the number of virtual users currently issuing requests.
func (e *Engine) GetActiveVUs() int {
	e.vusMu.RLock()
	defer e.vusMu.RUnlock()

	count := 0
	for _, vu := range e.vus {
		if vu.GetState() == loadgen.VUStateRunning {
			count++
		}
	}
	return count
}

// GetStartedRequests returns the number of requests the virtual users have
// started, including those still in flight.
func (e *Engine) GetStartedRequests() int64 {
	e.vusMu.RLock()
	defer e.vusMu.RUnlock()

	var started int64
	for _, vu := range e.vus {
		started += vu.GetIteration()
	}
	return started
}

// Run executes the test and blocks until it has been drained and reported.
//
// Configuration and output directory errors are reported through
// cb.OnProgress and returned before any worker starts; OnComplete is not
// called in that case. Otherwise OnComplete is called exactly once with the
// results collected, including after Stop. Cancelling ctx behaves like Stop.
func (e *Engine) Run(ctx context.Context, cb loadgen.Callback) (*RunState, error) {
	if !e.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	cfg := e.config
	if err := cfg.Validate(); err != nil {
		cb.Progress("Invalid configuration: %v", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		cb.Progress("Error creating report directory: %v", err)
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	runID := uuid.NewString()
	perUser := cfg.PerUserRequests()
	expected := cfg.ExpectedRequests()
	delay := cfg.RequestDelay()
	stagger := cfg.UserStagger()

	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("run starting",
		zap.String("url", cfg.TargetURL()),
		zap.String("method", cfg.Method),
		zap.Int("users", cfg.Users),
		zap.Int("per_user", perUser),
		zap.Duration("delay", delay),
		zap.Duration("stagger", stagger),
	)

	e.expected.Store(int64(expected))
	e.remaining.Store(int64(expected))

	start := time.Now()

	cb.Progress("Starting test with %d users...", cfg.Users)
	cb.Progress("Total requests per user: %d", perUser)
	cb.Progress("Total requests: %d", expected)

	executor := loadgen.NewExecutor(cfg, loadgen.WithHTTPClient(e.httpClient))
	defer executor.Close()

	// Workers outlive ctx until the drain window expires.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	allDone := make(chan struct{})
	var allDoneOnce sync.Once
	onRequest := func() {
		if e.remaining.Add(-1) == 0 {
			allDoneOnce.Do(func() { close(allDone) })
		}
	}

	var g errgroup.Group
	g.SetLimit(cfg.Users)

	for i := 0; i < cfg.Users; i++ {
		vu := loadgen.NewVirtualUser(i, executor, e.collector, e.stop)
		e.vusMu.Lock()
		e.vus = append(e.vus, vu)
		e.vusMu.Unlock()

		startAt := start.Add(time.Duration(i) * stagger)
		g.Go(func() error {
			if !e.waitUntil(workCtx, startAt) {
				return nil
			}

			plan := loadgen.Plan{Budget: perUser, Delay: delay}
			if cfg.Pacing == config.PacingRate {
				plan.Pacer = rate.NewLeakyBucket(float64(cfg.RequestsPerSecond))
			}
			return vu.Run(workCtx, plan, cb, onRequest)
		})
	}

	poolDone := make(chan error, 1)
	go func() {
		poolDone <- g.Wait()
	}()

	// Completion barrier
	var poolErr error
	poolFinished := false
	select {
	case <-allDone:
	case <-e.stop.Done():
		logger.Info("stop requested")
	case <-ctx.Done():
		logger.Info("context cancelled, stopping", zap.Error(ctx.Err()))
		e.Stop()
	case poolErr = <-poolDone:
		poolFinished = true
	}

	if !poolFinished {
		poolErr = e.drain(poolDone, cancelWork, logger)
	}
	if poolErr != nil {
		logger.Warn("workers ended with error", zap.Error(poolErr))
	}

	end := time.Now()
	state := &RunState{
		RunID:    runID,
		Start:    start,
		End:      end,
		Duration: end.Sub(start),
		Totals:   e.collector.Snapshot(),
		Latency:  e.collector.Latency(),
		Results:  e.collector.Results(),
		Stopped:  e.stop.Stopped(),
	}

	state.ReportErrors = report.Write(cfg.OutputDir, report.Data{
		Config:  cfg,
		RunID:   runID,
		Start:   start,
		End:     end,
		Totals:  state.Totals,
		Latency: state.Latency,
		Results: state.Results,
	}, cfg.Formats)
	for _, err := range state.ReportErrors {
		cb.Progress("Error writing report: %v", err)
		logger.Warn("report write failed", zap.Error(err))
	}

	logger.Info("run finished",
		zap.Duration("duration", state.Duration),
		zap.Int64("total", state.Totals.TotalRequests),
		zap.Int64("failed", state.Totals.FailedRequests),
		zap.Bool("stopped", state.Stopped),
	)

	cb.Progress("Test completed. Reports generated in: %s", cfg.OutputDir)
	cb.Complete(state.Results)

	return state, nil
}

// drain waits for the pool to exit, cancelling workers after the drain timeout.
func (e *Engine) drain(poolDone <-chan error, cancelWork context.CancelFunc, logger *zap.Logger) error {
	timer := time.NewTimer(e.drainTimeout)
	defer timer.Stop()

	select {
	case err := <-poolDone:
		return err
	case <-timer.C:
		logger.Warn("workers did not exit in time, cancelling",
			zap.Duration("drain_timeout", e.drainTimeout),
			zap.Int("active_vus", e.GetActiveVUs()),
		)
		cancelWork()
		return <-poolDone
	}
}

// waitUntil blocks until t. It returns false if the run was stopped or cancelled first.
func (e *Engine) waitUntil(ctx context.Context, t time.Time) bool {
	wait := time.Until(t)
	if wait <= 0 {
		return !e.stop.Stopped() && ctx.Err() == nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-e.stop.Done():
		return false
	case <-timer.C:
		return true
	}
}
