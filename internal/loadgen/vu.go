package loadgen

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
	"github.com/wesleyorama2/surge/internal/loadgen/rate"
)

// VUState represents the lifecycle state of a Virtual User.
type VUState int32

const (
	// VUStateIdle indicates the VU is waiting for its ramp-up slot.
	VUStateIdle VUState = iota
	// VUStateRunning indicates the VU is issuing requests.
	VUStateRunning
	// VUStateStopping indicates the VU observed the stop signal.
	VUStateStopping
	// VUStateStopped indicates the VU has returned.
	VUStateStopped
)

func (s VUState) String() string {
	switch s {
	case VUStateIdle:
		return "idle"
	case VUStateRunning:
		return "running"
	case VUStateStopping:
		return "stopping"
	case VUStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Plan describes the request stream of one virtual user.
type Plan struct {
	// Budget is the number of requests to issue.
	Budget int

	// Delay is the pause after each request when Pacer is nil.
	Delay time.Duration

	// Pacer spaces request starts instead of Delay when set.
	Pacer *rate.LeakyBucket
}

// VirtualUser is one simulated client issuing a sequential stream of requests.
type VirtualUser struct {
	// Index is the zero-based position of the VU in the ramp-up order.
	Index int

	executor  *Executor
	collector *metrics.Collector
	stop      *StopSignal

	state     atomic.Int32
	iteration atomic.Int64
}

// NewVirtualUser creates a virtual user.
//
// The collector and stop signal are shared with every other VU of the run.
func NewVirtualUser(index int, executor *Executor, collector *metrics.Collector, stop *StopSignal) *VirtualUser {
	return &VirtualUser{
		Index:     index,
		executor:  executor,
		collector: collector,
		stop:      stop,
	}
}

// GetState returns the current VU state.
func (vu *VirtualUser) GetState() VUState {
	return VUState(vu.state.Load())
}

// GetIteration returns the number of requests issued so far.
func (vu *VirtualUser) GetIteration() int64 {
	return vu.iteration.Load()
}

// Run issues the planned requests in sequence.
//
// The stop signal is checked before every request; a request already in
// flight always completes. A pause between requests ends early on stop.
// onRequest is called after each recorded result. Run returns ctx.Err() when
// ctx is cancelled and nil otherwise.
func (vu *VirtualUser) Run(ctx context.Context, plan Plan, cb Callback, onRequest func()) error {
	defer vu.state.Store(int32(VUStateStopped))
	vu.state.Store(int32(VUStateRunning))

	for i := 0; i < plan.Budget; i++ {
		if vu.stop.Stopped() {
			vu.state.Store(int32(VUStateStopping))
			cb.Progress("Test stopped by user")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if plan.Pacer != nil {
			if !vu.sleep(ctx, time.Until(plan.Pacer.Next())) {
				return vu.interrupted(ctx, cb)
			}
		}

		vu.iteration.Add(1)
		result := vu.executor.Execute(ctx)
		result.User = vu.Index + 1
		result.Iteration = i + 1

		vu.collector.Record(result)
		if onRequest != nil {
			onRequest()
		}

		cb.Progress("User %d - Request %d/%d completed with status %s in %d ms",
			result.User, result.Iteration, plan.Budget, result.Code, result.ElapsedMillis())

		if plan.Pacer == nil && i < plan.Budget-1 {
			if !vu.sleep(ctx, plan.Delay) {
				return vu.interrupted(ctx, cb)
			}
		}
	}

	return nil
}

// interrupted reports why a pause ended early.
func (vu *VirtualUser) interrupted(ctx context.Context, cb Callback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vu.state.Store(int32(VUStateStopping))
	cb.Progress("Test stopped by user")
	return nil
}

// sleep waits for d. It returns false if the stop signal or ctx ended the wait.
func (vu *VirtualUser) sleep(ctx context.Context, d time.Duration) bool {
	if vu.stop.Stopped() {
		return false
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-vu.stop.Done():
		return false
	case <-timer.C:
		return true
	}
}
