// Package loadgen drives simulated clients against an HTTP endpoint.
package loadgen

import (
	"fmt"
	"sync"

	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
)

// Callback carries the notifications of a run.
//
// OnProgress may be called from any worker goroutine at the same time, and
// OnComplete is called once at the end of a run. Callers that need a single
// thread must marshal the calls themselves. Nil fields are ignored.
type Callback struct {
	OnProgress func(message string)
	OnComplete func(results []metrics.Result)
}

// Progress formats and emits a progress message.
func (c Callback) Progress(format string, args ...interface{}) {
	if c.OnProgress == nil {
		return
	}
	c.OnProgress(fmt.Sprintf(format, args...))
}

// Complete emits the completion notification.
func (c Callback) Complete(results []metrics.Result) {
	if c.OnComplete == nil {
		return
	}
	c.OnComplete(results)
}

// StopSignal is a cooperative stop flag shared by every worker of a run.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal creates an unset stop signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Stop sets the flag. It is safe to call more than once.
func (s *StopSignal) Stop() {
	s.once.Do(func() { close(s.ch) })
}

// Stopped reports whether Stop was called.
func (s *StopSignal) Stopped() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when Stop is called.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ch
}
