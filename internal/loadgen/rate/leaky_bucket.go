// Package rate paces the requests of a virtual user.
package rate

import (
	"sync"
	"time"
)

// LeakyBucket schedules iteration starts at a fixed rate.
//
// The bucket keeps a virtual drip time that advances by 1/rate for every
// scheduled iteration. Next returns the time the next iteration may start; a
// time in the past means the caller is behind schedule and should go at once.
// Unused capacity never accumulates beyond a single iteration, so a slow
// response is not followed by a burst.
//
// # Thread Safety
//
// LeakyBucket is safe for concurrent use from multiple goroutines.
//
// # Example
//
//	lb := NewLeakyBucket(5) // one request start every 200ms
//
//	for i := 0; i < budget; i++ {
//	    time.Sleep(time.Until(lb.Next()))
//	    // issue request
//	}
type LeakyBucket struct {
	rate        float64 // iterations per second
	lastDrip    time.Time
	accumulated float64
	mu          sync.Mutex
}

// NewLeakyBucket creates a bucket for the given rate.
//
// A non-positive rate falls back to one iteration per second. The first call
// to Next returns immediately.
func NewLeakyBucket(rate float64) *LeakyBucket {
	if rate <= 0 {
		rate = 1.0
	}
	return &LeakyBucket{
		rate:        rate,
		lastDrip:    time.Now(),
		accumulated: 1.0,
	}
}

// Next returns when the next iteration should start.
func (lb *LeakyBucket) Next() time.Time {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(lb.lastDrip).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	lb.accumulated += elapsed * lb.rate
	if lb.accumulated > 1.0 {
		lb.accumulated = 1.0
	}

	if lb.accumulated >= 1.0 {
		lb.accumulated -= 1.0
		lb.lastDrip = now
		return now
	}

	deficit := 1.0 - lb.accumulated
	next := now.Add(time.Duration(deficit / lb.rate * float64(time.Second)))
	lb.accumulated = 0

	// Drip from the scheduled slot so the wake-up does not count twice.
	lb.lastDrip = next

	return next
}
