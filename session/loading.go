package session

import "sync/atomic"

// LoadingGauge counts in-flight protocol operations. A shared boolean flag
// lets whichever overlapping call finishes first unmask a still-running
// sibling; counting keeps the indicator up until the last one completes.
type LoadingGauge struct {
	inFlight atomic.Int64
}

func NewLoadingGauge() *LoadingGauge {
	return &LoadingGauge{}
}

// Begin marks one operation in flight and returns the matching completion
// callback, intended for a deferred call.
func (g *LoadingGauge) Begin() func() {
	g.inFlight.Add(1)
	var done atomic.Bool
	return func() {
		if done.CompareAndSwap(false, true) {
			g.inFlight.Add(-1)
		}
	}
}

// Active reports whether any operation is still in flight.
func (g *LoadingGauge) Active() bool {
	return g.inFlight.Load() > 0
}

// InFlight returns the current number of running operations.
func (g *LoadingGauge) InFlight() int64 {
	return g.inFlight.Load()
}
