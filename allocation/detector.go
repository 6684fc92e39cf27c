package allocation

import (
	"context"
	"fmt"
	"sync/atomic"
)

type State int32

const (
	Running State = iota
	Exhausted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type zeroChecker interface {
	AllZero() bool
}

// Detector moves from Running to Exhausted the first time it sees every product
// at zero. Only the caller that makes the transition runs the exhaustion hooks.
type Detector struct {
	store       zeroChecker
	state       atomic.Int32
	onExhausted []func(ctx context.Context)
}

func NewDetector(store zeroChecker, onExhausted ...func(ctx context.Context)) *Detector {
	if store == nil {
		panic("missing store")
	}
	return &Detector{
		store:       store,
		onExhausted: onExhausted,
	}
}

// Check returns true only for the call that claimed the transition.
func (d *Detector) Check(ctx context.Context) bool {
	if d.Exhausted() || !d.store.AllZero() {
		return false
	}
	if !d.state.CompareAndSwap(int32(Running), int32(Exhausted)) {
		return false
	}

	for _, hook := range d.onExhausted {
		hook(ctx)
	}
	return true
}

func (d *Detector) State() State {
	return State(d.state.Load())
}

func (d *Detector) Exhausted() bool {
	return d.State() == Exhausted
}
