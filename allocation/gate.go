package allocation

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate is a one-shot signal. The first Signal closes it, later calls do nothing.
type Gate struct {
	once    sync.Once
	done    chan struct{}
	signals atomic.Int32
}

func NewGate() *Gate {
	return &Gate{
		done: make(chan struct{}),
	}
}

func (g *Gate) Signal() {
	g.once.Do(func() {
		g.signals.Add(1)
		close(g.done)
	})
}

func (g *Gate) Done() <-chan struct{} {
	return g.done
}

func (g *Gate) Signaled() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Await blocks until the gate is signaled or ctx is done.
func (g *Gate) Await(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signals counts how many Signal calls had an effect. It is never above 1.
func (g *Gate) Signals() int {
	return int(g.signals.Load())
}
