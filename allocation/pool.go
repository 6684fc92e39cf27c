package allocation

import (
	"context"
	"errors"
	"sync"

	"allocator/entities"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPoolSize = errors.New("pool size must be greater than 0")
	ErrPoolClosed      = errors.New("allocation pool is shut down")
)

type processor interface {
	Process(ctx context.Context, order entities.Order) (entities.OrderStatus, error)
}

type task struct {
	ctx   context.Context
	order entities.Order
}

// Pool runs orders on a fixed number of workers. Orders wait in a bounded queue;
// Submit blocks while the queue is full.
type Pool struct {
	processor processor
	metrics   *Metrics
	queue     chan task

	mu     sync.RWMutex
	closed bool

	workers sync.WaitGroup
}

func NewPool(size, queueSize int, processor processor, metrics *Metrics) (*Pool, error) {
	if size <= 0 {
		return nil, ErrInvalidPoolSize
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if processor == nil {
		panic("missing processor")
	}

	p := &Pool{
		processor: processor,
		metrics:   metrics,
		queue:     make(chan task, queueSize),
	}

	p.workers.Add(size)
	for i := 0; i < size; i++ {
		go p.work(i)
	}

	return p, nil
}

// Submit queues the order. The order keeps ctx values (logger, correlation id)
// but not its cancellation, so a finished HTTP request doesn't abort the allocation.
func (p *Pool) Submit(ctx context.Context, order entities.Order) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- task{ctx: context.WithoutCancel(ctx), order: order}:
		p.metrics.observeQueueDepth(len(p.queue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting orders and waits until every queued and in-flight
// order is processed, or ctx is done. It never interrupts an allocation.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work(worker int) {
	defer p.workers.Done()

	for t := range p.queue {
		p.metrics.observeQueueDepth(len(p.queue))
		p.run(worker, t)
	}
}

func (p *Pool) run(worker int, t task) {
	logger := log.FromContext(t.ctx).WithFields(logrus.Fields{
		"worker":   worker,
		"order_id": t.order.ID,
	})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Allocation panicked")
		}
	}()

	if _, err := p.processor.Process(t.ctx, t.order); err != nil {
		logger.WithError(err).Error("Order allocation failed")
	}
}
