package report

import (
	"context"
	"sync"
	"time"

	"allocator/entities"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// Summary is what GET /orders serves.
type Summary struct {
	Exhausted       bool                   `json:"exhausted"`
	ExhaustedAt     *time.Time             `json:"exhausted_at,omitempty"`
	OrdersProcessed int                    `json:"orders_processed"`
	Orders          []entities.OrderStatus `json:"orders"`
}

// ReadModel projects allocation events into the order report.
// Redelivered events replace the row of their order in place.
type ReadModel struct {
	lock sync.RWMutex

	orders      []entities.OrderStatus
	index       map[string]int
	exhaustedAt *time.Time
	processed   int
}

func NewReadModel() *ReadModel {
	return &ReadModel{
		index: make(map[string]int),
	}
}

func (r *ReadModel) OnOrderAllocated(ctx context.Context, event *entities.OrderAllocated_v1) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	status := event.Status()
	if i, ok := r.index[status.OrderID]; ok {
		r.orders[i] = status
		return nil
	}

	r.index[status.OrderID] = len(r.orders)
	r.orders = append(r.orders, status)

	log.FromContext(ctx).WithField("order_id", status.OrderID).Debug("Order added to report")

	return nil
}

func (r *ReadModel) OnInventoryExhausted(ctx context.Context, event *entities.InventoryExhausted_v1) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.exhaustedAt != nil {
		return nil
	}

	at := event.Header.PublishedAt
	r.exhaustedAt = &at
	r.processed = event.OrdersProcessed

	log.FromContext(ctx).WithField("orders_processed", event.OrdersProcessed).Info("Report closed")

	return nil
}

func (r *ReadModel) Summary() Summary {
	r.lock.RLock()
	defer r.lock.RUnlock()

	orders := make([]entities.OrderStatus, len(r.orders))
	copy(orders, r.orders)

	processed := r.processed
	if r.exhaustedAt == nil {
		processed = len(orders)
	}

	return Summary{
		Exhausted:       r.exhaustedAt != nil,
		ExhaustedAt:     r.exhaustedAt,
		OrdersProcessed: processed,
		Orders:          orders,
	}
}
