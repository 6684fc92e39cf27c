package allocation

import (
	"context"
	"errors"
	"fmt"

	"allocator/entities"
	"allocator/inventory"
	"allocator/ledger"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
)

var ErrExhausted = errors.New("inventory is exhausted")

// ExhaustedPolicy decides what happens to orders submitted after exhaustion.
type ExhaustedPolicy int

const (
	// AcceptAfterExhaustion records late orders with every line backordered.
	AcceptAfterExhaustion ExhaustedPolicy = iota
	// RejectAfterExhaustion refuses late orders with ErrExhausted.
	RejectAfterExhaustion
)

func (p ExhaustedPolicy) String() string {
	switch p {
	case AcceptAfterExhaustion:
		return "accept"
	case RejectAfterExhaustion:
		return "reject"
	default:
		return fmt.Sprintf("ExhaustedPolicy(%d)", int(p))
	}
}

func ParseExhaustedPolicy(s string) (ExhaustedPolicy, error) {
	switch s {
	case "", "accept":
		return AcceptAfterExhaustion, nil
	case "reject":
		return RejectAfterExhaustion, nil
	default:
		return 0, fmt.Errorf("unknown exhausted policy %q", s)
	}
}

type Config struct {
	Levels          []inventory.Level
	PoolSize        int
	QueueSize       int
	DuplicatePolicy ledger.DuplicatePolicy
	ExhaustedPolicy ExhaustedPolicy

	// Publisher and Metrics are optional.
	Publisher EventPublisher
	Metrics   *Metrics
}

// Allocator owns one inventory, its ledger and the workers allocating against them.
type Allocator struct {
	store    *inventory.Store
	ledger   *ledger.Ledger
	detector *Detector
	gate     *Gate
	engine   *Engine
	pool     *Pool
	policy   ExhaustedPolicy
}

func New(cfg Config) (*Allocator, error) {
	store, err := inventory.New(cfg.Levels)
	if err != nil {
		return nil, fmt.Errorf("invalid inventory: %w", err)
	}

	a := &Allocator{
		store:  store,
		ledger: ledger.New(cfg.DuplicatePolicy),
		gate:   NewGate(),
		policy: cfg.ExhaustedPolicy,
	}

	a.detector = NewDetector(store, func(ctx context.Context) {
		a.gate.Signal()
		cfg.Metrics.observeExhaustion()

		log.FromContext(ctx).WithField("orders_processed", a.ledger.Len()).Info("Inventory exhausted")

		if cfg.Publisher == nil {
			return
		}
		err := cfg.Publisher.Publish(ctx, entities.InventoryExhausted_v1{
			Header:          entities.NewEventHeader(),
			OrdersProcessed: a.ledger.Len(),
		})
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("Could not publish InventoryExhausted")
		}
	})
	a.engine = NewEngine(store, a.ledger, a.detector, cfg.Publisher, cfg.Metrics)

	a.pool, err = NewPool(cfg.PoolSize, cfg.QueueSize, a.engine, cfg.Metrics)
	if err != nil {
		return nil, err
	}

	cfg.Metrics.observeRemaining(store.Snapshot())

	log.FromContext(context.Background()).WithFields(logrus.Fields{
		"inventory":        store.Snapshot(),
		"pool_size":        cfg.PoolSize,
		"duplicate_policy": cfg.DuplicatePolicy,
		"exhausted_policy": cfg.ExhaustedPolicy,
	}).Info("Allocator ready")

	return a, nil
}

// Submit hands the order to the worker pool.
func (a *Allocator) Submit(ctx context.Context, order entities.Order) error {
	if err := a.admit(order); err != nil {
		return err
	}
	return a.pool.Submit(ctx, order)
}

// Process allocates the order on the caller's goroutine, bypassing the pool.
func (a *Allocator) Process(ctx context.Context, order entities.Order) (entities.OrderStatus, error) {
	if err := a.admit(order); err != nil {
		return entities.OrderStatus{}, err
	}
	return a.engine.Process(ctx, order)
}

func (a *Allocator) admit(order entities.Order) error {
	for _, line := range order.Lines {
		if !a.store.Has(line.ProductID) {
			return fmt.Errorf("order %s: product %q: %w", order.ID, line.ProductID, inventory.ErrUnknownProduct)
		}
	}
	if a.policy == RejectAfterExhaustion && a.detector.Exhausted() {
		return fmt.Errorf("order %s: %w", order.ID, ErrExhausted)
	}
	return nil
}

// Shutdown stops taking orders and waits for the queued ones to be allocated.
func (a *Allocator) Shutdown(ctx context.Context) error {
	return a.pool.Shutdown(ctx)
}

func (a *Allocator) Gate() *Gate {
	return a.gate
}

func (a *Allocator) State() State {
	return a.detector.State()
}

func (a *Allocator) Exhausted() bool {
	return a.detector.Exhausted()
}

func (a *Allocator) Products() []entities.ProductID {
	return a.store.Products()
}

func (a *Allocator) Remaining() map[entities.ProductID]int {
	return a.store.Snapshot()
}

// Ledger returns every recorded order status in completion order.
func (a *Allocator) Ledger() []entities.OrderStatus {
	return a.ledger.Snapshot()
}
