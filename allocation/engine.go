package allocation

import (
	"context"
	"fmt"
	"time"

	"allocator/entities"
	"allocator/inventory"
	"allocator/ledger"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventPublisher is satisfied by *cqrs.EventBus.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Engine allocates a single order against the inventory.
type Engine struct {
	store     *inventory.Store
	ledger    *ledger.Ledger
	detector  *Detector
	publisher EventPublisher
	metrics   *Metrics
	now       func() time.Time
}

func NewEngine(
	store *inventory.Store,
	ledger *ledger.Ledger,
	detector *Detector,
	publisher EventPublisher,
	metrics *Metrics,
) *Engine {
	if store == nil {
		panic("missing store")
	}
	if ledger == nil {
		panic("missing ledger")
	}
	if detector == nil {
		panic("missing detector")
	}

	return &Engine{
		store:     store,
		ledger:    ledger,
		detector:  detector,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Process tries to take every line of the order from the inventory, in line order.
// A line is filled completely or not at all. Once the inventory is exhausted no
// decrement is attempted and every line is recorded as backordered.
//
// The returned error only reports that the status could not be recorded
// (a duplicate order id under the strict ledger policy).
func (e *Engine) Process(ctx context.Context, order entities.Order) (entities.OrderStatus, error) {
	ctx, span := otel.Tracer("allocation").Start(ctx, "allocation.Process",
		trace.WithAttributes(
			attribute.String("order_id", order.ID),
			attribute.Int("lines", len(order.Lines)),
		))
	defer span.End()

	logger := log.FromContext(ctx).WithField("order_id", order.ID)

	if err := e.ledger.Reserve(order.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return entities.OrderStatus{}, err
	}

	exhausted := e.detector.Exhausted()

	status := entities.OrderStatus{
		OrderID: order.ID,
		Lines:   make([]entities.FilledLine, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		filled := entities.FilledLine{
			ProductID: line.ProductID,
			Requested: line.Quantity,
		}

		if !exhausted {
			ok, err := e.store.TryDecrement(line.ProductID, line.Quantity)
			if err != nil {
				logger.WithError(err).WithField("product_id", line.ProductID).Warn("Line can't be allocated, backordering it")
			} else if ok {
				filled.Filled = line.Quantity
			}
		}

		status.Lines = append(status.Lines, filled)
	}
	status.ProcessedAt = e.now().UTC()

	span.SetAttributes(attribute.Bool("exhausted_before", exhausted))

	if _, err := e.ledger.Record(status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return status, fmt.Errorf("could not record order status: %w", err)
	}

	e.metrics.observeStatus(status)
	e.metrics.observeRemaining(e.store.Snapshot())
	e.publish(ctx, entities.OrderAllocated_v1{
		Header:      entities.NewEventHeader(),
		OrderID:     status.OrderID,
		Lines:       status.Lines,
		ProcessedAt: status.ProcessedAt,
	})

	if e.detector.Check(ctx) {
		span.AddEvent("inventory exhausted")
	}

	logger.WithField("lines", status.Lines).Debug("Order allocated")

	return status, nil
}

func (e *Engine) publish(ctx context.Context, event entities.IEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		log.FromContext(ctx).WithError(err).Error("Could not publish allocation event")
	}
}
