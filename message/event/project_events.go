package event

import (
	"context"
	"errors"
	"fmt"

	"allocator/entities"
)

// ErrInvalidEvent marks events that can never be processed. They are moved
// to the poison queue instead of being retried.
var ErrInvalidEvent = errors.New("invalid event")

func (h Handler) ProjectOrderAllocated(ctx context.Context, event *entities.OrderAllocated_v1) error {
	if event.OrderID == "" {
		return fmt.Errorf("%w: order id is empty (event %s)", ErrInvalidEvent, event.Header.ID)
	}

	return h.readModel.OnOrderAllocated(ctx, event)
}

func (h Handler) ProjectInventoryExhausted(ctx context.Context, event *entities.InventoryExhausted_v1) error {
	if event.OrdersProcessed < 0 {
		return fmt.Errorf("%w: negative orders processed %d", ErrInvalidEvent, event.OrdersProcessed)
	}

	return h.readModel.OnInventoryExhausted(ctx, event)
}
