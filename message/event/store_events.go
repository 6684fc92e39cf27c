package event

import (
	"context"

	"allocator/entities"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

func (h Handler) StoreOrderAllocated(ctx context.Context, event *entities.OrderAllocated_v1) error {
	log.FromContext(ctx).WithField("order_id", event.OrderID).Debug("Storing OrderAllocated")

	return h.eventRepo.Store(ctx, event.Header, marshaler.Name(event), event)
}

func (h Handler) StoreInventoryExhausted(ctx context.Context, event *entities.InventoryExhausted_v1) error {
	log.FromContext(ctx).Info("Storing InventoryExhausted")

	return h.eventRepo.Store(ctx, event.Header, marshaler.Name(event), event)
}
