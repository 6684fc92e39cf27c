package event

import (
	"context"

	"allocator/entities"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
)

type ReportReadModel interface {
	OnOrderAllocated(ctx context.Context, event *entities.OrderAllocated_v1) error
	OnInventoryExhausted(ctx context.Context, event *entities.InventoryExhausted_v1) error
}

// EventRepository keeps a copy of every published event.
type EventRepository interface {
	Store(ctx context.Context, header entities.EventHeader, eventName string, event any) error
}

type Handler struct {
	readModel ReportReadModel
	eventRepo EventRepository
}

// NewHandler builds the event handlers. eventRepo may be nil.
func NewHandler(readModel ReportReadModel, eventRepo EventRepository) Handler {
	if readModel == nil {
		panic("missing readModel")
	}

	return Handler{
		readModel: readModel,
		eventRepo: eventRepo,
	}
}

// Handlers lists the event handlers to register on the event processor.
func (h Handler) Handlers() []cqrs.EventHandler {
	handlers := []cqrs.EventHandler{
		cqrs.NewEventHandler("ProjectOrderAllocated", h.ProjectOrderAllocated),
		cqrs.NewEventHandler("ProjectInventoryExhausted", h.ProjectInventoryExhausted),
	}

	if h.eventRepo != nil {
		handlers = append(handlers,
			cqrs.NewEventHandler("StoreOrderAllocated", h.StoreOrderAllocated),
			cqrs.NewEventHandler("StoreInventoryExhausted", h.StoreInventoryExhausted),
		)
	}

	return handlers
}
