package message

import (
	"allocator/message/event"
	"allocator/message/outbox"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewWatermillRouter registers the event handlers. pgSubscriber is optional:
// when set, messages stored in the Postgres outbox are forwarded to publisher.
func NewWatermillRouter(
	pgSubscriber message.Subscriber,
	publisher message.Publisher,
	eventProcessorConfig cqrs.EventProcessorConfig,
	eventHandler event.Handler,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	if err := useMiddlewares(router, publisher, watermillLogger); err != nil {
		return nil, err
	}

	if pgSubscriber != nil {
		if _, err := outbox.NewForwarder(pgSubscriber, publisher, watermillLogger, router); err != nil {
			return nil, err
		}
	}

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, err
	}

	if err := eventProcessor.AddHandlers(eventHandler.Handlers()...); err != nil {
		return nil, err
	}

	return router, nil
}
