package event

import (
	"fmt"

	"allocator/entities"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	internalTopicPrefix = "internal-events.svc-allocator."
	externalTopicPrefix = "events."
)

func topic(event any, eventName string) (string, error) {
	e, ok := event.(entities.IEvent)
	if !ok {
		return "", fmt.Errorf("invalid event type: %T doesn't implement entities.IEvent", event)
	}

	if e.IsInternal() {
		return internalTopicPrefix + eventName, nil
	}
	return externalTopicPrefix + eventName, nil
}

func NewBus(pub message.Publisher) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(
		pub,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return topic(params.Event, params.EventName)
			},
			Marshaler: marshaler,
		},
	)
}
