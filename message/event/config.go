package event

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

var marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

// SubscriberFactory returns a subscriber for the given consumer group.
type SubscriberFactory func(consumerGroup string) (message.Subscriber, error)

func NewProcessorConfig(newSubscriber SubscriberFactory, watermillLogger watermill.LoggerAdapter) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return topic(params.EventHandler.NewEvent(), params.EventName)
		},
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return newSubscriber("svc-allocator.events." + params.HandlerName)
		},
		Marshaler: marshaler,
		Logger:    watermillLogger,
	}
}
