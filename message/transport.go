package message

import (
	observability "allocator/trace"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// Transport carries allocation events between the event bus and the event processor.
type Transport struct {
	Publisher message.Publisher

	// NewSubscriber returns a subscriber for one consumer group.
	NewSubscriber func(consumerGroup string) (message.Subscriber, error)
}

// NewRedisTransport uses redis streams, one consumer group per event handler.
func NewRedisTransport(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) (Transport, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermillLogger)
	if err != nil {
		return Transport{}, err
	}

	return Transport{
		Publisher: decoratePublisher(pub),
		NewSubscriber: func(consumerGroup string) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: consumerGroup,
			}, watermillLogger)
		},
	}, nil
}

// NewGoChannelTransport keeps events in process. Every handler subscribes
// to its own topic, so consumer groups are not needed.
func NewGoChannelTransport(watermillLogger watermill.LoggerAdapter) Transport {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 1024,
	}, watermillLogger)

	return Transport{
		Publisher: decoratePublisher(pubSub),
		NewSubscriber: func(string) (message.Subscriber, error) {
			return pubSub, nil
		},
	}
}

func decoratePublisher(pub message.Publisher) message.Publisher {
	pub = log.CorrelationPublisherDecorator{Publisher: pub}
	return observability.TracingPublisherDecorator{Publisher: pub}
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
