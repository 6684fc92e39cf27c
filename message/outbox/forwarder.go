package outbox

import (
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewForwarder registers a handler on router that moves enveloped messages
// from the Postgres outbox to pub once their transaction has committed.
func NewForwarder(
	pgSubscriber message.Subscriber,
	pub message.Publisher,
	logger watermill.LoggerAdapter,
	router *message.Router,
) (*forwarder.Forwarder, error) {
	fwd, err := forwarder.NewForwarder(pgSubscriber, pub, logger, forwarder.Config{
		ForwarderTopic: Topic,
		Router:         router,
		Middlewares:    []message.HandlerMiddleware{logForwarded},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create outbox forwarder: %w", err)
	}

	return fwd, nil
}

func logForwarded(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := next(msg)
		if err == nil {
			log.FromContext(msg.Context()).WithField("message_id", msg.UUID).Debug("Outbox message forwarded")
		}
		return msgs, err
	}
}
