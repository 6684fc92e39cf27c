package message

import (
	"errors"
	"fmt"
	"time"

	"allocator/message/event"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// PoisonQueueTopic receives events that failed with event.ErrInvalidEvent.
const PoisonQueueTopic = "PoisonQueue"

const correlationIDKey = "correlation_id"

func isPoisoned(err error) bool {
	return errors.Is(err, event.ErrInvalidEvent)
}

func useMiddlewares(router *message.Router, publisher message.Publisher, watermillLogger watermill.LoggerAdapter) error {
	poisonQueue, err := middleware.PoisonQueueWithFilter(publisher, PoisonQueueTopic, isPoisoned)
	if err != nil {
		return err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      10,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Logger:          watermillLogger,
		}.Middleware,
		// inside Retry: poisoned messages are acked without being retried
		poisonQueue,
		correlationID,
		traceHandler,
		logHandling,
	)

	return nil
}

// correlationID carries the id of the order that caused the event into the handler's logger.
func correlationID(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		id := msg.Metadata.Get(correlationIDKey)
		if id == "" {
			id = shortuuid.New()
		}

		ctx := log.ContextWithCorrelationID(msg.Context(), id)
		ctx = log.ToContext(ctx, logrus.WithField(correlationIDKey, id))
		msg.SetContext(ctx)

		return next(msg)
	}
}

func traceHandler(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := otel.GetTextMapPropagator().Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))

		ctx, span := otel.Tracer("").Start(ctx, fmt.Sprintf(
			"topic: %s, handler: %s",
			message.SubscribeTopicFromCtx(msg.Context()),
			message.HandlerNameFromCtx(msg.Context()),
		))
		defer span.End()

		msg.SetContext(ctx)

		msgs, err := next(msg)
		if err != nil {
			span.RecordError(err)
		}
		return msgs, err
	}
}

func logHandling(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := log.FromContext(msg.Context()).WithFields(logrus.Fields{
			"message_id": msg.UUID,
			"handler":    message.HandlerNameFromCtx(msg.Context()),
			"payload":    string(msg.Payload),
		})
		logger.Debug("Handling event")

		msgs, err := next(msg)
		if err != nil {
			logger.WithError(err).Error("Event handler failed")
		}

		return msgs, err
	}
}
