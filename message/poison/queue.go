// Package poison inspects and repairs the poison queue filled by the event router.
package poison

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

var ErrMessageNotFound = errors.New("message not found")

type Message struct {
	ID     string
	Reason string
	Topic  string
}

// Queue walks the poison queue through a consumer group. Messages are consumed
// and published back, so the queue needs queue semantics (acked messages are
// not delivered again), which redis streams provide.
type Queue struct {
	topic       string
	subscriber  message.Subscriber
	publisher   message.Publisher
	idleTimeout time.Duration
}

// NewQueue returns a queue over topic. A walk ends when no message arrives
// for idleTimeout or when a message published back comes around again.
func NewQueue(topic string, subscriber message.Subscriber, publisher message.Publisher, idleTimeout time.Duration) (*Queue, error) {
	if topic == "" {
		return nil, errors.New("missing poison queue topic")
	}
	if subscriber == nil {
		return nil, errors.New("missing subscriber")
	}
	if publisher == nil {
		return nil, errors.New("missing publisher")
	}
	if idleTimeout <= 0 {
		return nil, fmt.Errorf("idle timeout must be positive: %s", idleTimeout)
	}

	return &Queue{
		topic:       topic,
		subscriber:  subscriber,
		publisher:   publisher,
		idleTimeout: idleTimeout,
	}, nil
}

type action int

const (
	keep action = iota
	drop
	requeue
)

func (q *Queue) Preview(ctx context.Context) ([]Message, error) {
	var messages []Message

	err := q.walk(ctx, func(msg *message.Message) action {
		messages = append(messages, Message{
			ID:     msg.UUID,
			Reason: msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			Topic:  msg.Metadata.Get(middleware.PoisonedTopicKey),
		})
		return keep
	})
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// Remove acks the message without publishing it anywhere.
func (q *Queue) Remove(ctx context.Context, messageID string) error {
	return q.take(ctx, messageID, drop)
}

// Requeue publishes the message back to the topic it was poisoned on.
func (q *Queue) Requeue(ctx context.Context, messageID string) error {
	return q.take(ctx, messageID, requeue)
}

func (q *Queue) take(ctx context.Context, messageID string, act action) error {
	found := false

	err := q.walk(ctx, func(msg *message.Message) action {
		if found || msg.UUID != messageID {
			return keep
		}
		found = true
		return act
	})
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	return nil
}

// walk visits every message in the queue once.
func (q *Queue) walk(ctx context.Context, visit func(msg *message.Message) action) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := q.subscriber.Subscribe(ctx, q.topic)
	if err != nil {
		return fmt.Errorf("could not subscribe to %s: %w", q.topic, err)
	}

	idle := time.NewTimer(q.idleTimeout)
	defer idle.Stop()

	seen := map[string]struct{}{}

	for {
		var msg *message.Message
		select {
		case m, ok := <-messages:
			if !ok {
				return nil
			}
			msg = m
		case <-idle.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

		if _, ok := seen[msg.UUID]; ok {
			// full circle
			return q.settle(msg, keep)
		}
		seen[msg.UUID] = struct{}{}

		if err := q.settle(msg, visit(msg)); err != nil {
			return err
		}

		idle.Reset(q.idleTimeout)
	}
}

func (q *Queue) settle(msg *message.Message, act action) error {
	switch act {
	case keep:
		if err := q.publisher.Publish(q.topic, msg.Copy()); err != nil {
			msg.Nack()
			return fmt.Errorf("could not publish %s back to %s: %w", msg.UUID, q.topic, err)
		}
	case requeue:
		topic := msg.Metadata.Get(middleware.PoisonedTopicKey)
		if topic == "" {
			msg.Nack()
			return fmt.Errorf("message %s has no %s metadata", msg.UUID, middleware.PoisonedTopicKey)
		}

		out := msg.Copy()
		delete(out.Metadata, middleware.ReasonForPoisonedKey)
		delete(out.Metadata, middleware.PoisonedTopicKey)
		delete(out.Metadata, middleware.PoisonedHandlerKey)
		delete(out.Metadata, middleware.PoisonedSubscriberKey)

		if err := q.publisher.Publish(topic, out); err != nil {
			msg.Nack()
			return fmt.Errorf("could not requeue %s to %s: %w", msg.UUID, topic, err)
		}
		log.FromContext(msg.Context()).WithField("topic", topic).Infof("Message %s requeued", msg.UUID)
	case drop:
		log.FromContext(msg.Context()).Infof("Message %s removed from the poison queue", msg.UUID)
	}

	msg.Ack()
	return nil
}
