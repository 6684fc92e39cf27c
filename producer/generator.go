// Package producer simulates the order streams feeding the allocator.
package producer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"allocator/allocation"
	"allocator/entities"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Submitter interface {
	Submit(ctx context.Context, order entities.Order) error
}

type Config struct {
	Streams  int
	Interval time.Duration
	// Quantities are drawn from [0, MaxQuantity).
	MaxQuantity int
	Products    []entities.ProductID
	// Seed makes the generated orders reproducible. Zero seeds from the clock.
	Seed int64
}

// Generator runs independent order streams. Each stream has a uuid and numbers
// its orders from 1, so order ids look like "<stream id>:<sequence>".
type Generator struct {
	config    Config
	submitter Submitter
	stop      <-chan struct{}
}

// NewGenerator builds a generator whose streams end once stop is closed.
func NewGenerator(config Config, submitter Submitter, stop <-chan struct{}) (*Generator, error) {
	if config.Streams < 0 {
		return nil, fmt.Errorf("streams can't be negative: %d", config.Streams)
	}
	if config.MaxQuantity <= 0 {
		return nil, fmt.Errorf("max quantity must be greater than 0: %d", config.MaxQuantity)
	}
	if len(config.Products) == 0 {
		return nil, errors.New("no products to order")
	}
	if submitter == nil {
		panic("missing submitter")
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}

	return &Generator{
		config:    config,
		submitter: submitter,
		stop:      stop,
	}, nil
}

// Run blocks until every stream has ended: on stop, on ctx cancellation or
// when the allocator refuses more orders.
func (g *Generator) Run(ctx context.Context) error {
	errgrp, ctx := errgroup.WithContext(ctx)

	for i := 0; i < g.config.Streams; i++ {
		s := stream{
			id:        uuid.NewString(),
			config:    g.config,
			submitter: g.submitter,
			rand:      rand.New(rand.NewSource(g.config.Seed + int64(i))),
		}
		errgrp.Go(func() error {
			return s.run(ctx, g.stop)
		})
	}

	return errgrp.Wait()
}

type stream struct {
	id        string
	config    Config
	submitter Submitter
	rand      *rand.Rand
}

func (s stream) run(ctx context.Context, stop <-chan struct{}) error {
	logger := log.FromContext(ctx).WithField("stream_id", s.id)
	logger.Info("Order stream started")

	ticker := time.NewTicker(max(s.config.Interval, time.Millisecond))
	defer ticker.Stop()

	for seq := 1; ; seq++ {
		select {
		case <-stop:
			logger.WithField("orders", seq-1).Info("Order stream stopped")
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		order := s.nextOrder(seq)
		if order.TotalQuantity() > 0 {
			if done := s.submit(ctx, logger, order); done {
				return nil
			}
		} else {
			logger.WithField("order_id", order.ID).Debug("Dropping empty order")
		}

		select {
		case <-stop:
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// submit reports whether the stream has to end.
func (s stream) submit(ctx context.Context, logger *logrus.Entry, order entities.Order) bool {
	correlationID := shortuuid.New()
	ctx = log.ContextWithCorrelationID(ctx, correlationID)
	ctx = log.ToContext(ctx, logger.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"order_id":       order.ID,
	}))

	err := s.submitter.Submit(ctx, order)
	switch {
	case err == nil:
		log.FromContext(ctx).WithField("lines", order.Lines).Debug("Order submitted")
		return false
	case errors.Is(err, allocation.ErrExhausted), errors.Is(err, allocation.ErrPoolClosed):
		log.FromContext(ctx).WithError(err).Info("Allocator refuses new orders")
		return true
	case ctx.Err() != nil:
		return true
	default:
		log.FromContext(ctx).WithError(err).Warn("Could not submit order")
		return false
	}
}

func (s stream) nextOrder(seq int) entities.Order {
	lines := make([]entities.OrderLine, 0, len(s.config.Products))
	for _, productID := range s.config.Products {
		lines = append(lines, entities.OrderLine{
			ProductID: productID,
			Quantity:  s.rand.Intn(s.config.MaxQuantity),
		})
	}

	return entities.NewOrder(fmt.Sprintf("%s:%d", s.id, seq), lines...)
}
