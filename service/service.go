package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"allocator/allocation"
	"allocator/config"
	"allocator/db"
	allocatorHttp "allocator/http"
	"allocator/message"
	"allocator/message/event"
	"allocator/message/outbox"
	"allocator/producer"
	"allocator/report"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func init() {
	log.Init(logrus.InfoLevel)
}

const drainTimeout = 30 * time.Second

type Service struct {
	config config.Config

	allocator       *allocation.Allocator
	generator       *producer.Generator
	reportReadModel *report.ReadModel
	reportRepo      *db.ReportRepository
	reportOutput    io.Writer

	watermillRouter *watermillMessage.Router
	echoRouter      *echo.Echo

	closers []func() error
}

// New wires the allocator with its transport, storage and HTTP API.
// The final report is written to reportOutput.
func New(cfg config.Config, reportOutput io.Writer) (*Service, error) {
	s := &Service{
		config:       cfg,
		reportOutput: reportOutput,
	}

	if err := s.wire(); err != nil {
		_ = s.close()
		return nil, err
	}

	return s, nil
}

func (s *Service) wire() error {
	cfg := s.config
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var transport message.Transport
	if cfg.RedisAddr != "" {
		redisClient := message.NewRedisClient(cfg.RedisAddr)
		s.closers = append(s.closers, redisClient.Close)

		var err error
		transport, err = message.NewRedisTransport(redisClient, watermillLogger)
		if err != nil {
			return fmt.Errorf("could not create redis transport: %w", err)
		}
	} else {
		transport = message.NewGoChannelTransport(watermillLogger)
	}
	s.closers = append(s.closers, transport.Publisher.Close)

	eventBus, err := event.NewBus(transport.Publisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.allocator, err = allocation.New(allocation.Config{
		Levels:          cfg.Levels,
		PoolSize:        cfg.PoolSize,
		QueueSize:       cfg.QueueSize,
		DuplicatePolicy: cfg.DuplicatePolicy,
		ExhaustedPolicy: cfg.ExhaustedPolicy,
		Publisher:       eventBus,
		Metrics:         allocation.NewMetrics(registry),
	})
	if err != nil {
		return err
	}
	s.closers = append(s.closers, s.drain)

	var (
		eventRepo    event.EventRepository
		pgSubscriber watermillMessage.Subscriber
	)
	if cfg.PostgresURL != "" {
		conn, err := db.NewDBConn(cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("could not connect to postgres: %w", err)
		}
		s.closers = append(s.closers, conn.Close)

		if err := conn.MigrateSchema(context.Background()); err != nil {
			return err
		}

		eventRepo = db.NewEventRepository(&conn)
		reportRepo := db.NewReportRepository(&conn)
		s.reportRepo = &reportRepo

		pgSubscriber, err = outbox.SubscribeForPGMessages(conn.Conn, watermillLogger)
		if err != nil {
			return fmt.Errorf("could not subscribe to the outbox: %w", err)
		}
		s.closers = append(s.closers, pgSubscriber.Close)
	}

	s.reportReadModel = report.NewReadModel()

	s.watermillRouter, err = message.NewWatermillRouter(
		pgSubscriber,
		transport.Publisher,
		event.NewProcessorConfig(transport.NewSubscriber, watermillLogger),
		event.NewHandler(s.reportReadModel, eventRepo),
		watermillLogger,
	)
	if err != nil {
		return fmt.Errorf("could not create watermill router: %w", err)
	}

	s.echoRouter = allocatorHttp.NewHttpRouter(
		s.allocator,
		s.reportReadModel,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	)

	s.generator, err = producer.NewGenerator(producer.Config{
		Streams:     cfg.ProducerStreams,
		Interval:    cfg.ProducerInterval,
		MaxQuantity: cfg.ProducerMaxQuantity,
		Products:    s.allocator.Products(),
	}, s.allocator, s.allocator.Gate().Done())
	if err != nil {
		return fmt.Errorf("could not create order producer: %w", err)
	}

	return nil
}

// Run serves until the inventory is exhausted or ctx is canceled. On exhaustion
// the queued orders are drained, the report is written and Run returns nil.
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	errgrp, ctx := errgroup.WithContext(ctx)

	errgrp.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	errgrp.Go(func() error {
		// we don't want to start HTTP server before Watermill router (so service won't be healthy before it's ready)
		<-s.watermillRouter.Running()

		err := s.echoRouter.Start(s.config.HTTPAddr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	errgrp.Go(func() error {
		<-ctx.Done()
		return s.echoRouter.Shutdown(context.Background())
	})

	errgrp.Go(func() error {
		select {
		case <-s.watermillRouter.Running():
		case <-ctx.Done():
			return nil
		}
		return s.generator.Run(ctx)
	})

	errgrp.Go(func() error {
		select {
		case <-s.allocator.Gate().Done():
		case <-ctx.Done():
			return s.drain()
		}

		defer stop()
		return s.finish(ctx)
	})

	err := errgrp.Wait()

	return errors.Join(err, s.close())
}

// finish drains the pool, then writes and exports the report.
func (s *Service) finish(ctx context.Context) error {
	if err := s.drain(); err != nil {
		return err
	}

	statuses := s.allocator.Ledger()

	if err := report.Render(s.reportOutput, s.allocator.Products(), statuses); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}

	if s.reportRepo != nil {
		if _, err := s.reportRepo.SaveReport(ctx, statuses); err != nil {
			return fmt.Errorf("could not export report: %w", err)
		}
	}

	log.FromContext(ctx).WithField("orders", len(statuses)).Info("Allocation finished")

	return nil
}

func (s *Service) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := s.allocator.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not drain allocation pool: %w", err)
	}
	return nil
}

func (s *Service) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
