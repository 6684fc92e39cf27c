package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"allocator/config"
	"allocator/message"
	"allocator/message/poison"
	"allocator/service"
	observability "allocator/trace"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "allocator",
		Usage:  "Allocate inventory to streams of orders",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the allocator until the inventory is exhausted",
				Action: serve,
			},
			{
				Name:  "poison",
				Usage: "manage the poison queue (needs REDIS_ADDR)",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "idle-timeout",
						Value: 2 * time.Second,
						Usage: "stop reading the queue after this long without a message",
					},
				},
				Subcommands: []*cli.Command{
					{
						Name:  "preview",
						Usage: "preview messages",
						Action: func(c *cli.Context) error {
							q, err := newPoisonQueue(c)
							if err != nil {
								return err
							}

							messages, err := q.Preview(c.Context)
							if err != nil {
								return err
							}

							for _, m := range messages {
								fmt.Fprintf(c.App.Writer, "%v\t%v\t%v\n", m.ID, m.Topic, m.Reason)
							}

							return nil
						},
					},
					{
						Name:      "remove",
						ArgsUsage: "<message_id>",
						Usage:     "remove message",
						Action: func(c *cli.Context) error {
							q, err := newPoisonQueue(c)
							if err != nil {
								return err
							}

							return q.Remove(c.Context, c.Args().First())
						},
					},
					{
						Name:      "requeue",
						ArgsUsage: "<message_id>",
						Usage:     "publish message back to its topic",
						Action: func(c *cli.Context) error {
							q, err := newPoisonQueue(c)
							if err != nil {
								return err
							}

							return q.Requeue(c.Context, c.Args().First())
						},
					},
				},
			},
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.FromContext(ctx).WithError(err).Fatal("Allocator failed")
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	traceProvider, err := observability.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			log.FromContext(c.Context).WithError(err).Error("Could not flush traces")
		}
	}()

	svc, err := service.New(cfg, c.App.Writer)
	if err != nil {
		return err
	}

	return svc.Run(c.Context)
}

func newPoisonQueue(c *cli.Context) (*poison.Queue, error) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return nil, errors.New("REDIS_ADDR is not set")
	}

	rdb := message.NewRedisClient(redisAddr)
	watermillLogger := log.NewWatermill(log.FromContext(c.Context))

	transport, err := message.NewRedisTransport(rdb, watermillLogger)
	if err != nil {
		return nil, err
	}

	sub, err := transport.NewSubscriber("poison-queue-cli")
	if err != nil {
		return nil, err
	}

	return poison.NewQueue(message.PoisonQueueTopic, sub, transport.Publisher, c.Duration("idle-timeout"))
}
