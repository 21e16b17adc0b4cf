package main

import (
	"context"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/caseflowhq/caseflow/pkg/cmd"
	"github.com/caseflowhq/caseflow/pkg/log"
	"github.com/caseflowhq/caseflow/pkg/queue"
)

// WorkerCommand consumes input records from a Redis list and runs the
// pipeline for each.
func WorkerCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for the ticket queue",
			Value:   "localhost:6379",
			Sources: cli.EnvVars("REDIS_ADDR"),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			Sources: cli.EnvVars("REDIS_PASSWORD"),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			Sources: cli.EnvVars("REDIS_DB"),
		},
		&cli.StringFlag{
			Name:    "queue",
			Usage:   "Redis list name to consume tickets from",
			Value:   "caseflow:tickets",
			Sources: cli.EnvVars("TICKET_QUEUE"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Archive URL (postgres://... or a file path)",
			Value:   "./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, none)",
			Value:   "none",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		logLevelFlag(),
	}
	flags = append(flags, providerFlags()...)

	return &cli.Command{
		Name:    "worker",
		Aliases: []string{"w"},
		Usage:   "Consume tickets from the queue and run them",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("worker")

			logger.InfoContext(ctx, "Initializing Caseflow worker")

			archive, err := cmd.NewArchive(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := archive.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close archive", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			reg := cmd.NewRegistry(cmd.ProviderConfig{
				CommonURL: command.String("common-url"),
				AtlasURL:  command.String("atlas-url"),
			}, logger)

			engine, err := cmd.NewEngine(reg, eventBus, logger)
			if err != nil {
				return err
			}

			consumer, err := queue.NewConsumer(queue.Config{
				Addr:     command.String("redis-addr"),
				Password: command.String("redis-password"),
				DB:       command.Int("redis-db"),
				Queue:    command.String("queue"),
			}, engine, archive, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := consumer.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			logger.Info("Shutting down worker")

			return consumer.Stop(context.Background())
		},
	}
}
