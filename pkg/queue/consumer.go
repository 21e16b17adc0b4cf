// Package queue provides the Redis list intake for ticket runs. Each
// list message is one input record; runs execute inline so the arrival
// order of tickets is the order their runs start.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/persistence"
	"github.com/caseflowhq/caseflow/pkg/workflow"
)

const (
	defaultQueue   = "caseflow:tickets"
	popTimeout     = 1 * time.Second
	connectTimeout = 5 * time.Second
	retryBackoff   = 1 * time.Second
)

// Config holds the Redis connection settings for the consumer.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// Consumer pops input records off a Redis list, executes a run for
// each and archives the outcome.
type Consumer struct {
	config  Config
	engine  *workflow.Engine
	archive persistence.Archive
	logger  *slog.Logger

	client redis.UniversalClient
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewConsumer creates a queue consumer. The archive may be nil, in
// which case outcomes are only logged.
func NewConsumer(config Config, engine *workflow.Engine, archive persistence.Archive, logger *slog.Logger) (*Consumer, error) {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	if config.Queue == "" {
		config.Queue = defaultQueue
	}

	return &Consumer{
		config:  config,
		engine:  engine,
		archive: archive,
		logger: logger.With(
			"module", "queue_consumer",
			"queue", config.Queue,
		),
		stopCh: make(chan struct{}),
	}, nil
}

// Start connects to Redis and launches the consume loop.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Starting queue consumer")

	err := c.initializeClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) initializeClient(ctx context.Context) error {
	c.client = redis.NewClient(&redis.Options{
		Addr:     c.config.Addr,
		Password: c.config.Password,
		DB:       c.config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err := c.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", c.config.Addr, "db", c.config.DB)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := c.processMessage(ctx)
			if err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(retryBackoff)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, popTimeout, c.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var record models.InputRecord
	if err := json.Unmarshal([]byte(message), &record); err != nil {
		return fmt.Errorf("failed to decode input record: %w", err)
	}

	c.logger.InfoContext(ctx, "Received ticket from queue", "customer", record.CustomerName)

	// Runs execute inline rather than per-message goroutines so that
	// one ticket's run finishes before the next begins.
	payload, err := c.engine.Execute(ctx, record)
	if err != nil {
		c.archiveFailure(ctx, err)

		return nil
	}

	c.logger.InfoContext(ctx, "Run completed",
		"ticket_id", payload.TicketID,
		"stages_completed", payload.Processing.StagesCompleted)

	if c.archive != nil {
		runRecord := persistence.NewCompletedRecord(payload.RunID, payload)
		if err := c.archive.SaveRun(ctx, runRecord); err != nil {
			c.logger.ErrorContext(ctx, "Failed to archive run", "error", err)
		}
	}

	return nil
}

func (c *Consumer) archiveFailure(ctx context.Context, err error) {
	var runErr *workflow.RunError
	if !errors.As(err, &runErr) {
		c.logger.ErrorContext(ctx, "Run rejected", "error", err)

		return
	}

	c.logger.ErrorContext(ctx, "Run aborted",
		"stage", runErr.Stage, "error", runErr.Err)

	if c.archive == nil {
		return
	}

	record := persistence.NewAbortedRecord(
		runErr.State,
		workflow.StatusForError(runErr.Err),
		runErr.Stage,
		runErr.Err.Error(),
	)

	if err := c.archive.SaveRun(ctx, record); err != nil {
		c.logger.ErrorContext(ctx, "Failed to archive run", "error", err)
	}
}

// Stop halts the consume loop and closes the Redis connection.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping queue consumer")

	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		err := c.client.Close()
		if err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
