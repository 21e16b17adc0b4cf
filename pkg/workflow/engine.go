// Package workflow drives tickets through the fixed stage pipeline.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/caseflowhq/caseflow/pkg/eventbus"
	"github.com/caseflowhq/caseflow/pkg/events"
	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/otelhelper"
	"github.com/caseflowhq/caseflow/pkg/registry"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Engine owns the ordered stage definitions and drives a run across all
// of them in order. One engine serves many concurrent runs; all per-run
// state lives in the RunState created for each Execute call.
type Engine struct {
	pipeline []models.StageDefinition
	executor *StageExecutor
	eventBus eventbus.EventPublisher
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithPipeline replaces the canonical pipeline, for engines that run a
// different stage table.
func WithPipeline(stages []models.StageDefinition) Option {
	return func(e *Engine) {
		e.pipeline = stages
	}
}

// WithEventBus makes the engine publish run lifecycle events.
func WithEventBus(bus eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.eventBus = bus
	}
}

// NewEngine builds an engine over the canonical pipeline and validates
// the stage table against the registry, failing fast on unknown
// providers or abilities.
func NewEngine(reg *registry.Registry, executor *StageExecutor, logger *slog.Logger, opts ...Option) (*Engine, error) {
	engine := &Engine{
		pipeline: models.Pipeline(),
		executor: executor,
		validate: validator.New(),
		tracer:   otel.Tracer("caseflow/workflow"),
		logger:   logger,
	}

	for _, opt := range opts {
		opt(engine)
	}

	if err := reg.ValidatePipeline(engine.pipeline); err != nil {
		return nil, err
	}

	return engine, nil
}

// Pipeline returns the engine's stage definitions.
func (e *Engine) Pipeline() []models.StageDefinition {
	return e.pipeline
}

// Execute drives one input record through every stage strictly in
// order. On success it returns the assembled final payload with status
// "completed". On failure it returns a RunError carrying the partially
// built run state, including the log up to the failure point; no
// payload is synthesized.
func (e *Engine) Execute(ctx context.Context, record models.InputRecord) (*models.FinalPayload, error) {
	if err := e.validate.Struct(record); err != nil {
		return nil, &models.ValidationError{Field: "input_record", Reason: err.Error()}
	}

	ticket, err := models.NewTicket(record)
	if err != nil {
		return nil, err
	}

	state := models.NewRunState(ticket)
	started := time.Now()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.RunIDKey, state.ID),
		attribute.String(otelhelper.TicketIDKey, ticket.ID),
	)
	defer span.End()

	logger := e.logger.With(
		slog.String("run_id", state.ID),
		slog.String("ticket_id", ticket.ID),
	)

	logger.InfoContext(ctx, "Starting run",
		slog.String("priority", string(ticket.Priority)),
		slog.Int("stages", len(e.pipeline)))

	e.publish(ctx, ticket.ID, events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, ticket.ID),
		RunID:     state.ID,
		Priority:  string(ticket.Priority),
	})

	for _, stage := range e.pipeline {
		state.CurrentStage = stage.Name

		result, err := e.executor.RunStage(ctx, state, stage)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, e.abort(ctx, state, stage.Name, started, err, logger)
		}

		state.SetStageResult(stage.Name, result)

		e.publish(ctx, ticket.ID, events.StageCompleted{
			BaseEvent: events.NewBaseEvent(events.StageCompletedEvent, ticket.ID),
			RunID:     state.ID,
			Stage:     stage.Name,
			Abilities: len(result),
		})

		logger.InfoContext(ctx, "Completed stage", slog.String("stage", stage.Name))
	}

	payload := models.NewFinalPayload(state)

	e.publish(ctx, ticket.ID, events.RunCompleted{
		BaseEvent:       events.NewBaseEvent(events.RunCompletedEvent, ticket.ID),
		RunID:           state.ID,
		StagesCompleted: payload.Processing.StagesCompleted,
		Duration:        time.Since(started),
	})

	logger.InfoContext(ctx, "Run completed",
		slog.Int("stages_completed", payload.Processing.StagesCompleted),
		slog.Int("abilities_executed", len(payload.ExecutionLog)))

	return payload, nil
}

func (e *Engine) abort(ctx context.Context, state *models.RunState, stage string, started time.Time, cause error, logger *slog.Logger) error {
	runErr := &RunError{Stage: stage, State: state, Err: cause}

	if IsCancelled(cause) {
		logger.InfoContext(ctx, "Run cancelled", slog.String("stage", stage))

		e.publish(ctx, state.Ticket.ID, events.RunCancelled{
			BaseEvent: events.NewBaseEvent(events.RunCancelledEvent, state.Ticket.ID),
			RunID:     state.ID,
			Stage:     stage,
		})

		return runErr
	}

	logger.ErrorContext(ctx, "Run failed", slog.String("stage", stage), "error", cause)

	e.publish(ctx, state.Ticket.ID, events.RunFailed{
		BaseEvent: events.NewBaseEvent(events.RunFailedEvent, state.Ticket.ID),
		RunID:     state.ID,
		Stage:     stage,
		Error:     cause.Error(),
		Duration:  time.Since(started),
	})

	return runErr
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish run event",
			slog.String("event_type", string(event.GetType())), "error", err)
	}
}
