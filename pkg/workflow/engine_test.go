package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflowhq/caseflow/pkg/dispatch"
	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/provider"
	"github.com/caseflowhq/caseflow/pkg/providers/canned"
	"github.com/caseflowhq/caseflow/pkg/providers/internalstate"
	"github.com/caseflowhq/caseflow/pkg/registry"
	"github.com/caseflowhq/caseflow/pkg/workflow"
)

type engineRig struct {
	engine *workflow.Engine
	common *canned.Provider
	atlas  *canned.Provider
}

func newEngineRig(t *testing.T) *engineRig {
	t.Helper()

	common := canned.NewProvider(models.ProviderCommon, canned.CommonResponses())
	atlas := canned.NewProvider(models.ProviderAtlas, canned.AtlasResponses())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterProvider(common)
	reg.RegisterProvider(atlas)
	reg.RegisterProvider(internalstate.NewProvider(slog.Default()))

	dispatcher := dispatch.NewDispatcher(reg, slog.Default())
	executor := workflow.NewStageExecutor(dispatcher, slog.Default())

	engine, err := workflow.NewEngine(reg, executor, slog.Default())
	require.NoError(t, err)

	return &engineRig{engine: engine, common: common, atlas: atlas}
}

func TestEngine_ExecuteCompletesAllStages(t *testing.T) {
	t.Parallel()

	rig := newEngineRig(t)

	payload, err := rig.engine.Execute(context.Background(), models.InputRecord{
		CustomerName: "John Doe",
		Email:        "john@example.com",
		Query:        "I was charged twice for my subscription",
		Priority:     "high",
		TicketID:     "TKT-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "TKT-1", payload.TicketID)
	assert.Equal(t, "John Doe", payload.Customer.Name)
	assert.Equal(t, models.PriorityHigh, payload.Request.Priority)
	assert.Equal(t, models.RunStatusCompleted, payload.Processing.Status)
	assert.Equal(t, 11, payload.Processing.StagesCompleted)

	// Results arrive keyed by stage, in canonical execution order.
	assert.Equal(t, models.StageNames(models.Pipeline()), payload.Results.Names())

	// Score 95 is above the threshold: no escalation dispatch, but the
	// synthesized outcome still shows up in results and log.
	assert.Zero(t, rig.atlas.CallCount(models.AbilityEscalationDecision))

	decide, ok := payload.Results.Get(models.StageDecide)
	require.True(t, ok)
	assert.Equal(t, false, decide[models.AbilityEscalationDecision]["escalate"])

	// Every dispatched ability logged exactly once, in order.
	require.Len(t, payload.ExecutionLog, 20)
	assert.Equal(t, "accept_payload", payload.ExecutionLog[0].Ability)
	assert.Equal(t, "output_payload", payload.ExecutionLog[len(payload.ExecutionLog)-1].Ability)

	for i := 1; i < len(payload.ExecutionLog); i++ {
		assert.False(t, payload.ExecutionLog[i].Timestamp.Before(payload.ExecutionLog[i-1].Timestamp))
	}
}

func TestEngine_ExecuteEscalationPath(t *testing.T) {
	t.Parallel()

	rig := newEngineRig(t)
	rig.common.SetResponse(models.AbilitySolutionEvaluation, models.FieldMapping{"best_score": 60})

	payload, err := rig.engine.Execute(context.Background(), models.InputRecord{
		Query: "something obscure",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rig.atlas.CallCount(models.AbilityEscalationDecision))

	decide, ok := payload.Results.Get(models.StageDecide)
	require.True(t, ok)
	assert.Equal(t, true, decide[models.AbilityEscalationDecision]["escalate"])
}

func TestEngine_ExecuteFillsDefaults(t *testing.T) {
	t.Parallel()

	rig := newEngineRig(t)

	payload, err := rig.engine.Execute(context.Background(), models.InputRecord{Query: "help"})
	require.NoError(t, err)

	assert.Equal(t, models.PriorityMedium, payload.Request.Priority)
	assert.NotEmpty(t, payload.TicketID)
	assert.NotEmpty(t, payload.RunID)
}

func TestEngine_ExecuteRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	rig := newEngineRig(t)

	_, err := rig.engine.Execute(context.Background(), models.InputRecord{CustomerName: "Jane"})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
}

func TestEngine_ExecuteFailFastAbortsRun(t *testing.T) {
	t.Parallel()

	common := canned.NewProvider(models.ProviderCommon, map[string]models.FieldMapping{})
	atlas := canned.NewProvider(models.ProviderAtlas, canned.AtlasResponses())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterProvider(common)
	reg.RegisterProvider(atlas)
	reg.RegisterProvider(internalstate.NewProvider(slog.Default()))

	dispatcher := dispatch.NewDispatcher(reg, slog.Default())
	executor := workflow.NewStageExecutor(dispatcher, slog.Default())

	// NewEngine validates the table against the registry, so the broken
	// provider is caught before any run starts.
	_, err := workflow.NewEngine(reg, executor, slog.Default())
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
}

func TestEngine_ExecuteProviderFailureMidRun(t *testing.T) {
	t.Parallel()

	rig := newEngineRig(t)

	// UNDERSTAND's first ability starts returning garbage that violates
	// its registered schema; the run must abort there.
	rig.common.SetResponse("parse_request_text", models.FieldMapping{"unexpected": true})

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterProvider(rig.common)
	reg.RegisterProvider(rig.atlas)
	reg.RegisterProvider(internalstate.NewProvider(slog.Default()))
	reg.RegisterResultSchema("parse_request_text", map[string]any{
		"type":     "object",
		"required": []any{"structured_data"},
	})

	dispatcher := dispatch.NewDispatcher(reg, slog.Default())
	executor := workflow.NewStageExecutor(dispatcher, slog.Default())

	engine, err := workflow.NewEngine(reg, executor, slog.Default())
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), models.InputRecord{Query: "help"})
	require.Error(t, err)

	var runErr *workflow.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, models.StageUnderstand, runErr.Stage)
	assert.True(t, provider.IsProviderError(runErr.Err))

	// The log keeps everything up to and including the failed dispatch,
	// and nothing after it.
	log := runErr.State.Log()
	require.NotEmpty(t, log)
	last := log[len(log)-1]
	assert.Equal(t, "parse_request_text", last.Ability)
	assert.NotEmpty(t, last.FailureReason)

	_, ran := runErr.State.StageResult(models.StageUnderstand)
	assert.False(t, ran)
}

func TestEngine_ExecuteCancelledRun(t *testing.T) {
	t.Parallel()

	rig := newEngineRig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rig.engine.Execute(ctx, models.InputRecord{Query: "help"})
	require.Error(t, err)
	assert.True(t, workflow.IsCancelled(err))
	assert.Equal(t, models.RunStatusCancelled, workflow.StatusForError(err))

	var runErr *workflow.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, models.StageIntake, runErr.Stage)
}
