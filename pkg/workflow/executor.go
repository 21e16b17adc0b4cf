package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/caseflowhq/caseflow/pkg/dispatch"
	"github.com/caseflowhq/caseflow/pkg/models"
)

// AdaptivePolicy drives an adaptive stage: evaluate first, branch on a
// numeric score, always finish with a closing ability. Threshold and
// predicate are per-stage configuration, not engine constants, so other
// adaptive stages can carry different policies.
type AdaptivePolicy struct {
	// EvaluateAbility always runs first and produces the score.
	EvaluateAbility string
	// ScoreField is read from the evaluation result; a missing or
	// non-numeric value counts as 0, which forces the branch.
	ScoreField string
	// Threshold: scores below it dispatch BranchAbility.
	Threshold float64
	// BranchAbility runs only when the score is below Threshold.
	BranchAbility string
	// SynthesizedResult is recorded under BranchAbility's name when the
	// branch is skipped. This is a genuine short-circuit: the provider
	// is not called, but the outcome is logged like any other entry.
	SynthesizedResult models.FieldMapping
	// FinalAbility always runs last, regardless of the branch taken.
	FinalAbility string
}

// DecidePolicy is the canonical policy for the DECIDE stage: escalate
// when the best solution score is below 90.
func DecidePolicy() AdaptivePolicy {
	return AdaptivePolicy{
		EvaluateAbility: models.AbilitySolutionEvaluation,
		ScoreField:      "best_score",
		Threshold:       90,
		BranchAbility:   models.AbilityEscalationDecision,
		SynthesizedResult: models.FieldMapping{
			"escalate": false,
			"reason":   "Score above threshold",
		},
		FinalAbility: models.AbilityUpdatePayload,
	}
}

// StageExecutor runs all abilities of one stage according to its mode.
type StageExecutor struct {
	dispatcher *dispatch.Dispatcher
	policies   map[string]AdaptivePolicy
	logger     *slog.Logger
}

// NewStageExecutor creates an executor with the canonical DECIDE policy
// pre-registered.
func NewStageExecutor(dispatcher *dispatch.Dispatcher, logger *slog.Logger) *StageExecutor {
	return &StageExecutor{
		dispatcher: dispatcher,
		policies: map[string]AdaptivePolicy{
			models.StageDecide: DecidePolicy(),
		},
		logger: logger,
	}
}

// SetPolicy registers or replaces the adaptive policy for a stage.
func (e *StageExecutor) SetPolicy(stage string, policy AdaptivePolicy) {
	e.policies[stage] = policy
}

// RunStage executes one stage and returns its per-ability results. On
// the first dispatch failure the stage fails immediately; log entries
// of earlier abilities remain in the run's log.
func (e *StageExecutor) RunStage(ctx context.Context, state *models.RunState, stage models.StageDefinition) (models.StageResult, error) {
	logger := e.logger.With(
		slog.String("run_id", state.ID),
		slog.String("stage", stage.Name),
		slog.String("mode", string(stage.Mode)),
	)

	logger.InfoContext(ctx, "Executing stage")

	if stage.Mode == models.StageModeAdaptive {
		return e.runAdaptive(ctx, state, stage, logger)
	}

	return e.runSequential(ctx, state, stage)
}

func (e *StageExecutor) runSequential(ctx context.Context, state *models.RunState, stage models.StageDefinition) (models.StageResult, error) {
	results := make(models.StageResult, len(stage.Abilities))

	for _, descriptor := range stage.Abilities {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}

		result, err := e.dispatcher.Dispatch(ctx, state, stage.Name, descriptor)
		if err != nil {
			return nil, err
		}

		results[descriptor.Name] = result
	}

	return results, nil
}

func (e *StageExecutor) runAdaptive(ctx context.Context, state *models.RunState, stage models.StageDefinition, logger *slog.Logger) (models.StageResult, error) {
	policy, ok := e.policies[stage.Name]
	if !ok {
		return nil, &models.ValidationError{Field: stage.Name, Reason: "adaptive stage has no registered policy"}
	}

	results := make(models.StageResult, len(stage.Abilities))

	evaluate, err := findDescriptor(stage, policy.EvaluateAbility)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}

	evaluation, err := e.dispatcher.Dispatch(ctx, state, stage.Name, evaluate)
	if err != nil {
		return nil, err
	}

	results[evaluate.Name] = evaluation

	score := scoreFrom(evaluation, policy.ScoreField)
	logger.InfoContext(ctx, "Evaluated solution score", slog.Float64("score", score), slog.Float64("threshold", policy.Threshold))

	branch, err := findDescriptor(stage, policy.BranchAbility)
	if err != nil {
		return nil, err
	}

	if score < policy.Threshold {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}

		logger.InfoContext(ctx, "Score below threshold, dispatching branch ability")

		branchResult, err := e.dispatcher.Dispatch(ctx, state, stage.Name, branch)
		if err != nil {
			return nil, err
		}

		results[branch.Name] = branchResult
	} else {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}

		logger.InfoContext(ctx, "Score above threshold, short-circuiting branch ability")

		synthesized := copyMapping(policy.SynthesizedResult)
		e.dispatcher.RecordSynthesized(state, stage.Name, branch, synthesized)
		results[branch.Name] = synthesized
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}

	final, err := findDescriptor(stage, policy.FinalAbility)
	if err != nil {
		return nil, err
	}

	finalResult, err := e.dispatcher.Dispatch(ctx, state, stage.Name, final)
	if err != nil {
		return nil, err
	}

	results[final.Name] = finalResult

	return results, nil
}

func findDescriptor(stage models.StageDefinition, ability string) (models.AbilityDescriptor, error) {
	for _, descriptor := range stage.Abilities {
		if descriptor.Name == ability {
			return descriptor, nil
		}
	}

	return models.AbilityDescriptor{}, &models.ValidationError{
		Field:  stage.Name,
		Reason: fmt.Sprintf("policy references ability %q not declared by the stage", ability),
	}
}

// scoreFrom extracts a numeric score from an ability result. Results
// arrive both as native Go numbers and as decoded JSON, so all numeric
// shapes are accepted; anything else counts as 0.
func scoreFrom(result models.FieldMapping, field string) float64 {
	switch v := result[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}

		return f
	default:
		return 0
	}
}

func copyMapping(m models.FieldMapping) models.FieldMapping {
	out := make(models.FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
