// Package internalstate implements the in-process provider for
// state-management abilities that never leave the engine.
package internalstate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/provider"
)

const (
	AbilityAcceptPayload = "accept_payload"
	AbilityStoreAnswer   = "store_answer"
	AbilityStoreData     = "store_data"
	AbilityUpdatePayload = "update_payload"
	AbilityOutputPayload = "output_payload"
)

// Provider handles the bookkeeping abilities of the pipeline.
type Provider struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewProvider(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger.With("provider_id", models.ProviderInternal),
		now:    time.Now,
	}
}

func (p *Provider) ID() string {
	return models.ProviderInternal
}

func (p *Provider) Abilities() []string {
	return []string{
		AbilityAcceptPayload,
		AbilityStoreAnswer,
		AbilityStoreData,
		AbilityUpdatePayload,
		AbilityOutputPayload,
	}
}

func (p *Provider) Invoke(ctx context.Context, ability string, _ models.FieldMapping) (models.FieldMapping, error) {
	p.logger.InfoContext(ctx, "Executing internal ability", slog.String("ability", ability))

	timestamp := p.now().UTC().Format(time.RFC3339)

	switch ability {
	case AbilityAcceptPayload:
		return models.FieldMapping{"status": "payload_accepted", "timestamp": timestamp}, nil
	case AbilityStoreAnswer:
		return models.FieldMapping{"status": "answer_stored", "timestamp": timestamp}, nil
	case AbilityStoreData:
		return models.FieldMapping{"status": "data_stored", "timestamp": timestamp}, nil
	case AbilityUpdatePayload:
		return models.FieldMapping{"status": "payload_updated", "timestamp": timestamp}, nil
	case AbilityOutputPayload:
		return models.FieldMapping{"status": "payload_output", "final": true}, nil
	default:
		return nil, provider.NewProviderError(p.ID(), ability,
			fmt.Errorf("unknown internal ability %q", ability))
	}
}
