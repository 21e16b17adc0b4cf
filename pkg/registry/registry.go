// Package registry resolves ability descriptors to capability providers
// and validates the pipeline table before any run starts.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/provider"
	"github.com/xeipuuv/gojsonschema"
)

// Registry holds the registered capability providers and optional
// per-ability result schemas. Registration happens at construction
// time; lookups during a run never mutate it, so concurrent runs can
// share one instance.
type Registry struct {
	logger        *slog.Logger
	providers     map[string]provider.CapabilityProvider
	abilities     map[string]map[string]bool
	resultSchemas map[string]map[string]any
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:        logger,
		providers:     make(map[string]provider.CapabilityProvider),
		abilities:     make(map[string]map[string]bool),
		resultSchemas: make(map[string]map[string]any),
	}
}

// RegisterProvider adds a provider and indexes its advertised abilities.
func (r *Registry) RegisterProvider(p provider.CapabilityProvider) {
	r.providers[p.ID()] = p

	known := make(map[string]bool, len(p.Abilities()))
	for _, ability := range p.Abilities() {
		known[ability] = true
	}

	r.abilities[p.ID()] = known

	r.logger.Info("Registered capability provider",
		slog.String("provider_id", p.ID()),
		slog.Int("abilities", len(known)))
}

// RegisterResultSchema attaches a JSON schema that results of the given
// ability must satisfy. A violating result is treated as malformed.
func (r *Registry) RegisterResultSchema(ability string, schema map[string]any) {
	r.resultSchemas[ability] = schema
}

// Resolve returns the provider registered under the given identifier.
func (r *Registry) Resolve(providerID string) (provider.CapabilityProvider, error) {
	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", providerID)
	}

	return p, nil
}

// ValidatePipeline fails fast on a malformed stage table: duplicate or
// empty stage names, invalid modes, unregistered providers, or ability
// names a provider does not advertise.
func (r *Registry) ValidatePipeline(stages []models.StageDefinition) error {
	seen := make(map[string]bool, len(stages))

	for _, stage := range stages {
		if stage.Name == "" {
			return &models.ValidationError{Field: "stage", Reason: "stage name is empty"}
		}

		if seen[stage.Name] {
			return &models.ValidationError{Field: stage.Name, Reason: "duplicate stage name"}
		}

		seen[stage.Name] = true

		if stage.Mode != models.StageModeSequential && stage.Mode != models.StageModeAdaptive {
			return &models.ValidationError{Field: stage.Name, Reason: fmt.Sprintf("invalid mode %q", stage.Mode)}
		}

		if len(stage.Abilities) == 0 {
			return &models.ValidationError{Field: stage.Name, Reason: "stage declares no abilities"}
		}

		for _, descriptor := range stage.Abilities {
			known, ok := r.abilities[descriptor.ProviderID]
			if !ok {
				return &models.ValidationError{
					Field:  stage.Name,
					Reason: fmt.Sprintf("provider %q not registered for ability %q", descriptor.ProviderID, descriptor.Name),
				}
			}

			if !known[descriptor.Name] {
				return &models.ValidationError{
					Field:  stage.Name,
					Reason: fmt.Sprintf("provider %q does not advertise ability %q", descriptor.ProviderID, descriptor.Name),
				}
			}
		}
	}

	return nil
}

// ValidateResult checks an ability result against its registered schema,
// if any. Abilities without a schema pass unchecked.
func (r *Registry) ValidateResult(ability string, result models.FieldMapping) error {
	schema, ok := r.resultSchemas[ability]
	if !ok {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(map[string]any(result))

	outcome, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !outcome.Valid() {
		descriptions := make([]string, 0, len(outcome.Errors()))
		for _, desc := range outcome.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("result violates schema for %s: %s", ability, strings.Join(descriptions, "; "))
	}

	return nil
}

// HealthCheck reports the registry contents, used by the API health
// endpoint.
func (r *Registry) HealthCheck() (map[string]any, bool) {
	providerIDs := make([]string, 0, len(r.providers))
	for id := range r.providers {
		providerIDs = append(providerIDs, id)
	}

	return map[string]any{
		"providers": providerIDs,
	}, len(r.providers) > 0
}
