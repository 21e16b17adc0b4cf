package cmd

import (
	"log/slog"

	"github.com/caseflowhq/caseflow/pkg/dispatch"
	"github.com/caseflowhq/caseflow/pkg/eventbus"
	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/providers/canned"
	"github.com/caseflowhq/caseflow/pkg/providers/httpapi"
	"github.com/caseflowhq/caseflow/pkg/providers/internalstate"
	"github.com/caseflowhq/caseflow/pkg/registry"
	"github.com/caseflowhq/caseflow/pkg/workflow"
)

// ProviderConfig selects the transport for the two external capability
// providers. An empty URL falls back to the canned response tables.
type ProviderConfig struct {
	CommonURL string
	AtlasURL  string
}

// NewRegistry builds the provider registry for the canonical pipeline.
func NewRegistry(config ProviderConfig, logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	if config.CommonURL != "" {
		reg.RegisterProvider(httpapi.NewProvider(
			models.ProviderCommon, config.CommonURL, pipelineAbilities(models.ProviderCommon), logger))
	} else {
		reg.RegisterProvider(canned.NewProvider(models.ProviderCommon, canned.CommonResponses()))
	}

	if config.AtlasURL != "" {
		reg.RegisterProvider(httpapi.NewProvider(
			models.ProviderAtlas, config.AtlasURL, pipelineAbilities(models.ProviderAtlas), logger))
	} else {
		reg.RegisterProvider(canned.NewProvider(models.ProviderAtlas, canned.AtlasResponses()))
	}

	reg.RegisterProvider(internalstate.NewProvider(logger))

	return reg
}

// NewEngine assembles the run engine over the canonical pipeline.
func NewEngine(reg *registry.Registry, bus eventbus.EventBus, logger *slog.Logger) (*workflow.Engine, error) {
	dispatcher := dispatch.NewDispatcher(reg, logger)
	executor := workflow.NewStageExecutor(dispatcher, logger)

	opts := []workflow.Option{}
	if bus != nil {
		opts = append(opts, workflow.WithEventBus(bus))
	}

	return workflow.NewEngine(reg, executor, logger, opts...)
}

// pipelineAbilities collects the ability names the canonical pipeline
// dispatches to one provider.
func pipelineAbilities(providerID string) []string {
	seen := make(map[string]bool)
	abilities := make([]string, 0)

	for _, stage := range models.Pipeline() {
		for _, descriptor := range stage.Abilities {
			if descriptor.ProviderID == providerID && !seen[descriptor.Name] {
				seen[descriptor.Name] = true

				abilities = append(abilities, descriptor.Name)
			}
		}
	}

	return abilities
}
