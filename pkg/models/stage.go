package models

// StageMode selects how a stage's abilities are sequenced.
type StageMode string

const (
	// StageModeSequential runs every ability in declared order.
	StageModeSequential StageMode = "sequential"
	// StageModeAdaptive lets a policy pick the ability sequence at run
	// time based on an earlier ability's result.
	StageModeAdaptive StageMode = "adaptive"
)

// AbilityDescriptor names one unit of work and the provider that
// executes it. Order within a stage's list is meaningful for
// sequential stages.
type AbilityDescriptor struct {
	Name       string `json:"name"        validate:"required"`
	ProviderID string `json:"provider_id" validate:"required"`
}

// StageDefinition is one named step of the pipeline. Definitions are
// immutable after engine construction.
type StageDefinition struct {
	Name        string              `json:"name"      validate:"required"`
	Mode        StageMode           `json:"mode"      validate:"required,oneof=sequential adaptive"`
	Abilities   []AbilityDescriptor `json:"abilities" validate:"required,min=1,dive"`
	Description string              `json:"description"`
}

// Canonical stage names, in execution order.
const (
	StageIntake     = "INTAKE"
	StageUnderstand = "UNDERSTAND"
	StagePrepare    = "PREPARE"
	StageAsk        = "ASK"
	StageWait       = "WAIT"
	StageRetrieve   = "RETRIEVE"
	StageDecide     = "DECIDE"
	StageUpdate     = "UPDATE"
	StageCreate     = "CREATE"
	StageDo         = "DO"
	StageComplete   = "COMPLETE"
)

// Provider identifiers used by the canonical pipeline.
const (
	ProviderCommon   = "common"
	ProviderAtlas    = "atlas"
	ProviderInternal = "internal"
)

// Ability names referenced by the DECIDE stage policy.
const (
	AbilitySolutionEvaluation = "solution_evaluation"
	AbilityEscalationDecision = "escalation_decision"
	AbilityUpdatePayload      = "update_payload"
)

// Pipeline returns the fixed 11-stage support pipeline. Every run
// visits every stage exactly once in this order; DECIDE is the only
// adaptive stage.
func Pipeline() []StageDefinition {
	return []StageDefinition{
		{
			Name: StageIntake,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "accept_payload", ProviderID: ProviderInternal},
			},
			Description: "Accept the incoming customer request payload",
		},
		{
			Name: StageUnderstand,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "parse_request_text", ProviderID: ProviderCommon},
				{Name: "extract_entities", ProviderID: ProviderAtlas},
			},
			Description: "Parse and understand the customer request",
		},
		{
			Name: StagePrepare,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "normalize_fields", ProviderID: ProviderCommon},
				{Name: "enrich_records", ProviderID: ProviderAtlas},
				{Name: "add_flags_calculations", ProviderID: ProviderCommon},
			},
			Description: "Prepare and enrich customer data",
		},
		{
			Name: StageAsk,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "clarify_question", ProviderID: ProviderAtlas},
			},
			Description: "Ask for clarification if needed",
		},
		{
			Name: StageWait,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "extract_answer", ProviderID: ProviderAtlas},
				{Name: "store_answer", ProviderID: ProviderInternal},
			},
			Description: "Wait for and process the customer response",
		},
		{
			Name: StageRetrieve,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "knowledge_base_search", ProviderID: ProviderAtlas},
				{Name: "store_data", ProviderID: ProviderInternal},
			},
			Description: "Retrieve relevant knowledge base information",
		},
		{
			Name: StageDecide,
			Mode: StageModeAdaptive,
			Abilities: []AbilityDescriptor{
				{Name: AbilitySolutionEvaluation, ProviderID: ProviderCommon},
				{Name: AbilityEscalationDecision, ProviderID: ProviderAtlas},
				{Name: AbilityUpdatePayload, ProviderID: ProviderInternal},
			},
			Description: "Evaluate solutions and decide on escalation",
		},
		{
			Name: StageUpdate,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "update_ticket", ProviderID: ProviderAtlas},
				{Name: "close_ticket", ProviderID: ProviderAtlas},
			},
			Description: "Update ticket status and information",
		},
		{
			Name: StageCreate,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "response_generation", ProviderID: ProviderCommon},
			},
			Description: "Generate the customer response",
		},
		{
			Name: StageDo,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "execute_api_calls", ProviderID: ProviderAtlas},
				{Name: "trigger_notifications", ProviderID: ProviderAtlas},
			},
			Description: "Execute actions and notifications",
		},
		{
			Name: StageComplete,
			Mode: StageModeSequential,
			Abilities: []AbilityDescriptor{
				{Name: "output_payload", ProviderID: ProviderInternal},
			},
			Description: "Output the final structured payload",
		},
	}
}

// StageNames returns the names of the given stages in order.
func StageNames(stages []StageDefinition) []string {
	names := make([]string, len(stages))
	for i, stage := range stages {
		names[i] = stage.Name
	}

	return names
}
