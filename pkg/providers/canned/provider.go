// Package canned implements a capability provider that answers from a
// fixed response table. It backs the demo command and the test suite;
// production engines wire httpapi providers instead.
package canned

import (
	"context"
	"fmt"
	"sync"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/provider"
)

// Provider returns a canned field mapping per ability and counts
// invocations, so tests can assert which abilities were actually
// dispatched.
type Provider struct {
	id        string
	responses map[string]models.FieldMapping

	mu    sync.Mutex
	calls map[string]int
}

func NewProvider(id string, responses map[string]models.FieldMapping) *Provider {
	return &Provider{
		id:        id,
		responses: responses,
		calls:     make(map[string]int),
	}
}

func (p *Provider) ID() string {
	return p.id
}

func (p *Provider) Abilities() []string {
	abilities := make([]string, 0, len(p.responses))
	for ability := range p.responses {
		abilities = append(abilities, ability)
	}

	return abilities
}

// SetResponse overrides the canned answer for one ability.
func (p *Provider) SetResponse(ability string, response models.FieldMapping) {
	p.responses[ability] = response
}

// CallCount reports how many times an ability was invoked.
func (p *Provider) CallCount(ability string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls[ability]
}

func (p *Provider) Invoke(_ context.Context, ability string, _ models.FieldMapping) (models.FieldMapping, error) {
	p.mu.Lock()
	p.calls[ability]++
	p.mu.Unlock()

	response, ok := p.responses[ability]
	if !ok {
		return nil, provider.NewProviderError(p.id, ability,
			fmt.Errorf("no canned response for ability %q", ability))
	}

	// Hand out a copy so abilities downstream cannot mutate the table.
	out := make(models.FieldMapping, len(response))
	for k, v := range response {
		out[k] = v
	}

	return out, nil
}

// CommonResponses is the canned answer table for the general-purpose
// provider.
func CommonResponses() map[string]models.FieldMapping {
	return map[string]models.FieldMapping{
		"parse_request_text": {
			"structured_data": map[string]any{
				"issue_type": "billing",
				"urgency":    "high",
				"keywords":   []string{"refund", "charge", "error"},
			},
		},
		"normalize_fields": {
			"normalized": map[string]any{
				"date_format":   "ISO-8601",
				"priority_code": "P1",
			},
		},
		"add_flags_calculations": {
			"flags": map[string]any{
				"sla_risk":       "medium",
				"priority_score": 85,
				"auto_escalate":  false,
			},
		},
		"solution_evaluation": {
			"solutions": []any{
				map[string]any{"solution": "Process refund", "score": 95},
				map[string]any{"solution": "Apply credit", "score": 78},
			},
			"best_score": 95,
		},
		"response_generation": {
			"response": "We've processed your refund request. You should see the credit within 3-5 business days.",
		},
	}
}

// AtlasResponses is the canned answer table for the systems-of-record
// provider.
func AtlasResponses() map[string]models.FieldMapping {
	return map[string]models.FieldMapping{
		"extract_entities": {
			"entities": map[string]any{
				"product":    "Premium Subscription",
				"account_id": "ACC-12345",
				"dates":      []string{"2024-01-15"},
			},
		},
		"enrich_records": {
			"enriched": map[string]any{
				"sla_deadline":     "2024-01-17T10:00:00Z",
				"customer_tier":    "Premium",
				"previous_tickets": 2,
			},
		},
		"clarify_question": {
			"clarification": "Could you please provide your transaction ID for the billing issue?",
		},
		"extract_answer": {
			"customer_response": "Transaction ID: TXN-789456",
		},
		"knowledge_base_search": {
			"kb_results": []any{
				map[string]any{"article": "Billing FAQ", "relevance": 95},
				map[string]any{"article": "Refund Process", "relevance": 88},
			},
		},
		"escalation_decision": {
			"escalate": true,
			"reason":   "Score below threshold",
		},
		"update_ticket": {
			"status":         "In Progress",
			"updated_fields": []string{"priority", "assignee"},
		},
		"close_ticket": {
			"status":          "Resolved",
			"resolution_time": "2 hours",
		},
		"execute_api_calls": {
			"api_calls": []string{"CRM Update", "Billing System"},
			"success":   true,
		},
		"trigger_notifications": {
			"notifications":   []string{"Email sent", "SMS sent"},
			"delivery_status": "Success",
		},
	}
}
