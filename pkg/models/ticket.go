// Package models defines the core domain models for the staged support
// ticket pipeline.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Priority represents the urgency of a ticket.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultPriority is assigned when the input record carries no priority.
const DefaultPriority = PriorityMedium

// ParsePriority converts a raw string into a Priority. An empty string
// resolves to DefaultPriority.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(strings.ToLower(raw)) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return Priority(strings.ToLower(raw)), nil
	case "":
		return DefaultPriority, nil
	default:
		return "", fmt.Errorf("invalid priority %q", raw)
	}
}

// FieldMapping is the untyped payload exchanged with capability
// providers. The engine never assumes anything about its contents
// beyond it being a mapping of fields.
type FieldMapping map[string]any

// InputRecord is the request that starts a run. Every field except the
// query has a documented default.
type InputRecord struct {
	CustomerName string `json:"customer_name"`
	Email        string `json:"email"`
	Query        string `json:"query"    validate:"required"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	TicketID     string `json:"ticket_id"`
}

// Ticket is the work item threaded through the pipeline. ID is
// immutable once assigned; abilities may add or overwrite entries in
// Fields but never remove the ticket itself.
type Ticket struct {
	ID           string   `json:"ticket_id"     validate:"required"`
	CustomerName string   `json:"customer_name"`
	ContactInfo  string   `json:"email"`
	RequestText  string   `json:"query"`
	Priority     Priority `json:"priority"      validate:"required,oneof=low medium high critical"`

	// Fields holds ability-contributed data, kept apart from the typed
	// core fields so ownership of every key is traceable.
	Fields FieldMapping `json:"fields,omitempty"`
}

// ValidationError reports an input record or pipeline table that cannot
// be executed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
	}

	return "validation failed: " + e.Reason
}

// IsValidationError checks whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError

	return errors.As(err, &ve)
}

// NewTicket builds a Ticket from an input record, filling defaults:
// priority "medium" and a generated TKT- identifier when absent.
func NewTicket(rec InputRecord) (*Ticket, error) {
	if strings.TrimSpace(rec.Query) == "" {
		return nil, &ValidationError{Field: "query", Reason: "required and has no safe default"}
	}

	priority, err := ParsePriority(rec.Priority)
	if err != nil {
		return nil, &ValidationError{Field: "priority", Reason: err.Error()}
	}

	id := rec.TicketID
	if id == "" {
		id = GenerateTicketID()
	}

	return &Ticket{
		ID:           id,
		CustomerName: rec.CustomerName,
		ContactInfo:  rec.Email,
		RequestText:  rec.Query,
		Priority:     priority,
		Fields:       FieldMapping{},
	}, nil
}

// GenerateTicketID produces a random TKT-XXXXXXXX identifier.
func GenerateTicketID() string {
	return "TKT-" + strings.ToUpper(uuid.New().String()[:8])
}

// SetField records an ability-contributed field on the ticket.
func (t *Ticket) SetField(key string, value any) {
	if t.Fields == nil {
		t.Fields = FieldMapping{}
	}

	t.Fields[key] = value
}
