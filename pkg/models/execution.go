package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExecutionLogEntry is an append-only record of one ability dispatch
// attempt. Exactly one of Result and FailureReason is set.
type ExecutionLogEntry struct {
	Timestamp     time.Time    `json:"timestamp"`
	Stage         string       `json:"stage"`
	Ability       string       `json:"ability"`
	ProviderID    string       `json:"provider_id"`
	Result        FieldMapping `json:"result,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

// StageResult maps ability names to the field mappings they produced.
type StageResult map[string]FieldMapping

// OrderedResults is a stage-name-keyed mapping that preserves insertion
// order, which equals execution order. It marshals as a JSON object
// with keys in that order.
type OrderedResults struct {
	order   []string
	results map[string]StageResult
}

func NewOrderedResults() *OrderedResults {
	return &OrderedResults{results: make(map[string]StageResult)}
}

// Set stores the result for a stage, appending the stage to the order
// on first insertion.
func (r *OrderedResults) Set(stage string, result StageResult) {
	if _, exists := r.results[stage]; !exists {
		r.order = append(r.order, stage)
	}

	r.results[stage] = result
}

func (r *OrderedResults) Get(stage string) (StageResult, bool) {
	result, ok := r.results[stage]

	return result, ok
}

// Names returns the stage names in insertion order.
func (r *OrderedResults) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

func (r *OrderedResults) Len() int {
	return len(r.order)
}

func (r *OrderedResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, stage := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(stage)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(r.results[stage])
		if err != nil {
			return nil, err
		}

		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (r *OrderedResults) UnmarshalJSON(data []byte) error {
	r.order = nil
	r.results = make(map[string]StageResult)

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object for results, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		stage, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key in results, got %v", keyTok)
		}

		var result StageResult
		if err := dec.Decode(&result); err != nil {
			return err
		}

		r.Set(stage, result)
	}

	_, err = dec.Token() // closing brace

	return err
}

// RunState is the aggregate owned by exactly one in-flight run: the
// ticket, the execution log, per-stage results in execution order, and
// the current stage marker. It is never shared across concurrent runs.
type RunState struct {
	ID           string
	Ticket       *Ticket
	CurrentStage string

	log     []ExecutionLogEntry
	results *OrderedResults
}

// NewRunState creates the state for a fresh run.
func NewRunState(ticket *Ticket) *RunState {
	return &RunState{
		ID:      GenerateRunID(),
		Ticket:  ticket,
		results: NewOrderedResults(),
	}
}

// GenerateRunID produces a run-XXXXXXXX execution identifier.
func GenerateRunID() string {
	return "run-" + uuid.New().String()[:8]
}

// AppendLog records one dispatch attempt. Timestamps are clamped so the
// log is monotonically non-decreasing even if the clock steps back.
func (s *RunState) AppendLog(entry ExecutionLogEntry) {
	if n := len(s.log); n > 0 && entry.Timestamp.Before(s.log[n-1].Timestamp) {
		entry.Timestamp = s.log[n-1].Timestamp
	}

	s.log = append(s.log, entry)
}

// Log returns a copy of the execution log; the log itself is owned by
// the run and never mutated after append.
func (s *RunState) Log() []ExecutionLogEntry {
	out := make([]ExecutionLogEntry, len(s.log))
	copy(out, s.log)

	return out
}

// SetStageResult stores a completed stage's result, preserving
// execution order.
func (s *RunState) SetStageResult(stage string, result StageResult) {
	s.results.Set(stage, result)
}

// StageResult returns the result recorded for a stage.
func (s *RunState) StageResult(stage string) (StageResult, bool) {
	return s.results.Get(stage)
}

// Results exposes the ordered per-stage results.
func (s *RunState) Results() *OrderedResults {
	return s.results
}

// View builds the read view of current state handed to providers:
// the ticket's core fields plus everything abilities contributed so
// far. Mutating the view does not touch the run state.
func (s *RunState) View() FieldMapping {
	view := FieldMapping{
		"ticket_id":     s.Ticket.ID,
		"customer_name": s.Ticket.CustomerName,
		"email":         s.Ticket.ContactInfo,
		"query":         s.Ticket.RequestText,
		"priority":      string(s.Ticket.Priority),
		"current_stage": s.CurrentStage,
	}

	for key, value := range s.Ticket.Fields {
		view[key] = value
	}

	return view
}

// Run completion statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Customer identifies who filed the ticket.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Request summarizes what was asked.
type Request struct {
	Query    string   `json:"query"`
	Priority Priority `json:"priority"`
}

// Processing summarizes how the run went.
type Processing struct {
	StagesCompleted int       `json:"stages_completed"`
	ExecutionTime   time.Time `json:"execution_time"`
	Status          string    `json:"status"`
}

// FinalPayload is the read-only snapshot assembled once at the end of a
// successful run.
type FinalPayload struct {
	RunID        string              `json:"run_id"`
	TicketID     string              `json:"ticket_id"`
	Customer     Customer            `json:"customer"`
	Request      Request             `json:"request"`
	Processing   Processing          `json:"processing"`
	Results      *OrderedResults     `json:"results"`
	ExecutionLog []ExecutionLogEntry `json:"execution_log"`
}

// NewFinalPayload assembles the payload from a completed run's state.
func NewFinalPayload(state *RunState) *FinalPayload {
	return &FinalPayload{
		RunID:    state.ID,
		TicketID: state.Ticket.ID,
		Customer: Customer{
			Name:  state.Ticket.CustomerName,
			Email: state.Ticket.ContactInfo,
		},
		Request: Request{
			Query:    state.Ticket.RequestText,
			Priority: state.Ticket.Priority,
		},
		Processing: Processing{
			StagesCompleted: state.Results().Len(),
			ExecutionTime:   time.Now().UTC(),
			Status:          RunStatusCompleted,
		},
		Results:      state.Results(),
		ExecutionLog: state.Log(),
	}
}
