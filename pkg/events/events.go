// Package events defines event types for run lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all run lifecycle events.
const Topic = "caseflow.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent     EventType = "run.started"
	StageCompletedEvent EventType = "run.stage.completed"
	RunCompletedEvent   EventType = "run.completed"
	RunFailedEvent      EventType = "run.failed"
	RunCancelledEvent   EventType = "run.cancelled"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TicketID  string         `json:"ticket_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, ticketID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TicketID:  ticketID,
		Metadata:  make(map[string]any),
	}
}

type RunStarted struct {
	BaseEvent

	RunID    string `json:"run_id"`
	Priority string `json:"priority"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type StageCompleted struct {
	BaseEvent

	RunID     string `json:"run_id"`
	Stage     string `json:"stage"`
	Abilities int    `json:"abilities"`
}

func (e StageCompleted) GetType() EventType {
	return StageCompletedEvent
}

type RunCompleted struct {
	BaseEvent

	RunID           string        `json:"run_id"`
	StagesCompleted int           `json:"stages_completed"`
	Duration        time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	Stage    string        `json:"stage"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunCancelled struct {
	BaseEvent

	RunID string `json:"run_id"`
	Stage string `json:"stage"`
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}
