package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicket_Defaults(t *testing.T) {
	t.Parallel()

	ticket, err := NewTicket(InputRecord{Query: "I need help with my bill"})
	require.NoError(t, err)

	assert.Equal(t, PriorityMedium, ticket.Priority)
	assert.True(t, strings.HasPrefix(ticket.ID, "TKT-"), "generated ID should carry the TKT- prefix, got %s", ticket.ID)
	assert.Len(t, ticket.ID, len("TKT-")+8)
	assert.Equal(t, "I need help with my bill", ticket.RequestText)
	assert.NotNil(t, ticket.Fields)
}

func TestNewTicket_KeepsProvidedIdentity(t *testing.T) {
	t.Parallel()

	ticket, err := NewTicket(InputRecord{
		CustomerName: "John Doe",
		Email:        "john@example.com",
		Query:        "Refund the duplicate charge",
		Priority:     "high",
		TicketID:     "TKT-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "TKT-1", ticket.ID)
	assert.Equal(t, "John Doe", ticket.CustomerName)
	assert.Equal(t, "john@example.com", ticket.ContactInfo)
	assert.Equal(t, PriorityHigh, ticket.Priority)
}

func TestNewTicket_MissingQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
	}{
		{name: "empty", query: ""},
		{name: "whitespace only", query: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTicket(InputRecord{CustomerName: "Jane", Query: tt.query})
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), "query")
		})
	}
}

func TestNewTicket_InvalidPriority(t *testing.T) {
	t.Parallel()

	_, err := NewTicket(InputRecord{Query: "help", Priority: "urgent"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Priority
		wantErr bool
	}{
		{raw: "", want: PriorityMedium},
		{raw: "low", want: PriorityLow},
		{raw: "HIGH", want: PriorityHigh},
		{raw: "Critical", want: PriorityCritical},
		{raw: "urgent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePriority(tt.raw)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetField(t *testing.T) {
	t.Parallel()

	ticket := &Ticket{ID: "TKT-1"}
	ticket.SetField("sla_risk", "medium")

	assert.Equal(t, "medium", ticket.Fields["sla_risk"])
}
