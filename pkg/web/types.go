package web

// RunTicketRequest is the body for POST /runs.
type RunTicketRequest struct {
	CustomerName string `json:"customer_name" validate:"omitempty"`
	Email        string `json:"email"         validate:"omitempty,email"`
	Query        string `json:"query"         validate:"required"`
	Priority     string `json:"priority"      validate:"omitempty,oneof=low medium high critical"`
	TicketID     string `json:"ticket_id"     validate:"omitempty"`
}
