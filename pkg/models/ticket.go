package models

import "time"

// TicketType classifies a ticket's origin.
type TicketType string

const (
	TicketTypeIncident       TicketType = "incident"
	TicketTypeProblem        TicketType = "problem"
	TicketTypeChange         TicketType = "change"
	TicketTypeServiceRequest TicketType = "service_request"
)

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeIncident, TicketTypeProblem, TicketTypeChange, TicketTypeServiceRequest:
		return true
	}
	return false
}

// TicketPriority is the urgency assigned to a ticket.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketStatus is the workflow state of a ticket. The watch core only ever
// creates tickets in StatusNew; everything past that is the helpdesk's job.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known workflow state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is a trackable work item. Incidents opened by the poller carry
// SourceDeviceID so an already-open incident can be found for de-duplication.
type Ticket struct {
	ID             string         `json:"id"`
	Number         string         `json:"ticket_number"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Type           TicketType     `json:"type"`
	Priority       TicketPriority `json:"priority"`
	Status         TicketStatus   `json:"status"`
	Category       string         `json:"category"`
	Requester      string         `json:"requester"`
	AssignedTo     string         `json:"assigned_to,omitempty"`
	SourceDeviceID string         `json:"source_device_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
