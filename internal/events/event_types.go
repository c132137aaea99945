package events

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketStateChanged EventType = "ticket_state_changed"
	EventTicketClosed       EventType = "ticket_closed"
	EventTicketRejected     EventType = "ticket_rejected"
	EventCommentAdded       EventType = "comment_added"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TicketID   string      `json:"ticket_id"`
	TicketCode string      `json:"ticket_code"`
	ActorID    string      `json:"actor_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatorID string                `json:"creator_id"`
	Priority  domain.TicketPriority `json:"priority"`
	Title     string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	CreatorID            string  `json:"creator_id"`
	TechnicianID         string  `json:"technician_id"`
	PreviousTechnicianID *string `json:"previous_technician_id,omitempty"`
}

// TicketStateChangedPayload is shared by state change, closure and rejection.
type TicketStateChangedPayload struct {
	CreatorID    string              `json:"creator_id"`
	TechnicianID *string             `json:"technician_id,omitempty"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	Message      string              `json:"message"`
	Reason       string              `json:"reason,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID    string  `json:"comment_id"`
	AuthorID     string  `json:"author_id"`
	Internal     bool    `json:"internal"`
	CreatorID    string  `json:"creator_id"`
	TechnicianID *string `json:"technician_id,omitempty"`
	BodyPreview  string  `json:"body_preview"`
}
