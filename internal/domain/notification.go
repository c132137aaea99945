package domain

import "time"

// NotificationKind classifies a notification sent to a user.
type NotificationKind string

const (
	NotifyTicketCreated      NotificationKind = "TICKET_CREATED"
	NotifyTicketAssigned     NotificationKind = "TICKET_ASSIGNED"
	NotifyTicketStateChanged NotificationKind = "TICKET_STATE_CHANGED"
	NotifyTicketClosed       NotificationKind = "TICKET_CLOSED"
	NotifyTicketRejected     NotificationKind = "TICKET_REJECTED"
	NotifyCommentAdded       NotificationKind = "COMMENT_ADDED"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID              string
	UserID          string
	Kind            NotificationKind
	Title           string
	Message         string
	RelatedTicketID *string
	CreatedAt       time.Time
}
