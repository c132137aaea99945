package domain

import "time"

// AuditAction captures what kind of mutation an entry records.
type AuditAction string

const (
	AuditCreated         AuditAction = "CREATED"
	AuditAssigned        AuditAction = "ASSIGNED"
	AuditReassigned      AuditAction = "REASSIGNED"
	AuditStateChanged    AuditAction = "STATE_CHANGED"
	AuditPriorityChanged AuditAction = "PRIORITY_CHANGED"
	AuditUpdated         AuditAction = "UPDATED"
	AuditClosed          AuditAction = "CLOSED"
	AuditRejected        AuditAction = "REJECTED"
)

// AuditEntry is an immutable audit trail entry.
type AuditEntry struct {
	ID          string
	TicketID    string
	ActorID     string
	Action      AuditAction
	Description string
	Detail      map[string]any
	CreatedAt   time.Time
}

// AuditRecord is an entry enriched with actor and ticket references.
type AuditRecord struct {
	AuditEntry
	ActorName  string
	ActorEmail string
	ActorRole  Role
	TicketCode string
}

// AuditFilter bounds audit queries by creation time.
type AuditFilter struct {
	From *time.Time
	To   *time.Time
}

// AuditStats summarizes audit activity over a time range.
type AuditStats struct {
	Total    int
	ByAction map[AuditAction]int
	Recent   []AuditRecord
}
