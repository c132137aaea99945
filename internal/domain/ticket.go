package domain

import "time"

// TicketStatus enumerates lifecycle states for complaints.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusInReview   TicketStatus = "IN_REVIEW"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusRejected   TicketStatus = "REJECTED"
)

// AllTicketStatuses lists every status in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusInReview,
	TicketStatusClosed,
	TicketStatusRejected,
}

// ActiveTicketStatuses are the states that count toward a technician's load.
var ActiveTicketStatuses = []TicketStatus{
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusInReview,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range AllTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the status counts as technician workload.
func (s TicketStatus) IsActive() bool {
	for _, candidate := range ActiveTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsFinal reports whether field edits are no longer accepted.
func (s TicketStatus) IsFinal() bool {
	return s == TicketStatusClosed || s == TicketStatusRejected
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "BAJA"
	TicketPriorityMedium TicketPriority = "MEDIA"
	TicketPriorityHigh   TicketPriority = "ALTA"
	TicketPriorityUrgent TicketPriority = "URGENTE"
)

// Valid reports whether p is a known priority. The empty priority is
// accepted and treated as BAJA.
func (p TicketPriority) Valid() bool {
	switch p {
	case "", TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities from lowest (0) to highest (3).
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityUrgent:
		return 3
	case TicketPriorityHigh:
		return 2
	case TicketPriorityMedium:
		return 1
	default:
		return 0
	}
}

// TicketCategory is the affected service type.
type TicketCategory string

const (
	CategoryInternetADSL  TicketCategory = "INTERNET_ADSL"
	CategoryInternetFiber TicketCategory = "INTERNET_FIBER"
	CategoryPhoneADSL     TicketCategory = "PHONE_ADSL"
	CategoryPhoneFiber    TicketCategory = "PHONE_FIBER"
	CategoryTV            TicketCategory = "TV"
)

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryInternetADSL, CategoryInternetFiber, CategoryPhoneADSL, CategoryPhoneFiber, CategoryTV:
		return true
	}
	return false
}

// Ticket is the aggregate for a customer complaint (reclamo).
type Ticket struct {
	ID              string
	Code            string
	Title           string
	Description     string
	Category        TicketCategory
	Subcategory     string
	Priority        TicketPriority
	Status          TicketStatus
	CreatorID       string
	TechnicianID    *string
	Address         string
	Latitude        *float64
	Longitude       *float64
	ContactInfo     map[string]any
	SLADeadline     time.Time
	Solution        string
	ResolutionNotes string
	RejectionReason string
	ClosedByID      *string
	AssignedAt      *time.Time
	StartedAt       *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAssignedTo reports whether userID is the ticket's current technician.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.TechnicianID != nil && *t.TechnicianID == userID
}

// TicketStats aggregates ticket counts for dashboards.
type TicketStats struct {
	Total      int
	ByStatus   map[TicketStatus]int
	ByPriority map[TicketPriority]int
	Overdue    int
}
