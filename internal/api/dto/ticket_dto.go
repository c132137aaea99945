package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Subcategory string                `json:"subcategory"`
	Priority    domain.TicketPriority `json:"priority"`
	Address     string                `json:"address"`
	Latitude    *float64              `json:"latitude"`
	Longitude   *float64              `json:"longitude"`
	ContactInfo map[string]any        `json:"contact_info"`
}

// UpdateTicketRequest is a partial update; absent fields are left unchanged.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *domain.TicketCategory `json:"category"`
	Subcategory *string                `json:"subcategory"`
	Priority    *domain.TicketPriority `json:"priority"`
	Address     *string                `json:"address"`
	Latitude    *float64               `json:"latitude"`
	Longitude   *float64               `json:"longitude"`
	ContactInfo map[string]any         `json:"contact_info"`
}

// AssignTicketRequest payload. An empty technician id requests automatic selection.
type AssignTicketRequest struct {
	TechnicianID string `json:"technician_id"`
	Notes        string `json:"notes"`
}

// ChangeStateRequest payload.
type ChangeStateRequest struct {
	Motive string `json:"motive"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Solution string `json:"solution"`
	Notes    string `json:"notes"`
}

// RejectTicketRequest payload.
type RejectTicketRequest struct {
	Reason string `json:"reason"`
}

// TicketResponse represents a ticket with its derived fields.
type TicketResponse struct {
	ID              string                `json:"id"`
	Code            string                `json:"code"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Category        domain.TicketCategory `json:"category"`
	Subcategory     string                `json:"subcategory,omitempty"`
	Priority        domain.TicketPriority `json:"priority"`
	Status          domain.TicketStatus   `json:"status"`
	CreatorID       string                `json:"creator_id"`
	TechnicianID    *string               `json:"technician_id"`
	Address         string                `json:"address,omitempty"`
	Latitude        *float64              `json:"latitude,omitempty"`
	Longitude       *float64              `json:"longitude,omitempty"`
	ContactInfo     map[string]any        `json:"contact_info,omitempty"`
	SLADeadline     time.Time             `json:"sla_deadline"`
	Solution        string                `json:"solution,omitempty"`
	ResolutionNotes string                `json:"resolution_notes,omitempty"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
	ClosedByID      *string               `json:"closed_by_id,omitempty"`
	AssignedAt      *time.Time            `json:"assigned_at,omitempty"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Overdue         *bool                 `json:"overdue,omitempty"`
	HoursRemaining  *int                  `json:"hours_remaining,omitempty"`
	NextStates      []domain.TicketStatus `json:"next_states,omitempty"`
}

// TicketPageResponse is one page of tickets.
type TicketPageResponse struct {
	Items  []TicketResponse `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// TicketStatsResponse aggregates visible tickets.
type TicketStatsResponse struct {
	Total      int                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
	Overdue    int                           `json:"overdue"`
}
