package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content  string `json:"content"`
	Internal bool   `json:"internal"`
}

// UpdateCommentRequest payload.
type UpdateCommentRequest struct {
	Content  *string `json:"content"`
	Internal *bool   `json:"internal"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID         string      `json:"id"`
	TicketID   string      `json:"ticket_id"`
	AuthorID   string      `json:"author_id"`
	AuthorName string      `json:"author_name,omitempty"`
	AuthorRole domain.Role `json:"author_role,omitempty"`
	Content    string      `json:"content"`
	Internal   bool        `json:"internal"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// CreateAttachmentRequest registers attachment metadata; file bytes live in external storage.
type CreateAttachmentRequest struct {
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// AttachmentResponse represents stored attachment metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UploaderID string    `json:"uploader_id"`
	FileName   string    `json:"file_name"`
	StorageKey string    `json:"storage_key"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEntryResponse is one history line.
type AuditEntryResponse struct {
	ID          string             `json:"id"`
	TicketID    string             `json:"ticket_id"`
	TicketCode  string             `json:"ticket_code,omitempty"`
	ActorID     string             `json:"actor_id"`
	ActorName   string             `json:"actor_name,omitempty"`
	ActorEmail  string             `json:"actor_email,omitempty"`
	ActorRole   domain.Role        `json:"actor_role,omitempty"`
	Action      domain.AuditAction `json:"action"`
	Description string             `json:"description"`
	Detail      map[string]any     `json:"detail,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// AuditStatsResponse summarizes audit activity in a window.
type AuditStatsResponse struct {
	Total    int                        `json:"total"`
	ByAction map[domain.AuditAction]int `json:"by_action"`
	Recent   []AuditEntryResponse       `json:"recent"`
}

// TechnicianSummary identifies a technician with their active load.
type TechnicianSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ActiveCount int    `json:"active_count"`
}

// RecommendationResponse proposes technicians for a ticket.
type RecommendationResponse struct {
	TicketID     string              `json:"ticket_id"`
	Recommended  TechnicianSummary   `json:"recommended"`
	Alternatives []TechnicianSummary `json:"alternatives"`
	Criterion    string              `json:"criterion"`
}

// WorkloadResponse is one technician row of the workload report.
type WorkloadResponse struct {
	TechnicianSummary
	Tickets []TicketResponse `json:"tickets"`
}

// ReassignRequest moves a technician's active tickets. A null target distributes them.
type ReassignRequest struct {
	ToTechnicianID *string `json:"to_technician_id"`
}

// ReassignResponse reports how many tickets moved.
type ReassignResponse struct {
	Moved int `json:"moved"`
}
