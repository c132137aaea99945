package domain

import "time"

// Comment is a note on a ticket. Internal comments are hidden from clients.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	Content    string
	Internal   bool
	AuthorName string
	AuthorRole Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Attachment stores metadata for a file uploaded against a ticket.
type Attachment struct {
	ID         string
	TicketID   string
	UploaderID string
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
