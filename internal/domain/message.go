package domain

import "time"

// SenderType indicates who authored a message. Fixed at creation.
type SenderType string

const (
	SenderUser   SenderType = "USER"
	SenderAdmin  SenderType = "ADMIN"
	SenderGuest  SenderType = "GUEST"
	SenderSystem SenderType = "SYSTEM"
)

// Message is one unit of conversation content within a ticket.
//
// Edit and delete are tracked in place: EditedAt and the IsDeleted/DeletedAt
// pair are orthogonal, a message may be edited then deleted or deleted
// without ever being edited. Once IsDeleted is set the row is a tombstone:
// content stays in storage but no further writes are accepted.
type Message struct {
	ID          string
	TicketID    string
	SenderType  SenderType
	SenderID    *string // user or staff id, nil for guest and system messages
	IsInternal  bool    // staff-only note, never set for non-admin senders
	Content     string
	Attachments []Attachment
	IsDeleted   bool
	DeletedAt   *time.Time
	EditedAt    *time.Time
	CreatedAt   time.Time
}
