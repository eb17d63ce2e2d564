package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketResolved      EventType = "ticket_resolved"
	EventMessageAdded        EventType = "message_added"
	EventMessageEdited       EventType = "message_edited"
	EventMessageDeleted      EventType = "message_deleted"
	EventTicketRead          EventType = "ticket_read"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role      domain.ActorRole `json:"role"`
	SubjectID *string          `json:"subject_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject    string                `json:"subject"`
	Category   domain.TicketCategory `json:"category"`
	GuestOwned bool                  `json:"guest_owned"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	IsInternal  bool              `json:"is_internal"`
	Attachments int               `json:"attachments"`
	BodyPreview string            `json:"body_preview"`
}

// MessageEditedPayload payload.
type MessageEditedPayload struct {
	MessageID string `json:"message_id"`
}

// MessageDeletedPayload payload.
type MessageDeletedPayload struct {
	MessageID string `json:"message_id"`
}
