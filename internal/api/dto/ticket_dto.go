package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

// CreateTicketRequest payload for authenticated users.
type CreateTicketRequest struct {
	Subject  string                `json:"subject"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Message  string                `json:"message"`
}

// GuestCreateTicketRequest payload for guests, who supply contact details
// instead of a session.
type GuestCreateTicketRequest struct {
	Name     string                `json:"name"`
	Email    string                `json:"email"`
	Subject  string                `json:"subject"`
	Category domain.TicketCategory `json:"category"`
	Message  string                `json:"message"`
}

// ReplyRequest payload. IsInternal and Resolve are honored for staff only;
// AccessToken is read on guest routes only.
type ReplyRequest struct {
	Body        string `json:"body"`
	IsInternal  bool   `json:"is_internal"`
	Resolve     bool   `json:"resolve"`
	AccessToken string `json:"access_token"`
}

// EditMessageRequest payload.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// ForceCloseRequest payload.
type ForceCloseRequest struct {
	Note string `json:"note"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	Category    domain.TicketCategory `json:"category"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	GuestName   *string               `json:"guest_name,omitempty"`
	GuestEmail  *string               `json:"guest_email,omitempty"`
	AdminUnread bool                  `json:"admin_unread"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides the ticket with its visible thread. The
// refresh interval tells polling clients how often to re-fetch this
// snapshot.
type TicketDetailResponse struct {
	TicketSummary
	Messages       []MessageResponse `json:"messages"`
	RefreshSeconds int               `json:"refresh_seconds,omitempty"`
}

// MessageResponse represents one thread message. Deleted messages arrive as
// tombstones: IsDeleted set, content already redacted for non-staff readers.
type MessageResponse struct {
	ID          string               `json:"id"`
	SenderType  domain.SenderType    `json:"sender_type"`
	SenderID    *string              `json:"sender_id,omitempty"`
	IsInternal  bool                 `json:"is_internal"`
	Content     string               `json:"content"`
	IsDeleted   bool                 `json:"is_deleted"`
	DeletedAt   *time.Time           `json:"deleted_at,omitempty"`
	EditedAt    *time.Time           `json:"edited_at,omitempty"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// TicketListResponse is a page of tickets with pagination metadata.
type TicketListResponse struct {
	Data []TicketSummary    `json:"data"`
	Meta service.Pagination `json:"meta"`
}

// GuestTicketCreatedResponse returns the ticket together with the one-time
// capability token the guest must keep to get back in.
type GuestTicketCreatedResponse struct {
	Ticket      TicketSummary `json:"ticket"`
	AccessToken string        `json:"access_token"`
}
