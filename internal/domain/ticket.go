package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketCategory tags the topic of a ticket. Informational only.
type TicketCategory string

const (
	TicketCategoryGeneral     TicketCategory = "GENERAL"
	TicketCategoryBilling     TicketCategory = "BILLING"
	TicketCategoryTechnical   TicketCategory = "TECHNICAL"
	TicketCategoryPartnership TicketCategory = "PARTNERSHIP"
)

// TicketPriority enumerates urgency. Not used in transition logic.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Ticket is the aggregate for one support conversation. Owned either by a
// registered user (OwnerUserID set) or by a guest identified through a
// name/email pair plus possession of the access token.
type Ticket struct {
	ID              string
	OwnerUserID     *string
	GuestName       *string
	GuestEmail      *string
	Subject         string
	Category        TicketCategory
	Status          TicketStatus
	Priority        TicketPriority
	AccessTokenHash string // bcrypt hash of the guest capability token, empty for user-owned tickets
	AdminUnread     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsGuestOwned reports whether the ticket was created by a guest.
func (t *Ticket) IsGuestOwned() bool {
	return t.OwnerUserID == nil
}
