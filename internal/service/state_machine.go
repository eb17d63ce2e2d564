package service

import "github.com/spec-kit/support-desk/internal/domain"

// nextStatusOnReply computes the transition that rides along with a message
// append. There is no transition without an accompanying message, so this is
// the only place ticket status moves apart from the admin force close (which
// also appends).
//
// Rules:
//   - internal notes never change status; they are invisible to the customer
//     and must not imply customer-visible progress
//   - a staff resolve moves to RESOLVED
//   - an ordinary staff reply moves to IN_PROGRESS unless already there
//   - a customer or guest reply reopens a RESOLVED or CLOSED ticket to
//     IN_PROGRESS and otherwise leaves status alone
//   - system messages ride along with other transitions and never trigger
//     their own
func nextStatusOnReply(current domain.TicketStatus, role domain.ActorRole, isInternal, resolve bool) (domain.TicketStatus, bool) {
	if isInternal {
		return current, false
	}
	if resolve {
		return domain.TicketStatusResolved, current != domain.TicketStatusResolved
	}
	switch role {
	case domain.RoleAdmin:
		if current != domain.TicketStatusInProgress {
			return domain.TicketStatusInProgress, true
		}
		return current, false
	case domain.RoleUser, domain.RoleGuest:
		if current == domain.TicketStatusResolved || current == domain.TicketStatusClosed {
			return domain.TicketStatusInProgress, true
		}
		return current, false
	case domain.RoleSystem:
		return current, false
	}
	return current, false
}
