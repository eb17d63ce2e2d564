package service

import "github.com/spec-kit/support-desk/internal/domain"

// VisibleMessages renders a ticket thread for the requesting role.
//
// Internal notes are excluded entirely for non-staff requesters, not merely
// flagged; they must never be observable in a response payload. Deleted
// messages are returned to every role as tombstones, but their content and
// attachments are redacted before they can reach a customer; admins receive
// the raw row and rely on IsDeleted for UI-side redaction.
func VisibleMessages(msgs []domain.Message, role domain.ActorRole) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.IsInternal && role != domain.RoleAdmin {
			continue
		}
		if msg.IsDeleted && role != domain.RoleAdmin {
			msg.Content = ""
			msg.Attachments = nil
		}
		out = append(out, msg)
	}
	return out
}
