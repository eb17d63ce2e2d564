package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// EditMessage rewrites a staff message's content and stamps EditedAt. Staff
// messages are moderated collectively: any admin may edit any admin-authored
// public reply. User, guest and system messages are immutable once sent, as
// are internal notes and tombstoned rows.
func (s *TicketService) EditMessage(ctx context.Context, actor domain.Actor, messageID, newContent string) (*domain.Message, error) {
	msg, err := s.moderatableMessage(ctx, actor, messageID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(newContent)
	if content == "" {
		return nil, apperrors.NewInvalidRequest("message body required", nil)
	}
	if content == msg.Content {
		// No-op edit; succeed without bumping EditedAt.
		return msg, nil
	}

	now := time.Now()
	if err := s.messages.UpdateContent(ctx, msg.ID, content, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewForbidden("message can no longer be edited")
		}
		return nil, apperrors.MapError(err)
	}
	msg.Content = content
	msg.EditedAt = &now

	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageEdited,
		TicketID: msg.TicketID,
		Actor:    eventActor(actor),
		Payload:  events.MessageEditedPayload{MessageID: msg.ID},
	})
	return msg, nil
}

// DeleteMessage tombstones a staff message. Content stays in storage but the
// row accepts no further writes; callers render it as deleted.
func (s *TicketService) DeleteMessage(ctx context.Context, actor domain.Actor, messageID string) error {
	msg, err := s.moderatableMessage(ctx, actor, messageID)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.messages.MarkDeleted(ctx, msg.ID, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewForbidden("message already deleted")
		}
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageDeleted,
		TicketID: msg.TicketID,
		Actor:    eventActor(actor),
		Payload:  events.MessageDeletedPayload{MessageID: msg.ID},
	})
	return nil
}

// moderatableMessage loads a message and checks it is fair game for staff
// moderation: admin caller, admin-authored, public, not yet deleted.
func (s *TicketService) moderatableMessage(ctx context.Context, actor domain.Actor, messageID string) (*domain.Message, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("staff required")
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("message", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if msg.SenderType != domain.SenderAdmin {
		return nil, apperrors.NewForbidden("only staff messages can be moderated")
	}
	if msg.IsInternal {
		return nil, apperrors.NewForbidden("internal notes cannot be moderated")
	}
	if msg.IsDeleted {
		return nil, apperrors.NewForbidden("deleted messages cannot be modified")
	}
	return msg, nil
}
