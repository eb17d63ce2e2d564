package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const (
	unreadCountCacheKey = "supportdesk:unread_tickets"
	unreadCountCacheTTL = 30 * time.Second
)

// UnreadService is the unread aggregator. The per-ticket adminUnread flag is
// the single source of truth; cross-ticket counts are recomputed on demand
// (optionally short-cached in Redis) rather than maintained separately, so
// the badge can never drift from the flags.
type UnreadService struct {
	tickets    repository.TicketRepository
	cache      *redis.Client // nil disables caching
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewUnreadService constructs the aggregator.
func NewUnreadService(tickets repository.TicketRepository, cache *redis.Client, dispatcher events.Dispatcher, logger *zap.Logger) *UnreadService {
	return &UnreadService{tickets: tickets, cache: cache, dispatcher: dispatcher, logger: logger}
}

// UnreadCounts is the operator dashboard badge payload. Total aggregates all
// operator queues; support is the only queue in this service, so the two
// match.
type UnreadCounts struct {
	Support int `json:"support"`
	Total   int `json:"total"`
}

// RegisterHandlers subscribes cache invalidation to the appends that can
// flip a ticket unread.
func (s *UnreadService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		s.invalidate(ctx)
		return nil
	}
	s.dispatcher.Subscribe(events.EventTicketCreated, invalidate)
	s.dispatcher.Subscribe(events.EventMessageAdded, invalidate)
}

// Counts returns the unread badge for the requesting staff actor.
func (s *UnreadService) Counts(ctx context.Context, actor domain.Actor) (UnreadCounts, error) {
	if actor.Role != domain.RoleAdmin {
		return UnreadCounts{}, apperrors.NewForbidden("staff required")
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, unreadCountCacheKey).Int(); err == nil {
			return UnreadCounts{Support: cached, Total: cached}, nil
		}
	}

	count, err := s.tickets.CountAdminUnread(ctx)
	if err != nil {
		return UnreadCounts{}, apperrors.MapError(err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, unreadCountCacheKey, count, unreadCountCacheTTL).Err(); err != nil {
			s.logger.Debug("unread cache set failed", zap.Error(err))
		}
	}
	return UnreadCounts{Support: count, Total: count}, nil
}

// MarkRead clears a ticket's unread flag. This is an explicit operator
// action when a ticket is opened, never a side effect of polling.
func (s *UnreadService) MarkRead(ctx context.Context, actor domain.Actor, ticketID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("staff required")
	}
	if err := s.tickets.SetAdminUnread(ctx, ticketID, false); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return apperrors.MapError(err)
	}
	s.invalidate(ctx)

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventTicketRead,
			TicketID:  ticketID,
			Actor:     eventActor(actor),
			Timestamp: time.Now(),
		})
	}
	return nil
}

func (s *UnreadService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadCountCacheKey).Err(); err != nil {
		s.logger.Debug("unread cache invalidate failed", zap.Error(err))
	}
}
