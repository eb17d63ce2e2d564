package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/storage"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const resolvedSystemMessage = "Ticket marked as resolved by support staff."

// TicketService coordinates ticket and message workflows. It is the message
// composer: it validates submissions, uploads attachments, and hands the
// ticket repository one atomic append per submission.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	blobs       storage.BlobStore
	guestTokens *auth.GuestTokenIssuer
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	limits      config.LimitsConfig
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	BlobStore      storage.BlobStore
	GuestTokens    *auth.GuestTokenIssuer
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Limits         config.LimitsConfig
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	limits := deps.Limits
	if limits.MaxAttachmentsPerMessage <= 0 {
		limits.MaxAttachmentsPerMessage = 5
	}
	if limits.MaxAttachmentBytes <= 0 {
		limits.MaxAttachmentBytes = 10 * 1024 * 1024
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		attachments: deps.AttachmentRepo,
		blobs:       deps.BlobStore,
		guestTokens: deps.GuestTokens,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		limits:      limits,
	}
}

// AttachmentUpload carries one file submitted with a message.
type AttachmentUpload struct {
	FileName string
	MimeType string
	Body     []byte
}

// CreateTicketInput describes ticket creation payload. Every ticket starts
// with exactly one message.
type CreateTicketInput struct {
	Subject     string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	Body        string
	Attachments []AttachmentUpload
}

// CreateTicketResult bundles the created ticket with the guest capability
// token. GuestToken is only set for guest-created tickets and is never
// recoverable afterwards; only its hash is stored.
type CreateTicketResult struct {
	Ticket     *domain.Ticket
	Message    *domain.Message
	GuestToken string
}

// ReplyInput describes a message submission to an existing ticket.
type ReplyInput struct {
	Body        string
	IsInternal  bool
	Attachments []AttachmentUpload
	Resolve     bool
}

// ListFilter describes operator inbox filters.
type ListFilter struct {
	Statuses   []domain.TicketStatus
	Categories []domain.TicketCategory
	Page       int
	Limit      int
}

// Pagination is the listing metadata returned alongside a ticket page.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// CreateTicket opens a new ticket with its initial message. The actor is a
// registered user or a guest; guests receive the access token that gates all
// of their later reads and writes.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*CreateTicketResult, error) {
	switch actor.Role {
	case domain.RoleUser:
		if actor.SubjectID == nil {
			return nil, apperrors.NewUnauthorized("user identity required")
		}
	case domain.RoleGuest:
		if strings.TrimSpace(actor.GuestName) == "" || strings.TrimSpace(actor.GuestEmail) == "" {
			return nil, apperrors.NewInvalidRequest("guest name and email required", nil)
		}
	default:
		return nil, apperrors.NewForbidden("only users and guests open tickets")
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewInvalidRequest("subject required", nil)
	}
	category, err := normalizeCategory(input.Category)
	if err != nil {
		return nil, err
	}
	if err := s.validateSubmission(actor, input.Body, false, input.Attachments, false); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Category:    category,
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		AdminUnread: true,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	var guestToken string
	if actor.Role == domain.RoleUser {
		ticket.OwnerUserID = actor.SubjectID
	} else {
		name := strings.TrimSpace(actor.GuestName)
		email := strings.TrimSpace(actor.GuestEmail)
		ticket.GuestName = &name
		ticket.GuestEmail = &email
		token, hash, err := s.guestTokens.Issue()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		guestToken = token
		ticket.AccessTokenHash = hash
	}

	attachments, err := s.uploadAttachments(ctx, input.Attachments)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		SenderType:  domain.SenderType(actor.Role),
		SenderID:    actor.SubjectID,
		Content:     strings.TrimSpace(input.Body),
		Attachments: attachments,
	}
	if err := s.tickets.CreateWithInitialMessage(ctx, ticket, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTicketCreated(string(actor.Role))
	s.metrics.RecordMessageAppended(string(msg.SenderType), false)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Subject:    ticket.Subject,
			Category:   ticket.Category,
			GuestOwned: ticket.IsGuestOwned(),
		},
	})
	return &CreateTicketResult{Ticket: ticket, Message: msg, GuestToken: guestToken}, nil
}

// GetTicket fetches a ticket with the messages visible to the actor.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.ticketForActor(ctx, actor, ticketID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messagesWithAttachments(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, VisibleMessages(msgs, actor.Role), nil
}

// ListTickets returns a paginated operator inbox page. Staff only.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.Ticket, Pagination, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, Pagination{}, apperrors.NewForbidden("staff required")
	}
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
	}
	return s.listPage(ctx, repoFilter, filter.Page, filter.Limit)
}

// ListOwnTickets returns the authenticated user's tickets.
func (s *TicketService) ListOwnTickets(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.Ticket, Pagination, error) {
	if actor.Role != domain.RoleUser || actor.SubjectID == nil {
		return nil, Pagination{}, apperrors.NewForbidden("user required")
	}
	repoFilter := repository.TicketFilter{
		OwnerUserID: actor.SubjectID,
		Statuses:    filter.Statuses,
		Categories:  filter.Categories,
	}
	return s.listPage(ctx, repoFilter, filter.Page, filter.Limit)
}

// Reply appends a message to a ticket, applying the status transition as a
// side effect of the same commit. A staff resolve additionally appends a
// SYSTEM message so the audit trail is self-explanatory.
func (s *TicketService) Reply(ctx context.Context, actor domain.Actor, ticketID string, input ReplyInput) (*domain.Message, error) {
	if err := s.validateSubmission(actor, input.Body, input.IsInternal, input.Attachments, input.Resolve); err != nil {
		return nil, err
	}
	ticket, err := s.ticketForActor(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	attachments, err := s.uploadAttachments(ctx, input.Attachments)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		SenderType:  domain.SenderType(actor.Role),
		SenderID:    actor.SubjectID,
		IsInternal:  input.IsInternal,
		Content:     strings.TrimSpace(input.Body),
		Attachments: attachments,
	}
	msgs := []*domain.Message{msg}
	if input.Resolve {
		msgs = append(msgs, &domain.Message{
			SenderType: domain.SenderSystem,
			Content:    resolvedSystemMessage,
		})
	}

	var oldStatus, newStatus domain.TicketStatus
	updated, err := s.tickets.AppendMessages(ctx, ticket.ID, msgs, func(current *domain.Ticket) repository.TicketUpdate {
		oldStatus = current.Status
		update := repository.TicketUpdate{}
		if next, changed := nextStatusOnReply(current.Status, actor.Role, input.IsInternal, input.Resolve); changed {
			status := next
			update.Status = &status
		}
		if actor.Role == domain.RoleUser || actor.Role == domain.RoleGuest {
			unread := true
			update.AdminUnread = &unread
		}
		return update
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	newStatus = updated.Status

	s.metrics.RecordMessageAppended(string(msg.SenderType), msg.IsInternal)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageAdded,
		TicketID: updated.ID,
		Actor:    eventActor(actor),
		Payload: events.MessageAddedPayload{
			MessageID:   msg.ID,
			SenderType:  msg.SenderType,
			IsInternal:  msg.IsInternal,
			Attachments: len(msg.Attachments),
			BodyPreview: bodyPreview(msg.Content, 120),
		},
	})
	if oldStatus != newStatus {
		eventType := events.EventTicketStatusChanged
		if newStatus == domain.TicketStatusResolved {
			eventType = events.EventTicketResolved
		}
		s.publishEvent(ctx, events.Event{
			Type:     eventType,
			TicketID: updated.ID,
			Actor:    eventActor(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: newStatus,
			},
		})
	}
	return msg, nil
}

// ForceClose hard-closes a ticket. This is the only path to CLOSED; it is an
// explicit administrative action and still rides on a SYSTEM message append.
func (s *TicketService) ForceClose(ctx context.Context, actor domain.Actor, ticketID, note string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("staff required")
	}
	ticket, err := s.ticketForActor(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidRequest("ticket already closed", nil)
	}

	content := "Ticket closed by support staff."
	if strings.TrimSpace(note) != "" {
		content = fmt.Sprintf("%s Reason: %s", content, strings.TrimSpace(note))
	}
	sysMsg := &domain.Message{
		SenderType: domain.SenderSystem,
		Content:    content,
	}

	var oldStatus domain.TicketStatus
	updated, err := s.tickets.AppendMessages(ctx, ticket.ID, []*domain.Message{sysMsg}, func(current *domain.Ticket) repository.TicketUpdate {
		oldStatus = current.Status
		closed := domain.TicketStatusClosed
		return repository.TicketUpdate{Status: &closed}
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
		},
	})
	return updated, nil
}

func (s *TicketService) listPage(ctx context.Context, repoFilter repository.TicketFilter, page, limit int) ([]domain.Ticket, Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	repoFilter.Limit = limit
	repoFilter.Offset = (page - 1) * limit

	total, err := s.tickets.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, Pagination{}, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, Pagination{}, apperrors.MapError(err)
	}
	totalPages := (total + limit - 1) / limit
	return tickets, Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}, nil
}

// ticketForActor loads a ticket and enforces the actor's access rule. A user
// requesting someone else's ticket and a guest presenting the wrong token
// both get the same NotFound as a genuinely missing ticket.
func (s *TicketService) ticketForActor(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if actor.Role == domain.RoleGuest && actor.AccessToken == "" {
		return nil, apperrors.NewUnauthorized("access token required")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSystem:
		return ticket, nil
	case domain.RoleUser:
		if actor.SubjectID == nil || ticket.OwnerUserID == nil || *ticket.OwnerUserID != *actor.SubjectID {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return ticket, nil
	case domain.RoleGuest:
		if !ticket.IsGuestOwned() || !s.guestTokens.Verify(ticket.AccessTokenHash, actor.AccessToken) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return ticket, nil
	}
	return nil, apperrors.NewForbidden("unknown actor role")
}

// validateSubmission rejects invalid submissions before any upload or write.
func (s *TicketService) validateSubmission(actor domain.Actor, body string, isInternal bool, attachments []AttachmentUpload, resolve bool) error {
	if strings.TrimSpace(body) == "" {
		return apperrors.NewInvalidRequest("message body required", nil)
	}
	if isInternal && actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("internal notes are staff only")
	}
	if isInternal && len(attachments) > 0 {
		return apperrors.NewInvalidRequest("internal notes cannot carry attachments", nil)
	}
	if resolve && actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only staff resolve tickets")
	}
	if resolve && isInternal {
		return apperrors.NewInvalidRequest("a resolving reply must be customer visible", nil)
	}
	if len(attachments) > s.limits.MaxAttachmentsPerMessage {
		return apperrors.NewInvalidRequest("too many attachments", map[string]any{
			"max": s.limits.MaxAttachmentsPerMessage,
		})
	}
	for i, att := range attachments {
		if int64(len(att.Body)) > s.limits.MaxAttachmentBytes {
			return apperrors.NewInvalidRequest("attachment too large", map[string]any{
				"attachment_index": i,
				"max_bytes":        s.limits.MaxAttachmentBytes,
			})
		}
	}
	return nil
}

// uploadAttachments pushes each file to the object store, in order. Any
// failure aborts the whole submission before a message row exists, so a
// partial upload never leaves an orphaned message.
func (s *TicketService) uploadAttachments(ctx context.Context, files []AttachmentUpload) ([]domain.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	attachments := make([]domain.Attachment, 0, len(files))
	for i, file := range files {
		key := uuid.NewString() + "/" + file.FileName
		obj, err := s.blobs.Put(ctx, key, storage.UploadInput{
			FileName: file.FileName,
			MimeType: file.MimeType,
			Body:     file.Body,
		})
		if err != nil {
			s.metrics.RecordUpload(false)
			return nil, apperrors.NewUpstreamFailure("attachment upload failed", i, err)
		}
		s.metrics.RecordUpload(true)
		attachments = append(attachments, domain.Attachment{
			FileName: obj.FileName,
			FileURL:  obj.URL,
			MimeType: obj.MimeType,
			FileSize: obj.Size,
		})
	}
	return attachments, nil
}

func (s *TicketService) messagesWithAttachments(ctx context.Context, ticketID string) ([]domain.Message, error) {
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range msgs {
		attachments, err := s.attachments.ListByMessage(ctx, msgs[i].ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		msgs[i].Attachments = attachments
	}
	return msgs, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{Role: actor.Role, SubjectID: actor.SubjectID}
}

func normalizeCategory(category domain.TicketCategory) (domain.TicketCategory, error) {
	switch category {
	case "":
		return domain.TicketCategoryGeneral, nil
	case domain.TicketCategoryGeneral, domain.TicketCategoryBilling,
		domain.TicketCategoryTechnical, domain.TicketCategoryPartnership:
		return category, nil
	}
	return "", apperrors.NewInvalidRequest("unknown category", map[string]any{"category": category})
}

// bodyPreview truncates on rune boundaries so multi-byte content cannot be
// split into invalid UTF-8.
func bodyPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
