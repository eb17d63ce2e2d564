package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// memStore implements the ticket, message and attachment repositories on
// in-process maps, matching the postgres repositories' observable behavior
// including pgx.ErrNoRows on missing or guarded rows.
type memStore struct {
	mu          sync.Mutex
	tickets     map[string]*domain.Ticket
	messages    []*domain.Message
	attachments []storedAttachment
	nextID      int
}

// storedAttachment is an attachment row; seq increases per insert like the
// BIGSERIAL column.
type storedAttachment struct {
	seq int
	att domain.Attachment
}

func newMemStore() *memStore {
	return &memStore{tickets: make(map[string]*domain.Ticket)}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return prefix + "-" + strconv.Itoa(m.nextID)
}

func (m *memStore) CreateWithInitialMessage(_ context.Context, ticket *domain.Ticket, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	ticket.ID = m.id("ticket")
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	copied := *ticket
	m.tickets[ticket.ID] = &copied

	msg.ID = m.id("msg")
	msg.TicketID = ticket.ID
	msg.CreatedAt = now
	stored := *msg
	m.messages = append(m.messages, &stored)
	m.insertAttachments(msg)
	return nil
}

func (m *memStore) insertAttachments(msg *domain.Message) {
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		att.ID = m.id("att")
		att.MessageID = msg.ID
		m.attachments = append(m.attachments, storedAttachment{seq: m.nextID, att: *att})
	}
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (m *memStore) matches(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.OwnerUserID != nil {
		if ticket.OwnerUserID == nil || *ticket.OwnerUserID != *filter.OwnerUserID {
			return false
		}
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if ticket.Status == s {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Categories) > 0 {
		found := false
		for _, c := range filter.Categories {
			if ticket.Category == c {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if filter.AdminUnread != nil && ticket.AdminUnread != *filter.AdminUnread {
		return false
	}
	return true
}

func (m *memStore) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range m.tickets {
		if m.matches(ticket, filter) {
			out = append(out, *ticket)
		}
	}
	// Most recently updated first, as the SQL listing orders.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memStore) CountWithFilter(_ context.Context, filter repository.TicketFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ticket := range m.tickets {
		if m.matches(ticket, filter) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) AppendMessages(_ context.Context, ticketID string, msgs []*domain.Message, decide func(*domain.Ticket) repository.TicketUpdate) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	for _, msg := range msgs {
		msg.ID = m.id("msg")
		msg.TicketID = ticketID
		msg.CreatedAt = now
		stored := *msg
		m.messages = append(m.messages, &stored)
		m.insertAttachments(msg)
	}
	update := decide(ticket)
	if update.Status != nil {
		ticket.Status = *update.Status
	}
	if update.AdminUnread != nil {
		ticket.AdminUnread = *update.AdminUnread
	}
	ticket.UpdatedAt = now
	copied := *ticket
	return &copied, nil
}

func (m *memStore) SetAdminUnread(_ context.Context, id string, unread bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.AdminUnread = unread
	return nil
}

func (m *memStore) CountAdminUnread(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ticket := range m.tickets {
		if ticket.AdminUnread {
			count++
		}
	}
	return count, nil
}

func (m *memStore) messageByID(id string) *domain.Message {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (m *memStore) MessageGetByID(_ context.Context, id string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.messageByID(id)
	if msg == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *msg
	return &copied, nil
}

func (m *memStore) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.TicketID == ticketID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *memStore) UpdateContent(_ context.Context, id, content string, editedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.messageByID(id)
	if msg == nil || msg.IsDeleted {
		return pgx.ErrNoRows
	}
	msg.Content = content
	msg.EditedAt = &editedAt
	return nil
}

func (m *memStore) MarkDeleted(_ context.Context, id string, deletedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.messageByID(id)
	if msg == nil || msg.IsDeleted {
		return pgx.ErrNoRows
	}
	msg.IsDeleted = true
	msg.DeletedAt = &deletedAt
	return nil
}

func (m *memStore) ListByMessage(_ context.Context, messageID string) ([]domain.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Walk the table backwards so read order provably comes from the seq
	// sort, as in the SQL repository, not from storage order.
	var rows []storedAttachment
	for i := len(m.attachments) - 1; i >= 0; i-- {
		if m.attachments[i].att.MessageID == messageID {
			rows = append(rows, m.attachments[i])
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]domain.Attachment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.att)
	}
	return out, nil
}

// messageRepoAdapter exposes memStore under the MessageRepository method set
// without the GetByID name clashing with the ticket repository's.
type messageRepoAdapter struct{ store *memStore }

func (a messageRepoAdapter) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	return a.store.MessageGetByID(ctx, id)
}

func (a messageRepoAdapter) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	return a.store.ListByTicket(ctx, ticketID)
}

func (a messageRepoAdapter) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	return a.store.UpdateContent(ctx, id, content, editedAt)
}

func (a messageRepoAdapter) MarkDeleted(ctx context.Context, id string, deletedAt time.Time) error {
	return a.store.MarkDeleted(ctx, id, deletedAt)
}

// flakyBlobStore fails the Nth Put call (zero-based) and delegates the rest.
type flakyBlobStore struct {
	inner  storage.BlobStore
	failAt int
	calls  int
}

func (f *flakyBlobStore) Put(ctx context.Context, key string, in storage.UploadInput) (storage.StoredObject, error) {
	call := f.calls
	f.calls++
	if call == f.failAt {
		return storage.StoredObject{}, errors.New("upstream store unavailable")
	}
	return f.inner.Put(ctx, key, in)
}

type testEnv struct {
	svc        *TicketService
	store      *memStore
	blobs      *storage.MemoryStore
	dispatcher events.Dispatcher
	published  *[]events.Event
}

func newTestEnv() *testEnv {
	return newTestEnvWithBlobs(nil)
}

func newTestEnvWithBlobs(blobStore storage.BlobStore) *testEnv {
	store := newMemStore()
	mem := storage.NewMemoryStore()
	if blobStore == nil {
		blobStore = mem
	}
	dispatcher := events.NewInMemoryDispatcher()

	var published []events.Event
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketResolved,
		events.EventMessageAdded,
		events.EventMessageEdited,
		events.EventMessageDeleted,
		events.EventTicketRead,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			published = append(published, e)
			return nil
		})
	}

	svc := NewTicketService(TicketDependencies{
		TicketRepo:     store,
		MessageRepo:    messageRepoAdapter{store: store},
		AttachmentRepo: store,
		BlobStore:      blobStore,
		GuestTokens:    auth.NewGuestTokenIssuer(bcrypt.MinCost),
		Dispatcher:     dispatcher,
		Limits: config.LimitsConfig{
			MaxAttachmentsPerMessage: 3,
			MaxAttachmentBytes:       1024,
		},
	})
	return &testEnv{svc: svc, store: store, blobs: mem, dispatcher: dispatcher, published: &published}
}

func (e *testEnv) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(*e.published))
	for _, event := range *e.published {
		out = append(out, event.Type)
	}
	return out
}

func userActor(id string) domain.Actor {
	return domain.Actor{Role: domain.RoleUser, SubjectID: &id}
}

func adminActor(id string) domain.Actor {
	return domain.Actor{Role: domain.RoleAdmin, SubjectID: &id}
}

func guestActor(name, email, token string) domain.Actor {
	return domain.Actor{Role: domain.RoleGuest, GuestName: name, GuestEmail: email, AccessToken: token}
}

func upload(name, body string) AttachmentUpload {
	return AttachmentUpload{FileName: name, MimeType: "text/plain", Body: []byte(body)}
}

func fmtMessages(msgs []domain.Message) string {
	out := ""
	for _, msg := range msgs {
		out += fmt.Sprintf("%s:%q ", msg.SenderType, msg.Content)
	}
	return out
}
