package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/storage"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func TestCreateTicketUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{
		Subject: "Cannot log in",
		Body:    "I keep getting an error on the login page.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, result.Ticket.Status)
	assert.Equal(t, domain.TicketCategoryGeneral, result.Ticket.Category)
	assert.Equal(t, domain.TicketPriorityMedium, result.Ticket.Priority)
	assert.True(t, result.Ticket.AdminUnread)
	assert.Empty(t, result.GuestToken)
	require.NotNil(t, result.Ticket.OwnerUserID)
	assert.Equal(t, "user-1", *result.Ticket.OwnerUserID)
	assert.Equal(t, domain.SenderUser, result.Message.SenderType)
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Body: "no subject"})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))

	_, err = env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "empty body"})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))

	_, err = env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{
		Subject: "odd category", Body: "x", Category: "SHIPPING",
	})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))

	_, err = env.svc.CreateTicket(ctx, guestActor("", "", ""), CreateTicketInput{Subject: "s", Body: "b"})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))

	_, err = env.svc.CreateTicket(ctx, adminActor("staff-1"), CreateTicketInput{Subject: "s", Body: "b"})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestGuestTokenGatesAccess(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, guestActor("Ada", "ada@example.com", ""), CreateTicketInput{
		Subject:  "Invoice question",
		Category: domain.TicketCategoryBilling,
		Body:     "I was charged twice.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.GuestToken)
	assert.NotEqual(t, result.GuestToken, result.Ticket.AccessTokenHash)

	ticketID := result.Ticket.ID

	// Correct token reads the ticket.
	ticket, msgs, err := env.svc.GetTicket(ctx, guestActor("Ada", "ada@example.com", result.GuestToken), ticketID)
	require.NoError(t, err)
	assert.Equal(t, ticketID, ticket.ID)
	assert.Len(t, msgs, 1)

	// Wrong token is indistinguishable from a missing ticket.
	_, _, err = env.svc.GetTicket(ctx, guestActor("Ada", "ada@example.com", "wrong-token"), ticketID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	// Missing token fails earlier, before any lookup.
	_, _, err = env.svc.GetTicket(ctx, guestActor("Ada", "ada@example.com", ""), ticketID)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	// Registered users cannot read a guest ticket either.
	_, _, err = env.svc.GetTicket(ctx, userActor("user-1"), ticketID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestCrossUserAccessReadsAsNotFound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("owner"), CreateTicketInput{Subject: "mine", Body: "hello"})
	require.NoError(t, err)

	_, _, err = env.svc.GetTicket(ctx, userActor("someone-else"), result.Ticket.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = env.svc.Reply(ctx, userActor("someone-else"), result.Ticket.ID, ReplyInput{Body: "hijack"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	// Staff see every ticket.
	_, _, err = env.svc.GetTicket(ctx, adminActor("staff-1"), result.Ticket.ID)
	assert.NoError(t, err)
}

func TestInternalNotesInvisibleToCustomers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "help"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{
		Body:       "Customer is on the legacy plan, check billing export.",
		IsInternal: true,
	})
	require.NoError(t, err)

	// The note never changes status.
	ticket, adminView, err := env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Len(t, adminView, 2, fmtMessages(adminView))

	// The customer never sees it.
	_, userView, err := env.svc.GetTicket(ctx, userActor("user-1"), ticketID)
	require.NoError(t, err)
	require.Len(t, userView, 1, fmtMessages(userView))
	assert.False(t, userView[0].IsInternal)
}

func TestInternalNoteRestrictions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	_, err = env.svc.Reply(ctx, userActor("user-1"), ticketID, ReplyInput{Body: "note", IsInternal: true})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{
		Body:        "note",
		IsInternal:  true,
		Attachments: []AttachmentUpload{upload("log.txt", "data")},
	})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{Body: "note", IsInternal: true, Resolve: true})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))
}

func TestReplyStatusTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	// Staff reply moves OPEN to IN_PROGRESS and leaves the flag alone.
	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{Body: "Looking into it."})
	require.NoError(t, err)
	ticket, _, err := env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	// Customer reply on IN_PROGRESS keeps status but flips unread.
	_, err = env.svc.Reply(ctx, userActor("user-1"), ticketID, ReplyInput{Body: "Any update?"})
	require.NoError(t, err)
	ticket, _, err = env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.True(t, ticket.AdminUnread)
}

func TestResolveAppendsSystemMessage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	_, err = env.svc.Reply(ctx, userActor("user-1"), ticketID, ReplyInput{Body: "x", Resolve: true})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{
		Body:    "Fixed on our side, let us know if it recurs.",
		Resolve: true,
	})
	require.NoError(t, err)

	ticket, msgs, err := env.svc.GetTicket(ctx, userActor("user-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.Len(t, msgs, 3, fmtMessages(msgs))
	assert.Equal(t, domain.SenderSystem, msgs[2].SenderType)
	assert.Equal(t, resolvedSystemMessage, msgs[2].Content)

	assert.Contains(t, env.eventTypes(), events.EventTicketResolved)

	// The customer's reply reopens.
	_, err = env.svc.Reply(ctx, userActor("user-1"), ticketID, ReplyInput{Body: "Still broken, sorry."})
	require.NoError(t, err)
	ticket, _, err = env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.True(t, ticket.AdminUnread)
}

func TestInternalNoteDoesNotReopenResolved(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{Body: "done", Resolve: true})
	require.NoError(t, err)

	_, err = env.svc.Reply(ctx, adminActor("staff-2"), ticketID, ReplyInput{Body: "root cause was a cache bug", IsInternal: true})
	require.NoError(t, err)

	ticket, _, err := env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
}

func TestForceClose(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	_, err = env.svc.ForceClose(ctx, userActor("user-1"), ticketID, "")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	closed, err := env.svc.ForceClose(ctx, adminActor("staff-1"), ticketID, "duplicate of another ticket")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)

	_, err = env.svc.ForceClose(ctx, adminActor("staff-1"), ticketID, "")
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))

	_, msgs, err := env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	require.Len(t, msgs, 2, fmtMessages(msgs))
	assert.Equal(t, domain.SenderSystem, msgs[1].SenderType)
	assert.Contains(t, msgs[1].Content, "duplicate of another ticket")

	// A customer reply reopens even a closed ticket.
	_, err = env.svc.Reply(ctx, userActor("user-1"), ticketID, ReplyInput{Body: "This is not a duplicate."})
	require.NoError(t, err)
	ticket, _, err := env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
}

func TestAttachmentsStoredWithMessage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{
		Subject:     "s",
		Body:        "see attached",
		Attachments: []AttachmentUpload{upload("screenshot.png", "pngdata"), upload("trace.log", "lines")},
	})
	require.NoError(t, err)

	_, msgs, err := env.svc.GetTicket(ctx, userActor("user-1"), result.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Attachments, 2)
	assert.Equal(t, "screenshot.png", msgs[0].Attachments[0].FileName)
	assert.Equal(t, int64(len("pngdata")), msgs[0].Attachments[0].FileSize)
	assert.Contains(t, msgs[0].Attachments[0].FileURL, "screenshot.png")
	assert.Equal(t, 2, env.blobs.Len())
}

func TestAttachmentOrderFollowsSubmission(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	names := []string{"01-repro.mp4", "zz-notes.txt", "aa-trace.log"}
	_, err = env.svc.Reply(ctx, userActor("user-1"), ticketID, ReplyInput{
		Body:        "everything attached",
		Attachments: []AttachmentUpload{upload(names[0], "x"), upload(names[1], "y"), upload(names[2], "z")},
	})
	require.NoError(t, err)
	// A later submission must not interleave with the previous one.
	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{
		Body:        "annotated version",
		Attachments: []AttachmentUpload{upload("00-annotated.mp4", "w")},
	})
	require.NoError(t, err)

	_, msgs, err := env.svc.GetTicket(ctx, userActor("user-1"), ticketID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Len(t, msgs[1].Attachments, 3)
	for i, att := range msgs[1].Attachments {
		assert.Equal(t, names[i], att.FileName)
	}
	require.Len(t, msgs[2].Attachments, 1)
	assert.Equal(t, "00-annotated.mp4", msgs[2].Attachments[0].FileName)
}

func TestAttachmentUploadFailureAbortsSubmission(t *testing.T) {
	env := newTestEnvWithBlobs(&flakyBlobStore{inner: storage.NewMemoryStore(), failAt: 1})
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	_, err = env.svc.Reply(ctx, userActor("user-1"), ticketID, ReplyInput{
		Body:        "three files",
		Attachments: []AttachmentUpload{upload("a.txt", "1"), upload("b.txt", "2"), upload("c.txt", "3")},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UPSTREAM_FAILURE"))
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, 1, domainErr.Details["attachment_index"])

	// No message row exists for the failed submission.
	_, msgs, err := env.svc.GetTicket(ctx, userActor("user-1"), ticketID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, fmtMessages(msgs))
}

func TestAttachmentLimits(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	tooMany := []AttachmentUpload{upload("1", "x"), upload("2", "x"), upload("3", "x"), upload("4", "x")}
	_, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b", Attachments: tooMany})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))

	big := make([]byte, 2048)
	_, err = env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{
		Subject:     "s",
		Body:        "b",
		Attachments: []AttachmentUpload{{FileName: "big.bin", MimeType: "application/octet-stream", Body: big}},
	})
	assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))
}

func TestListTickets(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
		require.NoError(t, err)
	}
	_, err := env.svc.CreateTicket(ctx, userActor("user-2"), CreateTicketInput{
		Subject: "s", Body: "b", Category: domain.TicketCategoryTechnical,
	})
	require.NoError(t, err)

	_, _, err = env.svc.ListTickets(ctx, userActor("user-1"), ListFilter{})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	all, page, err := env.svc.ListTickets(ctx, adminActor("staff-1"), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	technical, _, err := env.svc.ListTickets(ctx, adminActor("staff-1"), ListFilter{
		Categories: []domain.TicketCategory{domain.TicketCategoryTechnical},
	})
	require.NoError(t, err)
	assert.Len(t, technical, 1)

	own, page, err := env.svc.ListOwnTickets(ctx, userActor("user-1"), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, own, 3)
	assert.Equal(t, 3, page.Total)

	paged, page, err := env.svc.ListTickets(ctx, adminActor("staff-1"), ListFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
}

func TestListTicketsOrdersByRecency(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	older, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "older", Body: "x"})
	require.NoError(t, err)
	newer, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "newer", Body: "y"})
	require.NoError(t, err)

	list, _, err := env.svc.ListTickets(ctx, adminActor("staff-1"), ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.Ticket.ID, list[0].ID)

	// A reply bumps the older ticket back to the top of the inbox.
	_, err = env.svc.Reply(ctx, userActor("user-1"), older.Ticket.ID, ReplyInput{Body: "bump"})
	require.NoError(t, err)

	list, _, err = env.svc.ListTickets(ctx, adminActor("staff-1"), ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.Ticket.ID, list[0].ID)
}

func TestEditMessage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "customer text"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	reply, err := env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{Body: "Typo-ridden replu."})
	require.NoError(t, err)

	// Customer messages are immutable.
	_, err = env.svc.EditMessage(ctx, adminActor("staff-1"), result.Message.ID, "rewritten")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	// Non-staff cannot moderate at all.
	_, err = env.svc.EditMessage(ctx, userActor("user-1"), reply.ID, "rewritten")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	edited, err := env.svc.EditMessage(ctx, adminActor("staff-2"), reply.ID, "Typo-free reply.")
	require.NoError(t, err)
	assert.Equal(t, "Typo-free reply.", edited.Content)
	require.NotNil(t, edited.EditedAt)

	// Re-submitting identical content does not bump EditedAt.
	firstEdit := *edited.EditedAt
	again, err := env.svc.EditMessage(ctx, adminActor("staff-2"), reply.ID, "Typo-free reply.")
	require.NoError(t, err)
	require.NotNil(t, again.EditedAt)
	assert.Equal(t, firstEdit, *again.EditedAt)
}

func TestDeleteMessageTombstones(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.svc.CreateTicket(ctx, userActor("user-1"), CreateTicketInput{Subject: "s", Body: "b"})
	require.NoError(t, err)
	ticketID := result.Ticket.ID

	reply, err := env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{
		Body:        "Wrong customer, disregard.",
		Attachments: []AttachmentUpload{upload("export.csv", "rows")},
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteMessage(ctx, adminActor("staff-1"), reply.ID))

	// Admins see the tombstone with its content intact.
	_, adminView, err := env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	require.Len(t, adminView, 2)
	assert.True(t, adminView[1].IsDeleted)
	assert.NotNil(t, adminView[1].DeletedAt)
	assert.Equal(t, "Wrong customer, disregard.", adminView[1].Content)

	// Customers see the tombstone redacted.
	_, userView, err := env.svc.GetTicket(ctx, userActor("user-1"), ticketID)
	require.NoError(t, err)
	require.Len(t, userView, 2)
	assert.True(t, userView[1].IsDeleted)
	assert.Empty(t, userView[1].Content)
	assert.Empty(t, userView[1].Attachments)

	// Deleted rows accept no further writes.
	_, err = env.svc.EditMessage(ctx, adminActor("staff-1"), reply.ID, "resurrect")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	err = env.svc.DeleteMessage(ctx, adminActor("staff-1"), reply.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestBodyPreviewKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "short", bodyPreview("short", 120))
	assert.Equal(t, "padded", bodyPreview("  padded  ", 120))

	long := strings.Repeat("ü", 50)
	preview := bodyPreview(long, 10)
	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, strings.Repeat("ü", 7)+"...", preview)

	tiny := bodyPreview("日本語のメッセージ", 3)
	assert.True(t, utf8.ValidString(tiny))
	assert.Equal(t, "日本語", tiny)
}

func TestGuestConversationLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.CreateTicket(ctx, guestActor("Ada", "ada@example.com", ""), CreateTicketInput{
		Subject:  "Double charge on invoice 4711",
		Category: domain.TicketCategoryBilling,
		Body:     "My card was charged twice this month.",
	})
	require.NoError(t, err)
	ticketID := created.Ticket.ID
	guest := guestActor("Ada", "ada@example.com", created.GuestToken)

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{Body: "We are checking with billing."})
	require.NoError(t, err)

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{
		Body:       "Refund approved internally, waiting for the batch run.",
		IsInternal: true,
	})
	require.NoError(t, err)

	_, err = env.svc.Reply(ctx, adminActor("staff-1"), ticketID, ReplyInput{Body: "Refund issued.", Resolve: true})
	require.NoError(t, err)

	ticket, guestView, err := env.svc.GetTicket(ctx, guest, ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	// Initial message, staff reply, resolving reply, system marker. No note.
	require.Len(t, guestView, 4, fmtMessages(guestView))
	for _, msg := range guestView {
		assert.False(t, msg.IsInternal)
	}

	_, err = env.svc.Reply(ctx, guest, ticketID, ReplyInput{Body: "Thank you!"})
	require.NoError(t, err)

	ticket, _, err = env.svc.GetTicket(ctx, adminActor("staff-1"), ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.True(t, ticket.AdminUnread)
}
