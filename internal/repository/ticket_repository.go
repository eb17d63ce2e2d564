package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketFilter captures listing parameters for the operator inbox.
type TicketFilter struct {
	OwnerUserID *string
	Statuses    []domain.TicketStatus
	Categories  []domain.TicketCategory
	AdminUnread *bool
	Limit       int
	Offset      int
}

// TicketUpdate describes the ticket-row changes that ride along with a
// message append. Nil fields leave the column untouched.
type TicketUpdate struct {
	Status      *domain.TicketStatus
	AdminUnread *bool
}

// TicketRepository is the single writer of ticket truth. Every mutation of a
// ticket row or its messages goes through here, which is what makes the
// status state machine enforceable.
type TicketRepository interface {
	// CreateWithInitialMessage inserts the ticket, its first message and that
	// message's attachments in one transaction.
	CreateWithInitialMessage(ctx context.Context, ticket *domain.Ticket, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int, error)
	// AppendMessages inserts one or more messages (a staff resolve carries a
	// trailing SYSTEM message) and applies the ticket update produced by
	// decide, all inside one transaction with the ticket row locked. decide
	// sees the ticket as committed by the previous writer, so concurrent
	// submitters are serialized here rather than in the composer.
	AppendMessages(ctx context.Context, ticketID string, msgs []*domain.Message, decide func(*domain.Ticket) TicketUpdate) (*domain.Ticket, error)
	SetAdminUnread(ctx context.Context, id string, unread bool) error
	CountAdminUnread(ctx context.Context) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_user_id, guest_name, guest_email, subject, category, status,
               priority, access_token_hash, admin_unread, created_at, updated_at`

func (r *ticketRepository) CreateWithInitialMessage(ctx context.Context, ticket *domain.Ticket, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (owner_user_id, guest_name, guest_email, subject, category, status, priority, access_token_hash, admin_unread)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.OwnerUserID,
		ticket.GuestName,
		ticket.GuestEmail,
		ticket.Subject,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.AccessTokenHash,
		ticket.AdminUnread,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	msg.TicketID = ticket.ID
	if err := insertMessage(ctx, tx, msg); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return scanTicketRow(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) AppendMessages(ctx context.Context, ticketID string, msgs []*domain.Message, decide func(*domain.Ticket) TicketUpdate) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	ticket, err := scanTicketRow(tx.QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, err
	}

	for _, msg := range msgs {
		msg.TicketID = ticket.ID
		if err := insertMessage(ctx, tx, msg); err != nil {
			return nil, err
		}
	}

	update := decide(ticket)
	if update.Status != nil {
		ticket.Status = *update.Status
	}
	if update.AdminUnread != nil {
		ticket.AdminUnread = *update.AdminUnread
	}
	const updateQuery = `
        UPDATE tickets SET status=$1, admin_unread=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, updateQuery, ticket.Status, ticket.AdminUnread, ticket.ID).Scan(&ticket.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) SetAdminUnread(ctx context.Context, id string, unread bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET admin_unread=$1 WHERE id=$2`, unread, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) CountAdminUnread(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE admin_unread`).Scan(&count)
	return count, err
}

func insertMessage(ctx context.Context, tx pgx.Tx, msg *domain.Message) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_type, sender_id, is_internal, content)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderType,
		msg.SenderID,
		msg.IsInternal,
		msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return err
	}
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		att.MessageID = msg.ID
		const attQuery = `
            INSERT INTO message_attachments (message_id, file_name, file_url, mime_type, file_size)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, attQuery,
			att.MessageID,
			att.FileName,
			att.FileURL,
			att.MimeType,
			att.FileSize,
		).Scan(&att.ID, &att.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func filterClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerUserID != nil {
		args = append(args, *filter.OwnerUserID)
		clauses = append(clauses, fmt.Sprintf("owner_user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AdminUnread != nil {
		args = append(args, *filter.AdminUnread)
		clauses = append(clauses, fmt.Sprintf("admin_unread=$%d", len(args)))
	}
	return clauses, args
}

func scanTicketRow(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerUserID,
		&ticket.GuestName,
		&ticket.GuestEmail,
		&ticket.Subject,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AccessTokenHash,
		&ticket.AdminUnread,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OwnerUserID,
			&ticket.GuestName,
			&ticket.GuestEmail,
			&ticket.Subject,
			&ticket.Category,
			&ticket.Status,
			&ticket.Priority,
			&ticket.AccessTokenHash,
			&ticket.AdminUnread,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
