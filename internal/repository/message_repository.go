package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MessageRepository reads and amends ticket thread messages. Inserts happen
// inside the ticket repository's append transaction; this interface covers
// lookups plus the two in-place edit/delete writes.
type MessageRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error
	MarkDeleted(ctx context.Context, id string, deletedAt time.Time) error
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

const messageColumns = `id, ticket_id, sender_type, sender_id, is_internal, content,
               is_deleted, deleted_at, edited_at, created_at`

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_type, sender_id, is_internal, content,
               is_deleted, deleted_at, edited_at, created_at
        FROM ticket_messages WHERE id=$1`
	var msg domain.Message
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.SenderType,
		&msg.SenderID,
		&msg.IsInternal,
		&msg.Content,
		&msg.IsDeleted,
		&msg.DeletedAt,
		&msg.EditedAt,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	// seq breaks created_at ties so the thread order matches insert order.
	const query = `
        SELECT id, ticket_id, sender_type, sender_id, is_internal, content,
               is_deleted, deleted_at, edited_at, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderType,
			&msg.SenderID,
			&msg.IsInternal,
			&msg.Content,
			&msg.IsDeleted,
			&msg.DeletedAt,
			&msg.EditedAt,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *messageRepository) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE ticket_messages SET content=$1, edited_at=$2 WHERE id=$3 AND NOT is_deleted`,
		content, editedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *messageRepository) MarkDeleted(ctx context.Context, id string, deletedAt time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE ticket_messages SET is_deleted=TRUE, deleted_at=$1 WHERE id=$2 AND NOT is_deleted`,
		deletedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
