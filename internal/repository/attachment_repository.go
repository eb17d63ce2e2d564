package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AttachmentRepository reads attachment metadata. Rows are inserted inside
// the ticket repository's append transaction and never updated.
type AttachmentRepository interface {
	ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	// All attachments of a message are inserted in one transaction and share
	// a created_at; seq is the submission-order tiebreaker.
	const query = `
        SELECT id, message_id, file_name, file_url, mime_type, file_size, created_at
        FROM message_attachments WHERE message_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.MessageID,
			&att.FileName,
			&att.FileURL,
			&att.MimeType,
			&att.FileSize,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}
