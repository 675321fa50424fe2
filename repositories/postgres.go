package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"realtime-hub/domain"
	"realtime-hub/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id          UUID PRIMARY KEY,
    sender_id   BIGINT      NOT NULL,
    receiver_id BIGINT      NOT NULL,
    content     TEXT        NOT NULL,
    is_read     BOOLEAN     NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (sender_id, receiver_id, created_at);
`

// PostgresMessageRepository keeps the history in the messages table shared with the web backend.
type PostgresMessageRepository struct {
	pool          *pgxpool.Pool
	limitMessages *int
}

func NewPostgresMessageRepository(pool *pgxpool.Pool, limitMessages *int) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool, limitMessages: limitMessages}
}

func (r *PostgresMessageRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *PostgresMessageRepository) Save(ctx context.Context, message domain.StoredMessage) (domain.StoredMessage, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, content, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		pgtype.UUID{Bytes: message.ID, Valid: true},
		int64(message.SenderID),
		int64(message.ReceiverID),
		message.Content,
		message.IsRead,
		message.CreatedAt,
	)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("insert message %s: %w", message.ID, err)
	}
	return message, nil
}

// Conversation returns both directions, oldest first. A NULL limit means no limit.
func (r *PostgresMessageRepository) Conversation(ctx context.Context, a, b domain.UserID) ([]domain.StoredMessage, error) {
	var limit *int64
	if r.limitMessages != nil {
		limit = new(int64)
		*limit = int64(*r.limitMessages)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, sender_id, receiver_id, content, is_read, created_at FROM (
		     SELECT * FROM messages
		     WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		     ORDER BY created_at DESC
		     LIMIT $3
		 ) recent ORDER BY created_at ASC`,
		int64(a), int64(b), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.StoredMessage
	for rows.Next() {
		var (
			id               pgtype.UUID
			sender, receiver int64
			content          string
			isRead           bool
			createdAt        time.Time
		)
		if err := rows.Scan(&id, &sender, &receiver, &content, &isRead, &createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, domain.StoredMessage{
			ID:         uuid.UUID(id.Bytes),
			SenderID:   domain.UserID(sender),
			ReceiverID: domain.UserID(receiver),
			Content:    content,
			IsRead:     isRead,
			CreatedAt:  createdAt.UTC(),
		})
	}
	return messages, rows.Err()
}

func (r *PostgresMessageRepository) MarkAsRead(ctx context.Context, id string, reader domain.UserID) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
	}
	messageID := pgtype.UUID{Bytes: parsed, Valid: true}

	var receiver int64
	err = r.pool.QueryRow(ctx, `SELECT receiver_id FROM messages WHERE id = $1`, messageID).Scan(&receiver)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", errors.ErrMessageNotFound, id)
	}
	if err != nil {
		return err
	}
	if domain.UserID(receiver) != reader {
		return fmt.Errorf("%w: user %s is not the receiver of %s", errors.ErrForbidden, reader, id)
	}
	_, err = r.pool.Exec(ctx, `UPDATE messages SET is_read = TRUE WHERE id = $1`, messageID)
	return err
}
