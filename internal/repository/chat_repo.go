package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chadgpt-backend/internal/models"
)

// deleteBatchSize bounds how many chat deletes go into one batched
// round-trip during bulk deletion.
const deleteBatchSize = 500

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// Create returns the user's most recent chat when it still has no messages,
// otherwise inserts a new chat with a server-assigned timestamp. The reused
// flag reports which path was taken. The empty-chat check and the insert are
// not transactional; two near-simultaneous calls may both insert, which
// readers tolerate.
func (r *ChatRepo) Create(ctx context.Context, userEmail string) (*models.Chat, bool, error) {
	chat := &models.Chat{UserEmail: userEmail}

	var messageCount int
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, c.created_at,
			(SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id)
		 FROM chats c WHERE c.user_email = $1
		 ORDER BY c.created_at DESC LIMIT 1`,
		userEmail,
	).Scan(&chat.ID, &chat.CreatedAt, &messageCount)

	if err == nil && messageCount == 0 {
		return chat, true, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	chat.ID = uuid.New()
	err = r.pool.QueryRow(ctx,
		"INSERT INTO chats (id, user_email) VALUES ($1, $2) RETURNING created_at",
		chat.ID, userEmail,
	).Scan(&chat.CreatedAt)
	if err != nil {
		return nil, false, err
	}

	return chat, false, nil
}

// GetByOwner looks a chat up under the caller's namespace. A chat that
// exists but belongs to someone else is indistinguishable from one that
// does not exist: both return pgx.ErrNoRows.
func (r *ChatRepo) GetByOwner(ctx context.Context, userEmail string, id uuid.UUID) (*models.Chat, error) {
	chat := &models.Chat{}
	err := r.pool.QueryRow(ctx,
		"SELECT id, user_email, created_at FROM chats WHERE id = $1 AND user_email = $2",
		id, userEmail,
	).Scan(&chat.ID, &chat.UserEmail, &chat.CreatedAt)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepo) ListByUser(ctx context.Context, userEmail string) ([]*models.Chat, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, user_email, created_at FROM chats WHERE user_email = $1 ORDER BY created_at DESC",
		userEmail,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		chat := &models.Chat{}
		if err := rows.Scan(&chat.ID, &chat.UserEmail, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}

	return chats, rows.Err()
}

// Delete removes one chat after the ownership match. Messages cascade.
func (r *ChatRepo) Delete(ctx context.Context, userEmail string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM chats WHERE id = $1 AND user_email = $2",
		id, userEmail,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteAllByUser removes every chat the user owns, batching deletes so a
// single round-trip never exceeds deleteBatchSize mutations. Returns the
// number of chats deleted; all batches must succeed.
func (r *ChatRepo) DeleteAllByUser(ctx context.Context, userEmail string) (int, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id FROM chats WHERE user_email = $1", userEmail,
	)
	if err != nil {
		return 0, err
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, nil
	}

	for _, chunk := range chunkIDs(ids, deleteBatchSize) {
		batch := &pgx.Batch{}
		for _, id := range chunk {
			batch.Queue("DELETE FROM chats WHERE id = $1 AND user_email = $2", id, userEmail)
		}

		results := r.pool.SendBatch(ctx, batch)
		for range chunk {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return 0, err
			}
		}
		if err := results.Close(); err != nil {
			return 0, err
		}
	}

	return len(ids), nil
}

// chunkIDs partitions ids into slices of at most size elements, preserving
// order.
func chunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	if size <= 0 {
		return [][]uuid.UUID{ids}
	}

	var chunks [][]uuid.UUID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
