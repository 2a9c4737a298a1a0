package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chadgpt-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Append inserts one message. Ordering comes from the server-assigned
// created_at; no update path exists.
func (r *MessageRepo) Append(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()
	return r.pool.QueryRow(ctx,
		`INSERT INTO messages (id, chat_id, text, author_id, author_name, author_avatar)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		m.ID, m.ChatID, m.Text, m.Author.ID, m.Author.Name, m.Author.Avatar,
	).Scan(&m.CreatedAt)
}

// ListByChat returns the chat's messages ascending by creation time.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, chat_id, text, author_id, author_name, author_avatar, created_at
		 FROM messages WHERE chat_id = $1 ORDER BY created_at ASC`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		err := rows.Scan(
			&m.ID, &m.ChatID, &m.Text,
			&m.Author.ID, &m.Author.Name, &m.Author.Avatar,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
