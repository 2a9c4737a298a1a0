package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"chadgpt-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// UpsertFromGoogle creates the user on first sign-in and refreshes profile
// fields plus last_login_at on every subsequent one.
func (r *UserRepo) UpsertFromGoogle(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (email, full_name, avatar_url, google_id, last_login_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (email) DO UPDATE
		 SET full_name = EXCLUDED.full_name,
		     avatar_url = EXCLUDED.avatar_url,
		     google_id = EXCLUDED.google_id,
		     last_login_at = NOW()
		 RETURNING created_at, last_login_at`,
		u.Email, u.FullName, u.AvatarURL, u.GoogleID,
	).Scan(&u.CreatedAt, &u.LastLoginAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT email, full_name, avatar_url, google_id, created_at, last_login_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&u.Email, &u.FullName, &u.AvatarURL, &u.GoogleID, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}
