package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
)

// RefreshTokenRepository persists hashed refresh sessions.
type RefreshTokenRepository struct {
	db *sqlx.DB
}

// NewRefreshTokenRepository constructs the repository.
func NewRefreshTokenRepository(db *sqlx.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create persists a refresh token entry.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token_hash, :expires_at, :created_at, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindByHash returns a refresh token by its stored hash.
func (r *RefreshTokenRepository) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token_hash = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// Revoke stamps revoked_at once; an already revoked token keeps its original timestamp.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, revokedAt)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token rows: %w", err)
	}
	return affected > 0, nil
}

// RevokeAllForUser revokes every active refresh token of a user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, userID, revokedAt)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// DeleteStale removes tokens that expired or were revoked before the cut-off.
func (r *RefreshTokenRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $1)`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale refresh tokens: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
