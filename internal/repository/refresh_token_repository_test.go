package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/models"
)

func TestCreateRefreshTokenStoresHash(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked_at, ip_address, user_agent)")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "u1", TokenHash: "hash", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), token))
	assert.NotEmpty(t, token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeOnlyStampsOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL")).
		WithArgs("t1", at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL")).
		WithArgs("t1", at).WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Revoke(context.Background(), "t1", at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Revoke(context.Background(), "t1", at)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)
	cutoff := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < $1")).
		WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
