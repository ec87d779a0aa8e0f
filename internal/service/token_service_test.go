package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/models"
)

type memoryTokenStore struct {
	byHash    map[string]*models.RefreshToken
	findErr   error
	revokeCnt int
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{byHash: make(map[string]*models.RefreshToken)}
}

func (m *memoryTokenStore) Create(ctx context.Context, token *models.RefreshToken) error {
	clone := *token
	m.byHash[token.TokenHash] = &clone
	return nil
}

func (m *memoryTokenStore) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	token, ok := m.byHash[hash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *token
	return &clone, nil
}

func (m *memoryTokenStore) Revoke(ctx context.Context, id string, revokedAt time.Time) (bool, error) {
	for _, token := range m.byHash {
		if token.ID == id && token.RevokedAt == nil {
			at := revokedAt
			token.RevokedAt = &at
			m.revokeCnt++
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTokenStore) RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error) {
	var n int64
	for _, token := range m.byHash {
		if token.UserID == userID && token.RevokedAt == nil {
			at := revokedAt
			token.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (m *memoryTokenStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	for hash, token := range m.byHash {
		if token.ExpiresAt.Before(before) || (token.RevokedAt != nil && token.RevokedAt.Before(before)) {
			delete(m.byHash, hash)
			n++
		}
	}
	return n, nil
}

type memoryUserReader struct {
	users map[string]*models.User
}

func (m *memoryUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newTestTokenService(store *memoryTokenStore, users ...*models.User) (*TokenService, *time.Time) {
	reader := &memoryUserReader{users: make(map[string]*models.User)}
	for _, u := range users {
		reader.users[u.ID] = u
	}
	svc := NewTokenService(store, reader, zap.NewNop(), TokenConfig{
		Secret:             "secret",
		Issuer:             "ams",
		Audience:           "ams",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: time.Hour,
	})
	clock := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func TestTokenServiceStoresOnlyHash(t *testing.T) {
	store := newMemoryTokenStore()
	user := &models.User{ID: "u1", Role: models.RoleStudent}
	svc, _ := newTestTokenService(store, user)

	plain, token, err := svc.CreateRefreshToken(context.Background(), user, models.SessionMeta{IP: "10.0.0.1", UserAgent: "curl"})
	require.NoError(t, err)
	require.NotEmpty(t, plain)
	assert.NotEqual(t, plain, token.TokenHash)
	assert.Equal(t, HashRefreshToken(plain), token.TokenHash)
	assert.Contains(t, store.byHash, token.TokenHash)
	assert.Equal(t, "10.0.0.1", token.IPAddress)

	other, _, err := svc.CreateRefreshToken(context.Background(), user, models.SessionMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}

func TestTokenServiceValidateRefreshToken(t *testing.T) {
	store := newMemoryTokenStore()
	user := &models.User{ID: "u1", Role: models.RoleTeacher}
	svc, _ := newTestTokenService(store, user)

	plain, _, err := svc.CreateRefreshToken(context.Background(), user, models.SessionMeta{})
	require.NoError(t, err)

	got, err := svc.ValidateRefreshToken(context.Background(), plain)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)

	got, err = svc.ValidateRefreshToken(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenServiceRevokeThenValidate(t *testing.T) {
	store := newMemoryTokenStore()
	user := &models.User{ID: "u1", Role: models.RoleTeacher}
	svc, clock := newTestTokenService(store, user)

	plain, token, err := svc.CreateRefreshToken(context.Background(), user, models.SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeRefreshToken(context.Background(), plain))
	got, err := svc.ValidateRefreshToken(context.Background(), plain)
	require.NoError(t, err)
	assert.Nil(t, got)

	firstRevokedAt := *store.byHash[token.TokenHash].RevokedAt
	*clock = clock.Add(time.Minute)
	require.NoError(t, svc.RevokeRefreshToken(context.Background(), plain))
	assert.Equal(t, firstRevokedAt, *store.byHash[token.TokenHash].RevokedAt)
	assert.Equal(t, 1, store.revokeCnt)

	require.NoError(t, svc.RevokeRefreshToken(context.Background(), "never-issued"))
}

func TestTokenServiceExpiredToken(t *testing.T) {
	store := newMemoryTokenStore()
	user := &models.User{ID: "u1", Role: models.RoleStudent}
	svc, clock := newTestTokenService(store, user)

	plain, _, err := svc.CreateRefreshToken(context.Background(), user, models.SessionMeta{})
	require.NoError(t, err)

	*clock = clock.Add(time.Hour)
	got, err := svc.ValidateRefreshToken(context.Background(), plain)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenServiceDeletedUser(t *testing.T) {
	store := newMemoryTokenStore()
	user := &models.User{ID: "ghost", Role: models.RoleStudent}
	svc, _ := newTestTokenService(store)

	plain, _, err := svc.CreateRefreshToken(context.Background(), user, models.SessionMeta{})
	require.NoError(t, err)

	got, err := svc.ValidateRefreshToken(context.Background(), plain)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenServiceStoreFailure(t *testing.T) {
	store := newMemoryTokenStore()
	store.findErr = errors.New("connection reset")
	svc, _ := newTestTokenService(store)

	_, err := svc.ValidateRefreshToken(context.Background(), "anything")
	require.Error(t, err)
}

func TestTokenServiceAccessTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: "u1", Email: "t@ams.local", Name: "Teacher", Role: models.RoleTeacher}
	svc, _ := newTestTokenService(newMemoryTokenStore())
	svc.now = time.Now

	token, expiresAt, err := svc.CreateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	claims, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "Teacher", claims.Name)
	assert.NotEmpty(t, claims.ID)

	other := NewTokenService(newMemoryTokenStore(), nil, nil, TokenConfig{Secret: "secret", Issuer: "someone-else"})
	_, err = other.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestTokenServicePurgeExpired(t *testing.T) {
	store := newMemoryTokenStore()
	user := &models.User{ID: "u1", Role: models.RoleStudent}
	svc, clock := newTestTokenService(store, user)

	_, _, err := svc.CreateRefreshToken(context.Background(), user, models.SessionMeta{})
	require.NoError(t, err)

	n, err := svc.PurgeExpired(context.Background(), clock.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Empty(t, store.byHash)
}
