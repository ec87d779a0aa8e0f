package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

const refreshSecretBytes = 64

type refreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string, revokedAt time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type tokenUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// TokenConfig defines signing and lifetime settings for session tokens.
type TokenConfig struct {
	Secret             string
	Issuer             string
	Audience           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// TokenService issues access tokens and manages hashed refresh tokens.
type TokenService struct {
	store  refreshTokenStore
	users  tokenUserReader
	config TokenConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService constructs a TokenService. Zero lifetimes fall back to
// 15 minutes and 14 days.
func NewTokenService(store refreshTokenStore, users tokenUserReader, logger *zap.Logger, config TokenConfig) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 15 * time.Minute
	}
	if config.RefreshTokenExpiry <= 0 {
		config.RefreshTokenExpiry = 14 * 24 * time.Hour
	}
	return &TokenService{store: store, users: users, config: config, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *TokenService) AccessTokenTTL() time.Duration { return s.config.AccessTokenExpiry }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration { return s.config.RefreshTokenExpiry }

// CreateAccessToken signs an HS256 token carrying the user's id, email, name and role.
func (s *TokenService) CreateAccessToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.AccessTokenExpiry)
	claims := models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken validates signature, issuer, audience and expiry.
func (s *TokenService) ParseAccessToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// CreateRefreshToken stores the hash of a fresh random secret and returns the
// plaintext. The plaintext is never persisted.
func (s *TokenService) CreateRefreshToken(ctx context.Context, user *models.User, meta models.SessionMeta) (string, *models.RefreshToken, error) {
	plain, err := generateRefreshSecret()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: HashRefreshToken(plain),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.store.Create(ctx, token); err != nil {
		return "", nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return plain, token, nil
}

// ValidateRefreshToken returns the owning user, or nil when the token is
// unknown, revoked, expired or orphaned. Only store failures return an error.
func (s *TokenService) ValidateRefreshToken(ctx context.Context, plain string) (*models.User, error) {
	if plain == "" {
		return nil, nil
	}
	stored, err := s.store.FindByHash(ctx, HashRefreshToken(plain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if stored.IsRevoked() || stored.IsExpired(s.now()) {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// RevokeRefreshToken revokes the token once. Unknown or already revoked tokens
// are left untouched.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, plain string) error {
	if plain == "" {
		return nil
	}
	stored, err := s.store.FindByHash(ctx, HashRefreshToken(plain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if stored.IsRevoked() {
		return nil
	}
	if _, err := s.store.Revoke(ctx, stored.ID, s.now()); err != nil {
		return err
	}
	return nil
}

// RevokeAllForUser revokes every active refresh token of the user.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	n, err := s.store.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return err
	}
	s.logger.Debug("refresh tokens revoked", zap.String("user_id", userID), zap.Int64("count", n))
	return nil
}

// PurgeExpired deletes tokens that expired or were revoked before the cut-off.
func (s *TokenService) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.store.DeleteStale(ctx, before)
	if err != nil {
		return 0, err
	}
	s.logger.Info("refresh tokens purged", zap.Int64("count", n), zap.Time("before", before))
	return n, nil
}

// HashRefreshToken returns base64(sha256(plain)), the at-rest form of a refresh secret.
func HashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func generateRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
