package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type sessionTokens interface {
	CreateAccessToken(user *models.User) (string, time.Time, error)
	ParseAccessToken(token string) (*models.JWTClaims, error)
	CreateRefreshToken(ctx context.Context, user *models.User, meta models.SessionMeta) (string, *models.RefreshToken, error)
	ValidateRefreshToken(ctx context.Context, plain string) (*models.User, error)
	RevokeRefreshToken(ctx context.Context, plain string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	tokens    sessionTokens
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, tokens sessionTokens, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, tokens: tokens, validator: validate, logger: logger}
}

// AccessTokenTTL is the cookie lifetime of the access token.
func (s *AuthService) AccessTokenTTL() time.Duration { return s.tokens.AccessTokenTTL() }

// RefreshTokenTTL is the cookie lifetime of the refresh token.
func (s *AuthService) RefreshTokenTTL() time.Duration { return s.tokens.RefreshTokenTTL() }

// Login authenticates a user and returns issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	accessToken, _, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, internal(err, "failed to create access token")
	}

	refreshToken, _, err := s.tokens.CreateRefreshToken(ctx, user, models.SessionMeta{IP: req.IP, UserAgent: req.UserAgent})
	if err != nil {
		return nil, internal(err, "failed to create refresh token")
	}

	s.audit(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})

	return &models.LoginResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresInMinutes: s.expiresInMinutes(),
		User:             userInfo(user),
	}, nil
}

// Refresh issues a new access token for a valid refresh token. The refresh
// token itself stays in place until it expires or is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	if refreshToken == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token missing")
	}

	user, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, internal(err, "failed to validate refresh token")
	}
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is invalid, expired or revoked")
	}

	accessToken, _, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, internal(err, "failed to generate access token")
	}

	return &models.RefreshResponse{AccessToken: accessToken, ExpiresInMinutes: s.expiresInMinutes()}, nil
}

// Logout revokes the refresh token. Missing or already revoked tokens are not
// an error. userID is empty when the caller had no valid access token.
func (s *AuthService) Logout(ctx context.Context, refreshToken, userID string, meta models.SessionMeta) error {
	if err := s.tokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return internal(err, "failed to revoke refresh token")
	}

	if userID != "" {
		s.audit(ctx, &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionLogout,
			Resource:   "auth",
			ResourceID: &userID,
			NewValues:  []byte(`{"status":"logout"}`),
			IPAddress:  meta.IP,
			UserAgent:  meta.UserAgent,
		})
	}
	return nil
}

// ChangePassword changes the password for the given user ID and ends every
// refresh session of that user.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, "user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return internal(err, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(newHash), time.Now().UTC()); err != nil {
		return internal(err, "failed to update password")
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.Error(err))
	}

	s.audit(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(`{"status":"changed"}`),
	})
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	return s.tokens.ParseAccessToken(tokenString)
}

func (s *AuthService) expiresInMinutes() int {
	return int(math.Round(s.tokens.AccessTokenTTL().Minutes()))
}

func (s *AuthService) audit(ctx context.Context, entry *models.AuditLog) {
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{ID: user.ID, Email: user.Email, Name: user.Name, Roles: user.Role.Granted()}
}
