package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// SessionMeta describes the client a refresh token was issued to.
type SessionMeta struct {
	IP        string
	UserAgent string
}

// LoginResult carries both tokens to the handler, which moves them into cookies.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	ExpiresInMinutes int
	User             UserInfo
}

// LoginResponse is the login body; the refresh token only travels in its cookie.
type LoginResponse struct {
	AccessToken      string   `json:"access_token"`
	ExpiresInMinutes int      `json:"expires_in_minutes"`
	User             UserInfo `json:"user"`
}

// RefreshResponse returns a newly minted access token.
type RefreshResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=100"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Roles []UserRole `json:"roles"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}

// Info converts claims to the public user shape.
func (c *JWTClaims) Info() UserInfo {
	return UserInfo{ID: c.UserID, Email: c.Email, Name: c.Name, Roles: c.Role.Granted()}
}
