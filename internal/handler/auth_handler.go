package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
	"github.com/noah-isme/ams-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error)
	Logout(ctx context.Context, refreshToken, userID string, meta models.SessionMeta) error
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// CookieSettings controls how session cookies are written.
type CookieSettings struct {
	AccessName  string
	RefreshName string
	Secure      bool
	Domain      string
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookies CookieSettings
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookies CookieSettings) *AuthHandler {
	if cookies.AccessName == "" {
		cookies.AccessName = "ams.access"
	}
	if cookies.RefreshName == "" {
		cookies.RefreshName = "ams.refresh"
	}
	return &AuthHandler{service: svc, cookies: cookies}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password. Sets the access and refresh cookies.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope{data=models.LoginResponse}
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, h.cookies.AccessName, res.AccessToken, h.service.AccessTokenTTL(), false)
	h.setCookie(c, h.cookies.RefreshName, res.RefreshToken, h.service.RefreshTokenTTL(), true)
	response.OK(c, models.LoginResponse{
		AccessToken:      res.AccessToken,
		ExpiresInMinutes: res.ExpiresInMinutes,
		User:             res.User,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange the refresh cookie for a new access token. The refresh token is not rotated.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope{data=models.RefreshResponse}
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(h.cookies.RefreshName)
	if err != nil || token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token missing"))
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, h.cookies.AccessName, res.AccessToken, h.service.AccessTokenTTL(), false)
	response.OK(c, res)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the refresh cookie's token and clear both cookies
// @Tags Authentication
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookies.RefreshName)
	var userID string
	if claims := claimsFromContext(c); claims != nil {
		userID = claims.UserID
	}

	meta := models.SessionMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if err := h.service.Logout(c.Request.Context(), token, userID, meta); err != nil {
		response.Error(c, err)
		return
	}

	h.clearCookie(c, h.cookies.AccessName, false)
	h.clearCookie(c, h.cookies.RefreshName, true)
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for the current user and revoke all of their refresh tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}

	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope{data=models.UserInfo}
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	response.OK(c, claims.Info())
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, ttl time.Duration, httpOnly bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, httpOnly)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string, httpOnly bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", h.cookies.Domain, h.cookies.Secure, httpOnly)
}
