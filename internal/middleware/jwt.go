package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
	"github.com/noah-isme/ams-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token. The token is read
// from a Bearer Authorization header, falling back to the access cookie.
func JWT(validator TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c, cookieName)
		if err != nil {
			response.Error(c, err)
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when a valid token is present but does not block.
func OptionalJWT(validator TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := extractToken(c, cookieName); err == nil {
			if claims, err := validator.ValidateToken(token); err == nil {
				c.Set(ContextUserKey, claims)
			}
		}
		c.Next()
	}
}

// CurrentClaims returns the claims stored by JWT, if any.
func CurrentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}

func extractToken(c *gin.Context, cookieName string) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			return cookie, nil
		}
	}
	return "", appErrors.ErrUnauthorized
}
