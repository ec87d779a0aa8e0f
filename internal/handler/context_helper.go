package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/middleware"
	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
	"github.com/noah-isme/ams-api/pkg/response"
)

const dateLayout = "2006-01-02"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes a 401 and returns nil when the request carries no claims.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

func actorFromContext(c *gin.Context) models.Actor {
	actor := models.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := claimsFromContext(c); claims != nil {
		actor.ID = claims.UserID
	}
	return actor
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}

func parseRange(c *gin.Context) (dto.ReportRange, error) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		return dto.ReportRange{}, err
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		return dto.ReportRange{}, err
	}
	return dto.ReportRange{From: from, To: to}, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}
