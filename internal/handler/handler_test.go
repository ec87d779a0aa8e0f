package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-api/internal/middleware"
	"github.com/noah-isme/ams-api/internal/models"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, userID string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role, Email: userID + "@ams.local", Name: userID})
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
