package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/ams-api/pkg/errors"
	"github.com/noah-isme/ams-api/pkg/middleware/requestid"
)

func TestErrorRendersEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "batch has students"))

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "PRECONDITION_FAILED", env.Error.Code)
	assert.Equal(t, "batch has students", env.Error.Message)
	assert.True(t, c.IsAborted())
	assert.Len(t, c.Errors, 1)
}

func TestFileSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	File(c, "course_CS101_attendance_20240101000000.csv", "text/csv; charset=utf-8", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="course_CS101_attendance_20240101000000.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", func(c *gin.Context) { Error(c, appErrors.ErrNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.HeaderKey, "req-99")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "req-99", env.RequestID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
