package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingWriter struct {
	entries []*models.AuditLog
}

func (r *recordingWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

var testTokens = stubValidator{
	"teacher-token": {UserID: "t1", Role: models.RoleTeacher},
	"student-token": {UserID: "s1", Role: models.RoleStudent},
	"demoted-token": {UserID: "d1", Role: models.RoleNone},
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWT(testTokens, "ams.access")}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		claims, _ := CurrentClaims(c)
		c.String(http.StatusOK, claims.UserID)
	})
	r.GET("/courses/:courseId", chain...)
	return r
}

func TestJWTSources(t *testing.T) {
	r := newTestRouter()

	cases := map[string]struct {
		prepare func(*http.Request)
		status  int
		body    string
	}{
		"bearer header": {func(req *http.Request) { req.Header.Set("Authorization", "Bearer teacher-token") }, http.StatusOK, "t1"},
		"cookie":        {func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "ams.access", Value: "student-token"}) }, http.StatusOK, "s1"},
		"missing":       {func(req *http.Request) {}, http.StatusUnauthorized, ""},
		"bad scheme":    {func(req *http.Request) { req.Header.Set("Authorization", "Basic abc") }, http.StatusUnauthorized, ""},
		"unknown token": {func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/courses/c1", nil)
			tc.prepare(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	r := newTestRouter(RequireRoles(models.RoleTeacher))

	req := httptest.NewRequest(http.MethodGet, "/courses/c1", nil)
	req.Header.Set("Authorization", "Bearer teacher-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/courses/c1", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesRejectsRolelessUsers(t *testing.T) {
	for _, roles := range [][]models.UserRole{
		{models.RoleAdmin},
		{models.RoleTeacher},
		{models.RoleStudent},
		{models.RoleAdmin, models.RoleTeacher, models.RoleStudent},
	} {
		r := newTestRouter(RequireRoles(roles...))
		req := httptest.NewRequest(http.MethodGet, "/courses/c1", nil)
		req.Header.Set("Authorization", "Bearer demoted-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, "roles %v", roles)
	}

	assert.Empty(t, (&models.JWTClaims{UserID: "d1", Role: models.RoleNone}).Info().Roles)
	assert.Equal(t, []models.UserRole{models.RoleTeacher}, (&models.JWTClaims{Role: models.RoleTeacher}).Info().Roles)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	writer := &recordingWriter{}
	r := newTestRouter(Audit(writer, nil, models.AuditActionExport, "reports"))

	req := httptest.NewRequest(http.MethodGet, "/courses/c1?format=csv", nil)
	req.Header.Set("Authorization", "Bearer teacher-token")
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/courses/c1", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, writer.entries, 1)
	entry := writer.entries[0]
	assert.Equal(t, models.AuditActionExport, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "t1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "c1", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), "format=csv")
}

func TestSetCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetCacheHit(c, true)

	assert.Equal(t, true, ExtractMeta(c)["cache_hit"])
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}
