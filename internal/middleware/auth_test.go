package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repairhub/internal/domain"
	"repairhub/internal/pkg/jwt"
	"repairhub/internal/rbac"
	"repairhub/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(j *jwt.Service) *gin.Engine {
	router := gin.New()
	router.Use(RequireSession(j))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": AccountID(c)})
	})
	return router
}

func TestRequireSession_BearerToken(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	token, _, err := j.GenerateToken(42)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter(j).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}

func TestRequireSession_Cookie(t *testing.T) {
	j := jwt.New("test-secret-123", time.Hour)
	token, _, err := j.GenerateToken(7)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	protectedRouter(j).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"account_id":7`)
}

func TestRequireSession_Rejects(t *testing.T) {
	j := jwt.New("secret", time.Hour)
	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing", "", "AUTH_HEADER_MISSING"},
		{"wrong scheme", "Basic dGVzdA==", "INVALID_AUTH_FORMAT"},
		{"bad token", "Bearer invalid-jwt-here", "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			protectedRouter(j).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestOptionalSession(t *testing.T) {
	j := jwt.New("secret", time.Hour)
	router := gin.New()
	router.Use(OptionalSession(j))
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": AccountID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"account_id":0`)
}

type stubAccounts map[int64]*domain.Account

func (s stubAccounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	if a, ok := s[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func TestRequireLevel(t *testing.T) {
	j := jwt.New("secret", time.Hour)
	accounts := stubAccounts{
		1: {ID: 1, IsActive: true, Profile: &domain.CustomerProfile{Role: domain.CustomerIndividual}},
		2: {ID: 2, IsActive: true, IsStaff: true, Profile: &domain.StaffProfile{Role: domain.StaffReceptionist}},
		3: {ID: 3, IsActive: false, Blocked: true, IsStaff: true, Profile: &domain.StaffProfile{Role: domain.StaffTechnician}},
	}

	router := gin.New()
	router.Use(RequireSession(j), RequireLevel(accounts, rbac.Staff))
	router.GET("/dashboard", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for id, want := range map[int64]int{1: http.StatusForbidden, 2: http.StatusNoContent, 3: http.StatusForbidden, 9: http.StatusForbidden} {
		token, _, err := j.GenerateToken(id)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "account %d", id)
	}
}

func TestErrorLogger_RecoversPanic(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), ErrorLogger(zaptest.NewLogger(t)))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
