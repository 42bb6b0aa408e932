package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(role Role) Claims {
	return Claims{
		UserID:     uuid.New(),
		Email:      "ana@example.com",
		Role:       role,
		Department: "engineering",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	claims := validClaims(RoleEmployee)

	expired := validClaims(RoleEmployee)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + signToken(t, claims, testSecret), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + signToken(t, claims, testSecret), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, claims, "other"), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, expired, testSecret), http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AuthMiddleware(testSecret))
			r.GET("/me", func(c *gin.Context) {
				id, ok := UserID(c)
				assert.True(t, ok)
				assert.Equal(t, claims.UserID, id)
				role, _ := UserRole(c)
				assert.Equal(t, RoleEmployee, role)
				assert.Equal(t, "engineering", UserDepartment(c))
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, serve(r, req).Code)
		})
	}
}

func TestParseTokenRejectsMissingUser(t *testing.T) {
	claims := validClaims(RoleEmployee)
	claims.UserID = uuid.Nil

	_, err := ParseToken(signToken(t, claims, testSecret), testSecret)
	assert.Error(t, err)
}

func TestRequireManager(t *testing.T) {
	tests := []struct {
		role Role
		want int
	}{
		{RoleEmployee, http.StatusForbidden},
		{RoleManager, http.StatusOK},
		{RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			r := gin.New()
			r.Use(AuthMiddleware(testSecret), RequireManager())
			r.GET("/alerts", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(tt.role), testSecret))
			assert.Equal(t, tt.want, serve(r, req).Code)
		})
	}
}

func TestCanActFor(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	tests := []struct {
		name   string
		role   Role
		target uuid.UUID
		want   bool
	}{
		{"self", RoleEmployee, self, true},
		{"other employee", RoleEmployee, other, false},
		{"manager for other", RoleManager, other, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Set(userIDKey, self)
			c.Set(userRoleKey, tt.role)
			assert.Equal(t, tt.want, CanActFor(c, tt.target))
		})
	}
}

func TestCorrelationID(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "req-123")
	w := serve(r, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(CorrelationIDHeader))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Header().Get(CorrelationIDHeader))
	assert.NoError(t, err)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

type bindRequest struct {
	Name string `json:"name" validate:"required,max=5"`
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"name":"ana"}`, http.StatusOK},
		{"validation failure", `{"name":"too long name"}`, http.StatusBadRequest},
		{"malformed", `{"name":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/", func(c *gin.Context) {
				var req bindRequest
				if !BindJSON(c, &req) {
					return
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			assert.Equal(t, tt.want, serve(r, req).Code)
		})
	}
}

func TestMetricsRecordsRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics("attendance-test"))
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/things/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
