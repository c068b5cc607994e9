package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

const secreto = "secreto-de-prueba"

func motorProtegido(roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", JWTAuth(secreto), RequireRole(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Username)
	})
	return r
}

func token(t *testing.T, secret, rol string, exp time.Time) string {
	t.Helper()
	tok, err := FirmarToken(secret, JWTClaims{
		UserID:   "u-1",
		Username: "jperez",
		Rol:      rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	require.NoError(t, err)
	return tok
}

func get(r *gin.Engine, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := motorProtegido(RolSupervisor, RolAdministrador)
	futuro := time.Now().Add(time.Hour)

	w := get(r, token(t, secreto, RolSupervisor, futuro))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jperez", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, token(t, "otro", RolSupervisor, futuro)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, token(t, secreto, RolSupervisor, time.Now().Add(-time.Minute))).Code)
	assert.Equal(t, http.StatusForbidden, get(r, token(t, secreto, RolOperador, futuro)).Code)
}

func TestRequestID_Propaga(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	ahora := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	rl := &rateLimiter{limit: 2, window: time.Minute, entries: map[string]*rateEntry{}, now: func() time.Time { return ahora }}

	ok, _ := rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.allow("10.0.0.1")
	assert.False(t, ok)
	ok, _ = rl.allow("10.0.0.2")
	assert.True(t, ok, "limits are per IP")

	ahora = ahora.Add(61 * time.Second)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok, "a new window starts clean")
	assert.Len(t, rl.entries, 1, "expired entries are purged")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/x", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error interno del servidor")
}
