package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/models"
	"github.com/noah-isme/campus-feed-api/pkg/cache"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*models.JWTClaims, error) {
	return s.claims, s.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	return r
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := newRouter(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1"}}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAttachesClaims(t *testing.T) {
	r := newRouter(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}}))
	var got *models.JWTClaims
	r.GET("/", func(c *gin.Context) {
		got, _ = CurrentClaims(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
}

func TestJWTPropagatesValidatorError(t *testing.T) {
	r := newRouter(JWT(stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := newRouter(OptionalJWT(stubValidator{err: errors.New("bad")}))
	r.GET("/", func(c *gin.Context) {
		_, ok := CurrentClaims(c)
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func TestRBAC(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		path   string
		want   int
	}{
		{"role allowed", &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "/users/u2", http.StatusOK},
		{"self allowed", &models.JWTClaims{UserID: "u2", Role: models.RoleStudent}, "/users/u2", http.StatusOK},
		{"other forbidden", &models.JWTClaims{UserID: "u3", Role: models.RoleStudent}, "/users/u2", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(withClaims(tc.claims))
			r.GET("/users/:id", RBAC(string(models.RoleAdmin), "SELF"), func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}

	r := newRouter()
	r.GET("/", RequireRoles(models.RoleSeller), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type recordingObserver struct {
	paths    []string
	statuses []int
}

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, method+" "+path)
	o.statuses = append(o.statuses, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &recordingObserver{}
	r := newRouter(Metrics(obs))
	r.GET("/events/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []string{"GET /events/:id", "GET unmatched"}, obs.paths)
	assert.Equal(t, []int{http.StatusAccepted, http.StatusNotFound}, obs.statuses)
}

type stubLimiter struct {
	decision cache.Decision
	err      error
	keys     []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (cache.Decision, error) {
	s.keys = append(s.keys, key)
	return s.decision, s.err
}

func TestRateLimitRejectsWithRetryAfter(t *testing.T) {
	limiter := &stubLimiter{decision: cache.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}}
	r := newRouter(withClaims(&models.JWTClaims{UserID: "u1"}), RateLimit(limiter, "api", 5, time.Minute, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, []string{"api:user:u1"}, limiter.keys)
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis down")}
	r := newRouter(RateLimit(limiter, "api", 5, time.Minute, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Contains(t, limiter.keys[0], "api:ip:")
}

func TestSecurityHeadersAndMeta(t *testing.T) {
	r := newRouter(SecurityHeaders(), WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

type recordingAudit struct{ logs []*models.AuditLog }

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	writer := &recordingAudit{}
	r := newRouter(withClaims(&models.JWTClaims{UserID: "u1"}))
	r.DELETE("/events/:id", Audit(writer, nil, models.AuditActionDelete, models.AuditResourceEvent), func(c *gin.Context) {
		if c.Param("id") == "bad" {
			c.Status(http.StatusForbidden)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/events/bad", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/events/e1", nil))

	require.Len(t, writer.logs, 1)
	assert.Equal(t, "e1", *writer.logs[0].ResourceID)
	assert.Equal(t, "u1", *writer.logs[0].UserID)
	assert.Equal(t, models.AuditResourceEvent, writer.logs[0].Resource)
}
