package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"creator_chat/internal/domain"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/jwt"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthRouter(tokens *jwt.Manager) *gin.Engine {
	r := gin.New()
	auth := NewAuthMiddleware(tokens, logger.Nop())
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		id, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": c.GetString(ContextUserRole)})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	tokens := jwt.NewManager("secret", "test", time.Hour)
	token, err := tokens.Issue(42, "creator")
	require.NoError(t, err)

	expired := jwt.NewManager("secret", "test", -time.Minute)
	expiredToken, err := expired.Issue(42, "creator")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantMsg    string
	}{
		{name: "bearer header", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "query token", query: "?access_token=" + token, wantStatus: http.StatusOK},
		{name: "missing", wantStatus: http.StatusUnauthorized, wantMsg: "authorization required"},
		{name: "wrong scheme", header: "Basic " + token, wantStatus: http.StatusUnauthorized, wantMsg: "authorization required"},
		{name: "garbage", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantMsg: "invalid token"},
		{name: "expired", header: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized, wantMsg: "token expired"},
	}

	r := newAuthRouter(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42,"role":"creator"}`, w.Body.String())
				return
			}
			body := decodeError(t, w)
			assert.Equal(t, apperrors.CodeUnauthenticated, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
		})
	}
}

func TestGetUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)

	c.Set(ContextUserID, "42")
	_, ok = GetUserID(c)
	assert.False(t, ok)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(apperrors.Conflict("service request is not pending"))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})
	r.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, apperrors.CodeConflict, body.Error.Code)
	assert.Equal(t, "service request is not pending", body.Error.Message)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.CodeInternal, decodeError(t, w).Error.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.Nop()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 8)
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get("X-Request-ID"))
}

type countingLimiter struct {
	limit int
	hits  map[string]int
	rules []domain.RateLimitRule
}

func (l *countingLimiter) Allow(_ context.Context, rule domain.RateLimitRule, key string) error {
	l.rules = append(l.rules, rule)
	l.hits[rule.Scope+":"+key]++
	if l.hits[rule.Scope+":"+key] > l.limit {
		return &apperrors.DomainError{Kind: apperrors.ErrRateLimited, Message: "too many requests"}
	}
	return nil
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{limit: 2, hits: map[string]int{}}
	mw := NewRateLimitMiddleware(limiter, 2, logger.Nop())

	r := gin.New()
	r.POST("/anon", mw.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/user", func(c *gin.Context) {
		c.Set(ContextUserID, int64(7))
		c.Next()
	}, mw.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/anon", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/anon", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.CodeRateLimited, decodeError(t, w).Error.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/user", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, limiter.hits["user:7"])

	last := limiter.rules[len(limiter.rules)-1]
	assert.Equal(t, domain.RateLimitScopeUser, last.Scope)
	assert.Equal(t, time.Minute, last.Window)
}

func TestRateLimit_ReadsAreNotCounted(t *testing.T) {
	limiter := &countingLimiter{limit: 1, hits: map[string]int{}}
	mw := NewRateLimitMiddleware(limiter, 1, logger.Nop())

	r := gin.New()
	r.GET("/items", mw.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Empty(t, limiter.hits)
}

func TestDetachWrites(t *testing.T) {
	type seen struct {
		err         error
		hasDeadline bool
	}
	var got seen
	capture := func(c *gin.Context) {
		ctx := c.Request.Context()
		_, ok := ctx.Deadline()
		got = seen{err: ctx.Err(), hasDeadline: ok}
		c.Status(http.StatusOK)
	}

	r := gin.New()
	r.Use(DetachWrites(time.Minute))
	r.POST("/write", capture)
	r.GET("/read", capture)

	gone, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil).WithContext(gone))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, got.err)
	assert.True(t, got.hasDeadline)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/read", nil).WithContext(gone))
	assert.ErrorIs(t, got.err, context.Canceled)
	assert.False(t, got.hasDeadline)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
