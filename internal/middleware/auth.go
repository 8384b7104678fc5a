package middleware

import (
	"errors"
	"net/http"
	"strings"

	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/jwt"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// AuthMiddleware resolves the caller from a bearer token issued by the
// identity provider.
type AuthMiddleware struct {
	tokens *jwt.Manager
	log    logger.Logger
}

func NewAuthMiddleware(tokens *jwt.Manager, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		log:    log,
	}
}

// RequireAuth accepts the token from the Authorization header or, because
// browsers cannot set headers on a WebSocket upgrade, the access_token query
// parameter.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthenticated(c, "authorization required")
			return
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				abortUnauthenticated(c, "token expired")
				return
			}
			m.log.Debug("Rejected access token", "error", err, "client_ip", c.ClientIP())
			abortUnauthenticated(c, "invalid token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(apperrors.CodeUnauthenticated, message))
}

// GetUserID returns the authenticated user id set by RequireAuth.
func GetUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}
