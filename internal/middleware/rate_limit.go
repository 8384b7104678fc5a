package middleware

import (
	"strconv"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/service"
	"creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	requestsPerMin   int
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, requestsPerMinute int, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		requestsPerMin:   requestsPerMinute,
		log:              log,
	}
}

// Limit counts write requests per authenticated user, or per client IP
// before authentication. Reads pass through uncounted.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		rule := domain.RateLimitRule{Scope: domain.RateLimitScopeIP, Limit: m.requestsPerMin, Window: time.Minute}
		key := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			rule.Scope = domain.RateLimitScopeUser
			key = strconv.FormatInt(userID, 10)
		}

		if err := m.rateLimitService.Allow(c.Request.Context(), rule, key); err != nil {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(errors.HTTPStatusFromError(err), errorBody(errors.Code(err), err.Error()))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Next()
	}
}
