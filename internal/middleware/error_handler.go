package middleware

import (
	"creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Domain errors go out verbatim; anything else is logged first.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		code := errors.Code(err)
		if code == errors.CodeInternal {
			log.Error("Request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"request_id", c.GetString(ContextRequestID),
				"error", err,
			)
		}

		c.JSON(errors.HTTPStatusFromError(err), errorBody(code, err.Error()))
	}
}
