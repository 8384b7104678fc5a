package handler

import (
	"strconv"

	"creator_chat/internal/middleware"
	apperrors "creator_chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUser reads the id set by the auth middleware. Handlers return
// straight away when ok is false; the error is already attached.
func currentUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		_ = c.Error(&apperrors.DomainError{Kind: apperrors.ErrUnauthenticated, Message: "user not authenticated"})
	}
	return id, ok
}

func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(apperrors.InvalidArgument("invalid " + label + " ID"))
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads take/skip. Zero values are normalised by the services.
func pagination(c *gin.Context) (int, int) {
	take, _ := strconv.Atoi(c.DefaultQuery("take", "0"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	return take, skip
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		_ = c.Error(apperrors.InvalidArgument(err.Error()))
		return false
	}
	return true
}
