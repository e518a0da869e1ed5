package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Paulagot/bingo-sub014/pkg/errors"
	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

// respondError translates the error taxonomy into HTTP statuses. Internal
// detail never reaches the client; everything unexpected collapses to a
// generic 500.
func respondError(c *gin.Context, err error) {
	code := errors.Code(err)
	message := "internal error"
	if appErr, ok := err.(*errors.AppError); ok {
		message = appErr.Message
	}

	var status int
	switch code {
	case errors.ErrCodeValidation:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeConflict:
		status = http.StatusConflict
	case errors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		status = http.StatusForbidden
	case errors.ErrCodeRateLimitExceeded:
		status = http.StatusTooManyRequests
	default:
		status = http.StatusInternalServerError
		message = "internal error"
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}

	c.JSON(status, gin.H{"ok": false, "code": code, "message": message})
}
