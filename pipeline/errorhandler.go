package pipeline

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/harborstack/keel/errors"
	"github.com/harborstack/keel/logger"
)

// ErrorHandler is the terminal error boundary for the pipeline. It recovers
// panics, collects handler errors, and answers every failure with the
// minimal JSON envelope {code: <status>}: no message, no stack trace.
// Failures log as fatal unless the status is not-found.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Fatal("Request handler panicked", logger.Fields(
					"panic", logger.Stringify(r),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"stack", string(debug.Stack()),
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errors.Envelope{Code: http.StatusInternalServerError})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := errors.StatusOf(err)
		if status == http.StatusNotFound {
			log.Debug("Request error", logger.Fields(
				"path", c.Request.URL.Path, "status", status,
			))
		} else {
			log.Fatal("Request error", logger.Fields(
				"path", c.Request.URL.Path,
				"status", status,
				logger.FieldError, err.Error(),
			))
		}

		if !c.Writer.Written() {
			c.JSON(status, errors.Envelope{Code: status})
		}
	}
}
