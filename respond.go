package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/mailer"
	"github.com/shape-portfolio/site/internal/ratelimit"
	"github.com/shape-portfolio/site/internal/store"
)

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// paramID reads the :id route parameter, answering 400 itself when it is not
// a positive integer.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// statusFor maps store errors to HTTP statuses and client-safe text.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrTooManyImages),
		errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, store.ErrEmptyName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errMailNotConfigured):
		return http.StatusInternalServerError, "Email credentials not configured"
	case errors.Is(err, mailer.ErrQueueFull), errors.Is(err, mailer.ErrQueueClosed):
		return http.StatusServiceUnavailable, "Mail queue is busy, try again shortly"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// storeError answers a failed store call on entity, logging anything
// unexpected. entity is capitalised for display, e.g. "Project".
func (s *server) storeError(c *gin.Context, entity string, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		s.log.Error("store operation failed",
			zap.String("entity", entity),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.Error(err)
	}
	if status == http.StatusNotFound {
		msg = entity + " not found"
	}
	respondError(c, status, msg)
}

// limited applies l to key and reports whether the request must be refused,
// setting Retry-After when it is. Limiter failures let the request through.
func (s *server) limited(c *gin.Context, l ratelimit.Limiter, key string) bool {
	ok, retry, err := l.Allow(c.Request.Context(), key)
	if err != nil {
		s.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return false
	}
	if ok {
		return false
	}
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
	return true
}
