package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusnest/market/internal/api/middleware"
	"campusnest/market/internal/services"
)

const dayLayout = "2006-01-02"

// statusFor maps service sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrProfileIncomplete),
		errors.Is(err, services.ErrDuplicatePendingRequest),
		errors.Is(err, services.ErrNotPending),
		errors.Is(err, services.ErrAlreadyInWishlist),
		errors.Is(err, services.ErrPropertyUnavailable),
		errors.Is(err, services.ErrOriginNotFound):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrProfileNotPublic):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrPropertyNotFound),
		errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrVisitRequestNotFound),
		errors.Is(err, services.ErrJoinRequestNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Client errors carry the service
// message; server errors are logged and replaced with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		slog.Error(fallback, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": clientMessage(err)})
}

// clientMessage strips the "invalid input: " prefix added by services.
func clientMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && errors.Is(err, services.ErrInvalidInput) {
		return msg[i+2:]
	}
	return msg
}

// currentUser aborts with 401 when AuthMiddleware did not run.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, _, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return id, ok
}

// objectIDParam parses a hex id path parameter, writing 400 on failure.
func objectIDParam(c *gin.Context, name, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseDay accepts YYYY-MM-DD or RFC 3339 and returns UTC.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
