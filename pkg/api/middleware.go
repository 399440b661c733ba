package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bpmflow/bpmflow/pkg/auth"
	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
)

const (
	headerRequestID = "X-Request-ID"
	contextUserKey  = "auth_user"
)

// RequestIDMiddleware tags every request with a correlation id, honoring
// one supplied by the caller
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// LoggingMiddleware records one line per request
func LoggingMiddleware(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request handled", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": c.GetString("request_id"),
		})
	}
}

// RateLimitMiddleware applies a global token-bucket limit
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Envelope{
				Message: "rate limit exceeded",
				Success: false,
			})
			return
		}
		c.Next()
	}
}

// AuthMiddleware verifies the bearer token and stores the resolved user in
// the request context
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			message, _ := apperrors.Public(err)
			c.AbortWithStatusJSON(apperrors.HTTPStatus(err), Envelope{
				Message: message,
				Success: false,
			})
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// currentUser returns the authenticated user placed by AuthMiddleware
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// pathID parses a numeric path parameter
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.Validation(name+" must be a positive integer", nil)
	}
	return id, nil
}

// pageParams reads page/page_size query parameters, leaving zero for the
// service layer to default and validate
func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "0"))
	return page, pageSize
}
