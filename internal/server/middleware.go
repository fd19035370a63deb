package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/makoban/koubo-navi/internal/identity/domain"
	obscontext "github.com/makoban/koubo-navi/internal/observability/context"
	"go.uber.org/zap"
)

const identityKey = "identity"

// AuthRequired resolves the bearer token and rejects anonymous callers.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := s.verifier.Verify(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
		if ident.Anonymous() {
			AbortWithError(c, ErrAuthRequired)
			return
		}

		c.Set(identityKey, ident)
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), ident.UserID))
		c.Next()
	}
}

func identityFrom(c *gin.Context) identitydomain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if ident, ok := v.(identitydomain.Identity); ok {
			return ident
		}
	}
	return identitydomain.Identity{}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AIRateLimit throttles the AI-backed endpoints per user. Limiter errors fail
// open: a broken redis must not take the product down with it.
func (s *Server) AIRateLimit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.aiLimiter.Enabled() {
			c.Next()
			return
		}

		ident := identityFrom(c)
		res, err := s.aiLimiter.Allow(c.Request.Context(), ident.UserID)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("endpoint", endpoint), zap.Error(err))
			c.Next()
			return
		}

		if !res.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), endpoint, "limit_exceeded")
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Error: "リクエストが多すぎます。しばらくしてからお試しください",
			})
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), endpoint)
		c.Next()
	}
}
