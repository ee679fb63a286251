package server

import (
	"crypto/subtle"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/peakshop/tollgate/internal/observability/context"
)

// OperatorKeyHeader authenticates the trusted front-end process.
const OperatorKeyHeader = "X-Operator-Key"

// OperatorRequired gates the operator surface behind the shared key.
// A valid key resolves to the configured operator identity; casbin
// decides what that identity may do per route.
func (s *Server) OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(OperatorKeyHeader))
		if s.cfg.OperatorKey == "" || key == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.OperatorKey)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := "operator:" + strconv.FormatInt(s.cfg.OperatorID, 10)
		c.Request = c.Request.WithContext(
			obscontext.WithActorID(c.Request.Context(), actor),
		)
		c.Set("actor", actor)
		c.Next()
	}
}

func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetString("actor")
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// AccessRateLimit throttles the public access-check endpoint per
// client address. No limiter configured means no throttling.
func (s *Server) AccessRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.accessLimiter.Enabled() {
			c.Next()
			return
		}

		res, err := s.accessLimiter.AllowClient(c.Request.Context(), c.ClientIP())
		if err != nil || res == nil || res.Allowed {
			c.Next()
			return
		}

		if res.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
		}
		AbortWithError(c, ErrRateLimited)
	}
}
