package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type grantEntitlementRequest struct {
	UserID   int64  `json:"user_id"`
	Category string `json:"category"`
	Days     int    `json:"days"`
}

func (s *Server) GrantEntitlement(c *gin.Context) {
	var req grantEntitlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.entitlementSvc.Grant(c.Request.Context(), req.UserID, strings.TrimSpace(req.Category), req.Days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// MaxEntitlementExpiry answers the coarse "does this user have any
// access, and until when" question the front-end asks for /status.
func (s *Server) MaxEntitlementExpiry(c *gin.Context) {
	userID, err := strconv.ParseInt(strings.TrimSpace(c.Query("user_id")), 10, 64)
	if err != nil || userID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	maxExpiry, err := s.entitlementSvc.MaxExpiry(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "max_expiry": maxExpiry})
}

type revokeEntitlementRequest struct {
	UserID   int64  `json:"user_id"`
	Category string `json:"category"`
	All      bool   `json:"all"`
}

func (s *Server) RevokeEntitlement(c *gin.Context) {
	var req revokeEntitlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if req.All {
		revoked, err := s.entitlementSvc.RevokeAll(c.Request.Context(), req.UserID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"revoked": revoked})
		return
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := s.entitlementSvc.Revoke(c.Request.Context(), req.UserID, category); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": 1})
}
