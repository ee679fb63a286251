package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type issueTokenRequest struct {
	UserID     int64 `json:"user_id"`
	TTLSeconds int   `json:"ttl_seconds"`
}

func (s *Server) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ttl := req.TTLSeconds
	if ttl == 0 {
		ttl = s.cfg.TokenTTLSeconds
	}

	resp, err := s.tokenSvc.Issue(c.Request.Context(), req.UserID, ttl)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	})
}
