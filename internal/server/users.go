package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type touchUserRequest struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TouchUser records a front-end sighting of a user.
func (s *Server) TouchUser(c *gin.Context) {
	var req touchUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err := s.accountSvc.Touch(
		c.Request.Context(),
		req.UserID,
		strings.TrimSpace(req.Username),
		strings.TrimSpace(req.FirstName),
		strings.TrimSpace(req.LastName),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
