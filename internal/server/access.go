package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) CheckAccess(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	category := strings.TrimSpace(c.Query("category"))

	grant, err := s.accessSvc.Check(c.Request.Context(), token, category)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    grant.UserID,
		"expires_at": grant.ExpiresAt,
	})
}
