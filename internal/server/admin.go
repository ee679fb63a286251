package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peakshop/tollgate/pkg/db/pagination"
)

func bindPagination(c *gin.Context) (pagination.Pagination, bool) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return page, false
	}
	return page.Normalize(), true
}

func (s *Server) ListActiveEntitlements(c *gin.Context) {
	page, ok := bindPagination(c)
	if !ok {
		return
	}

	rows, total, err := s.entitlementSvc.ListActive(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows, "total_count": total})
}

func (s *Server) ListExpiredEntitlements(c *gin.Context) {
	page, ok := bindPagination(c)
	if !ok {
		return
	}

	rows, total, err := s.entitlementSvc.ListExpired(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows, "total_count": total})
}

func (s *Server) ListPurchases(c *gin.Context) {
	page, ok := bindPagination(c)
	if !ok {
		return
	}

	rows, total, err := s.settlementSvc.ListPurchases(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows, "total_count": total})
}

func (s *Server) ListUsers(c *gin.Context) {
	page, ok := bindPagination(c)
	if !ok {
		return
	}

	rows, total, err := s.accountSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows, "total_count": total})
}
