package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	cddomain "github.com/linkrail/linkrail/internal/customdomain/domain"
)

type createDomainRequest struct {
	Hostname string `json:"hostname"`
	Method   string `json:"verification_method"`
}

func (s *Server) CreateDomain(c *gin.Context) {
	var req createDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.domainSvc.Create(c.Request.Context(), cddomain.CreateRequest{
		Hostname: strings.TrimSpace(req.Hostname),
		Method:   strings.TrimSpace(req.Method),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDomains(c *gin.Context) {
	resp, err := s.domainSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDomain(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.domainSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) VerifyDomain(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.domainSvc.Verify(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DomainInstructions(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.domainSvc.DNSInstructions(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RequestCertificate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.domainSvc.RequestCertificate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ValidateCertificate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.domainSvc.ValidateCertificate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DomainStats(c *gin.Context) {
	resp, err := s.domainSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BestDomain(c *gin.Context) {
	resp, err := s.domainSvc.BestDomain(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifiedDomains(c *gin.Context) {
	resp, err := s.domainSvc.VerifiedDomains(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ClearDNSCache(c *gin.Context) {
	var query struct {
		Hostname string `form:"hostname"`
		Type     string `form:"type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	removed, err := s.domainSvc.ClearDNSCache(c.Request.Context(), strings.TrimSpace(query.Hostname), strings.TrimSpace(query.Type))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"removed": removed}})
}
