package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	tldomain "github.com/linkrail/linkrail/internal/trackinglink/domain"
	"github.com/linkrail/linkrail/pkg/db/pagination"
)

type createOfferRequest struct {
	Name string `json:"name"`
}

type createLinkRequest struct {
	Slug      string `json:"slug"`
	TargetURL string `json:"target_url"`
}

func (s *Server) CreateOffer(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.linkSvc.CreateOffer(c.Request.Context(), tldomain.CreateOfferRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateLink(c *gin.Context) {
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.linkSvc.CreateLink(c.Request.Context(), tldomain.CreateLinkRequest{
		OfferID:   strings.TrimSpace(c.Param("id")),
		Slug:      strings.TrimSpace(req.Slug),
		TargetURL: strings.TrimSpace(req.TargetURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLinks(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.linkSvc.ListLinks(c.Request.Context(), strings.TrimSpace(c.Param("id")), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
