package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aiinpocket/n3n/editor/internal/registry"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

type (
	// nodeTypeListResponse lists the node types available in the catalog
	nodeTypeListResponse struct {
		Types []*registry.NodeTypeInfo `json:"types"`
		Count int                      `json:"count"`
	}

	// serviceListResponse lists the external services available to
	// service-call nodes
	serviceListResponse struct {
		Services []*registry.ServiceEndpoint `json:"services"`
		Count    int                         `json:"count"`
	}
)

func (s *Server) listNodeTypes(c *gin.Context) {
	types := s.registry.Types()
	c.JSON(http.StatusOK, nodeTypeListResponse{
		Types: types,
		Count: len(types),
	})
}

func (s *Server) listServices(c *gin.Context) {
	services := s.services.Services()
	c.JSON(http.StatusOK, serviceListResponse{
		Services: services,
		Count:    len(services),
	})
}

func (s *Server) getService(c *gin.Context) {
	svc, err := s.services.Service(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, svc)
}
