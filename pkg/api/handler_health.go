package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
	"github.com/codeready-toolchain/deliberatorium/pkg/version"
)

// healthHandler handles GET /health.
// The server keeps no external state, so it is healthy whenever it answers.
func (s *Server) healthHandler(c *echo.Context) error {
	resp := &models.HealthResponse{
		Status:  "healthy",
		Version: version.Full(),
		Debates: s.debates.Registry().Len(),
	}
	if s.connManager != nil {
		resp.Connections = s.connManager.ActiveConnections()
	}
	return c.JSON(http.StatusOK, resp)
}
