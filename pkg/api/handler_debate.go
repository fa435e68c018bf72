package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// startDebateHandler handles POST /api/start_debate.
func (s *Server) startDebateHandler(c *echo.Context) error {
	var req models.StartDebateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d, err := s.debates.CreateDebate(c.Request().Context(), req.Topic)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &models.StartDebateResponse{
		DebateID: d.ID,
		Topic:    d.Topic,
		Agents:   models.CloneRoster(d.Roster),
	})
}

// agentsHandler handles GET /api/agents.
func (s *Server) agentsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &models.AgentsResponse{Agents: s.debates.Roster()})
}

// listDebatesHandler handles GET /api/debates.
func (s *Server) listDebatesHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.debates.Registry().List())
}

// getDebateHandler handles GET /api/debates/:id.
func (s *Server) getDebateHandler(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "debate id is required")
	}

	snap, err := s.debates.GetDebate(id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &snap)
}
