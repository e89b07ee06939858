package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/tkrause92/askwave/internal/errors"
)

type createEventRequest struct {
	Title    string `json:"title"`
	JoinCode string `json:"joinCode"`
	IsActive *bool  `json:"isActive"`
}

func (s *Server) handleCreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	// Events open for questions unless explicitly created closed.
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	event, err := s.app.CreateEvent(c.Request().Context(), req.Title, req.JoinCode, isActive)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

func (s *Server) handleGetEventByJoinCode(c echo.Context) error {
	event, err := s.app.GetEventByJoinCode(c.Request().Context(), c.Param("joinCode"))
	if err != nil {
		return mapDomainError(err).WithField("join_code", c.Param("joinCode"))
	}
	return c.JSON(http.StatusOK, event)
}
