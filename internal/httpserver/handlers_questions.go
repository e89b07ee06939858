package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/tkrause92/askwave/internal/errors"
)

type createQuestionRequest struct {
	EventID string `json:"eventId"`
	Text    string `json:"text"`
}

func (s *Server) handleCreateQuestion(c echo.Context) error {
	var req createQuestionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.EventID == "" {
		return apperrors.ValidationError("eventId is required")
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return apperrors.ValidationError("invalid eventId format").WithField("event_id", req.EventID)
	}

	question, err := s.app.CreateQuestion(c.Request().Context(), eventID, req.Text)
	if err != nil {
		return mapDomainError(err).WithField("event_id", eventID.String())
	}
	return c.JSON(http.StatusCreated, question)
}

func (s *Server) handleListQuestions(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		return apperrors.ValidationError("invalid eventId format").WithField("event_id", c.Param("eventId"))
	}

	questions, err := s.app.ListQuestions(c.Request().Context(), eventID)
	if err != nil {
		return mapDomainError(err).WithField("event_id", eventID.String())
	}
	return c.JSON(http.StatusOK, questions)
}

func (s *Server) handleUpvoteQuestion(c echo.Context) error {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		return apperrors.ValidationError("invalid questionId format").WithField("question_id", c.Param("questionId"))
	}

	result, err := s.app.UpvoteQuestion(c.Request().Context(), questionID)
	if err != nil {
		return mapDomainError(err).WithField("question_id", questionID.String())
	}
	return c.JSON(http.StatusOK, result)
}
