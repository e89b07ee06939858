package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Mutating routes are rate limited per client IP.
	limited := newRateLimiter(10, 20)

	api := s.echo.Group("/api/v1")
	api.POST("/events", s.handleCreateEvent, limited)
	api.GET("/events/:joinCode", s.handleGetEventByJoinCode)
	api.POST("/questions", s.handleCreateQuestion, limited)
	api.GET("/questions/:eventId", s.handleListQuestions)
	api.PUT("/questions/:questionId/upvote", s.handleUpvoteQuestion, limited)

	// Real-time endpoint
	s.echo.GET("/ws", s.wsHandler.Handle)
}
