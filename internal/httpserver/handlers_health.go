package httpserver

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tkrause92/askwave/internal/version"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(200, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Seconds(),
		"version": version.Get(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"postgres", s.checkPostgres},
		{"redis", s.checkRedis},
	}

	for _, check := range checks {
		if err := check.fn(ctx); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}
	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) checkPostgres(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Server) checkRedis(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
