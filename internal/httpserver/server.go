// Package httpserver is the worker's request/response surface on echo.
package httpserver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tkrause92/askwave/internal/app"
	"github.com/tkrause92/askwave/internal/config"
	apperrors "github.com/tkrause92/askwave/internal/errors"
	"github.com/tkrause92/askwave/internal/metrics"
	"github.com/tkrause92/askwave/internal/ws"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       *app.Service
	wsHandler *ws.Handler
	db        *pgxpool.Pool
	redis     *goredis.Client
	startTime time.Time
}

func NewServer(cfg *config.Config, appSvc *app.Service, wsHandler *ws.Handler, db *pgxpool.Pool, redis *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestMetrics())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       appSvc,
		wsHandler: wsHandler,
		db:        db,
		redis:     redis,
		startTime: time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%d", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			metrics.HTTPRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(c.Response().Status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
