package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"fincheck/internal/adapter/logging"
	"fincheck/internal/adapter/metrics"
	"fincheck/internal/domain"
	"fincheck/internal/usecase"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker verifies a single claim.
type Checker interface {
	Check(ctx context.Context, claim string) (*usecase.CheckResult, error)
}

// Chatter answers chat messages and exposes session history.
type Chatter interface {
	Chat(ctx context.Context, req usecase.ChatRequest) (*usecase.ChatResponse, error)
	History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error)
}

// ReadinessProbe reports whether the evidence index is loaded.
type ReadinessProbe interface {
	Ready() bool
}

// Options configures the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
}

// Server is the JSON API over the check and chat use cases.
type Server struct {
	echo    *echo.Echo
	checker Checker
	chatter Chatter
	probe   ReadinessProbe
	logger  *slog.Logger
}

func New(checker Checker, chatter Chatter, probe ReadinessProbe, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		echo:    echo.New(),
		checker: checker,
		chatter: chatter,
		probe:   probe,
		logger:  logger.With("component", "server"),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordRequest(v.Method, route, strconv.Itoa(v.Status), v.Latency.Seconds())
			s.logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	if len(opts.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     opts.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowCredentials: true,
		}))
	}
	if opts.RequestTimeout > 0 {
		e.Use(requestTimeout(opts.RequestTimeout))
	}

	e.GET("/healthz", s.healthz)
	e.GET("/readyz", s.readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/check", s.check)
	e.POST("/chat", s.chat)
	e.GET("/chat/:session_id", s.history)

	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(c echo.Context) error {
	if s.probe == nil || !s.probe.Ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// handleError renders every error as {"detail": message}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := mapError(err)
	if he.Code >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request().Context(), "request failed", "path", c.Path(), "status", he.Code, "error", err)
	}

	detail, ok := he.Message.(string)
	if !ok {
		detail = http.StatusText(he.Code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, map[string]string{"detail": detail})
	}
	if err != nil {
		s.logger.Error("failed to write error response", "error", err)
	}
}

// mapError converts use case errors into HTTP errors.
func mapError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	var upstream *usecase.UpstreamError
	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &upstream):
		return echo.NewHTTPError(http.StatusBadGateway, upstream.Error())
	case errors.Is(err, usecase.ErrNotReady), errors.Is(err, usecase.ErrUnavailable):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
