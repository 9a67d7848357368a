package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnema/proxy-manager/internal/adapters/dto"
	"github.com/bnema/proxy-manager/internal/adapters/in/http/httputil"
	"github.com/bnema/proxy-manager/internal/adapters/out/ratelimit"
	"github.com/bnema/proxy-manager/internal/domain"
)

// maxRequestSize bounds admin API request bodies.
const maxRequestSize = "1M"

const shutdownTimeout = 10 * time.Second

// Options configures the router.
type Options struct {
	// Registry is exposed on /metrics when set.
	Registry *prometheus.Registry
	// RateLimit is the sustained per-client request rate on /api. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// DefaultOptions returns a 10 req/s limit with a burst of 20.
func DefaultOptions() Options {
	return Options{RateLimit: 10, Burst: 20}
}

// NewRouter builds the echo instance serving the admin API.
func NewRouter(h *Handler, opts Options, logger *log.Logger) *echo.Echo {
	logger = logger.With("layer", "adapter", "adapter", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api", middleware.BodyLimit(maxRequestSize))
	if opts.RateLimit > 0 {
		api.Use(rateLimiter(opts))
	}
	h.Register(api)

	return e
}

func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			)
			return nil
		},
	})
}

func rateLimiter(opts Options) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: ratelimit.NewMemoryStore(opts.RateLimit, opts.Burst, 3*time.Minute),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// StatusCode maps an error class to the HTTP status returned to clients.
func StatusCode(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, domain.ErrContainerNotFound), errors.Is(err, domain.ErrRouteNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPort), errors.Is(err, domain.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRuntime):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := StatusCode(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(he.Code)
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", c.Path(), "status", status, "error", err)
		} else {
			logger.Debug("request rejected", "path", c.Path(), "status", status, "error", err)
		}

		resp := dto.ErrorResponse{
			Error:     msg,
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			logger.Error("failed to write error response", "error", err)
		}
	}
}

// Run serves e on addr until ctx is cancelled, then shuts it down gracefully.
func Run(ctx context.Context, e *echo.Echo, addr string, logger *log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("admin API listening", "addr", addr)
	if !httputil.IsLoopbackAddr(addr) {
		logger.Warn("admin API is reachable from other hosts and has no authentication", "addr", addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("admin API stopped")
	return nil
}
