// Package admin implements the HTTP adapter for the admin API.
package admin

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"

	"github.com/bnema/proxy-manager/internal/adapters/dto"
	"github.com/bnema/proxy-manager/internal/boundaries/in"
	"github.com/bnema/proxy-manager/internal/domain"
)

const (
	defaultLogLines = 100
	// maxLogLines is the maximum allowed number of log lines that can be requested.
	maxLogLines = 10000
)

// Handler implements the admin API endpoints on top of the proxy service.
type Handler struct {
	svc in.ProxyService
	log *log.Logger

	// mu serializes service calls so two requests never interleave a
	// load/save cycle on the config file.
	mu sync.Mutex
}

// NewHandler creates a new admin HTTP handler.
func NewHandler(svc in.ProxyService, logger *log.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: logger.With("layer", "adapter", "adapter", "http"),
	}
}

// Register mounts the API endpoints on g.
func (h *Handler) Register(g *echo.Group) {
	g.Use(h.serialize)

	g.GET("/status", h.handleStatus)
	g.GET("/config", h.handleConfig)
	g.GET("/networks", h.handleNetworks)
	g.GET("/runtime/containers", h.handleRuntimeContainers)

	g.POST("/containers", h.handleContainerPost)
	g.DELETE("/containers/:id", h.handleContainerDelete)

	g.PUT("/routes/:port", h.handleRoutePut)
	g.DELETE("/routes/:port", h.handleRouteDelete)

	g.POST("/proxy/build", h.lifecycle(h.svc.BuildProxy))
	g.POST("/proxy/start", h.lifecycle(h.svc.StartProxy))
	g.POST("/proxy/stop", h.lifecycle(h.svc.StopProxy))
	g.POST("/proxy/reload", h.lifecycle(h.svc.ReloadProxy))
	g.GET("/proxy/logs", h.handleLogs)
	g.GET("/proxy/preview", h.handlePreview)
}

func (h *Handler) serialize(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		return next(c)
	}
}

func (h *Handler) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()

	routes, err := h.svc.Status(ctx)
	if err != nil {
		return err
	}
	state, err := h.svc.ProxyState(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.StatusResponse{Routes: routes, Proxy: state})
}

func (h *Handler) handleConfig(c echo.Context) error {
	cfg, err := h.svc.Config(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) handleNetworks(c echo.Context) error {
	networks, err := h.svc.Networks(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, networks)
}

func (h *Handler) handleRuntimeContainers(c echo.Context) error {
	all, _ := strconv.ParseBool(c.QueryParam("all"))
	names, err := h.svc.RuntimeContainers(c.Request().Context(), all)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, names)
}

func (h *Handler) handleContainerPost(c echo.Context) error {
	var req dto.ContainerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON")
	}

	updated, err := h.svc.AddContainer(c.Request().Context(), req.Spec())
	if err != nil {
		return err
	}

	h.log.Info("container declared", "name", req.Name, "updated", updated)
	status := http.StatusCreated
	if updated {
		status = http.StatusOK
	}
	return c.JSON(status, dto.ContainerResponse{Name: req.Name, Updated: updated})
}

func (h *Handler) handleContainerDelete(c echo.Context) error {
	name, dropped, err := h.svc.RemoveContainer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if dropped == nil {
		dropped = []domain.Route{}
	}
	h.log.Info("container removed", "name", name, "dropped_routes", len(dropped))
	return c.JSON(http.StatusOK, dto.RemoveContainerResponse{Name: name, DroppedRoutes: dropped})
}

func (h *Handler) handleRoutePut(c echo.Context) error {
	port, err := parsePort(c.Param("port"))
	if err != nil {
		return err
	}

	var req dto.RouteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON")
	}
	if req.Target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target is required")
	}

	report, err := h.svc.SwitchTarget(c.Request().Context(), req.Target, port)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) handleRouteDelete(c echo.Context) error {
	port, err := parsePort(c.Param("port"))
	if err != nil {
		return err
	}

	report, err := h.svc.StopPort(c.Request().Context(), port)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) lifecycle(op func(context.Context) (*domain.Report, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := op(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, report)
	}
}

func (h *Handler) handleLogs(c echo.Context) error {
	tail, err := logTail(c.QueryParam("tail"))
	if err != nil {
		return err
	}

	lines, err := h.svc.Logs(c.Request().Context(), false, tail)
	if err != nil {
		return err
	}
	if lines == nil {
		lines = []string{}
	}
	return c.JSON(http.StatusOK, dto.LogsResponse{Lines: lines})
}

func (h *Handler) handlePreview(c echo.Context) error {
	artifacts, err := h.svc.Preview(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, artifacts)
}

func parsePort(raw string) (uint16, error) {
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil || port == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "port must be between 1 and 65535")
	}
	return uint16(port), nil
}

// logTail parses the tail query parameter. Zero asks for every line, which is
// capped at maxLogLines like any other value.
func logTail(raw string) (int, error) {
	if raw == "" {
		return defaultLogLines, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "tail must be a non-negative integer")
	}
	if n == 0 {
		return maxLogLines, nil
	}
	return min(n, maxLogLines), nil
}
