// Package server exposes the query runner over HTTP for the web
// dashboard: a small JSON API plus an xlsx download endpoint.
package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/config"
	"github.com/hookline/crmq/pkg/hubspot"
	"github.com/hookline/crmq/pkg/runner"
)

type Server struct {
	app    *fiber.App
	runner *runner.Runner
	logger *zap.Logger
}

func New(r *runner.Runner, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "crmq",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	s := &Server{app: app, runner: r, logger: logger}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/query", s.handleQuery)
	api.Post("/query/export", s.handleExport)
	api.Post("/discover", s.handleDiscover)

	return s
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("Starting web server", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// queryRequest is the JSON body shared by /api/query and
// /api/query/export.
type queryRequest struct {
	Platform    string   `json:"platform"`
	SecretPath  string   `json:"secretPath"`
	Object      string   `json:"object"`
	Type        string   `json:"type"`
	Limit       int      `json:"limit"`
	Properties  []string `json:"properties"`
	CustomQuery string   `json:"customQuery"`

	Filters []hubspot.Filter `json:"filters"`

	AlwaysRefresh       bool `json:"alwaysRefresh"`
	AutoRefreshOnExpire bool `json:"autoRefresh"`
}

// toQuery maps the request onto a validated Query. The workbook stays in
// memory; the web path never writes to the server's filesystem.
func (r queryRequest) toQuery() (config.Query, error) {
	q := config.Query{
		Platform:            config.Platform(r.Platform),
		SecretPath:          r.SecretPath,
		Object:              r.Object,
		Type:                r.Type,
		Limit:               r.Limit,
		Properties:          r.Properties,
		CustomQuery:         r.CustomQuery,
		AlwaysRefresh:       r.AlwaysRefresh,
		AutoRefreshOnExpire: r.AutoRefreshOnExpire,
	}
	if err := q.Validate(); err != nil {
		return config.Query{}, err
	}
	return q, nil
}

func (s *Server) run(c *fiber.Ctx) (*runner.Outcome, error) {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	q, err := req.toQuery()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var outcome *runner.Outcome
	if q.Platform == config.PlatformHubSpot {
		outcome, err = s.runner.RunHubSpot(c.Context(), q, req.Filters)
	} else {
		outcome, err = s.runner.RunSalesforce(c.Context(), q)
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return outcome, nil
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	outcome, err := s.run(c)
	if err != nil {
		return err
	}
	return c.JSON(outcome)
}

// handleExport runs the query and streams the workbook as an attachment.
// Only "all" and "shape" produce a workbook.
func (s *Server) handleExport(c *fiber.Ctx) error {
	outcome, err := s.run(c)
	if err != nil {
		return err
	}
	if len(outcome.Workbook) == 0 {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("query type %q produces no spreadsheet", outcome.QueryType))
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", outcome.Filename))
	return c.Send(outcome.Workbook)
}

type discoverRequest struct {
	Platform      string `json:"platform"`
	SecretPath    string `json:"secretPath"`
	Filter        string `json:"filter"`
	AlwaysRefresh bool   `json:"alwaysRefresh"`
}

func (s *Server) handleDiscover(c *fiber.Ctx) error {
	var req discoverRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.SecretPath == "" {
		return fiber.NewError(fiber.StatusBadRequest, "secretPath is required")
	}

	results, err := s.runner.Discover(c.Context(),
		config.Platform(req.Platform), req.SecretPath, req.Filter, req.AlwaysRefresh, nil)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"objects": results})
}
