// Package handler exposes the triage workflow over HTTP: a small form UI
// and a JSON API, both driving the same Runner.
package handler

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/alainbuyze/outlook-categorizer/internal/auth"
	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
	"github.com/alainbuyze/outlook-categorizer/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer adapts html/template to echo's renderer contract.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{templates: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type Handler struct {
	cfg    *config.Config
	runner service.Runner
	logger *logrus.Logger
}

func New(cfg *config.Config, runner service.Runner, logger *logrus.Logger) *Handler {
	return &Handler{cfg: cfg, runner: runner, logger: logger}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", map[string]any{
		"Categories":   model.Categories(),
		"DefaultLimit": h.cfg.BatchSize,
	})
}

// RunForm handles the browser form submission and renders an HTML result
// table, or the sign-in page when authentication is still pending.
func (h *Handler) RunForm(c echo.Context) error {
	limit, _ := strconv.Atoi(c.FormValue("limit"))
	opts := service.RunOptions{
		Limit:       limit,
		FolderLabel: c.FormValue("folder_label"),
		DryRun:      c.FormValue("dry_run") == "true",
		RunID:       uuid.New().String(),
	}

	results, err := h.runner.Run(c.Request().Context(), opts)
	var authErr *auth.RequiredError
	if errors.As(err, &authErr) {
		return c.Render(http.StatusUnauthorized, "auth.html", authErr)
	}
	if err != nil {
		h.logger.WithFields(logrus.Fields{"run_id": opts.RunID, "error": err}).Error("triage run failed")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	total, successful := tally(results)
	return c.Render(http.StatusOK, "results.html", map[string]any{
		"RunID":      opts.RunID,
		"Results":    results,
		"Total":      total,
		"Successful": successful,
		"Failed":     total - successful,
		"DryRun":     opts.DryRun,
	})
}

type runRequest struct {
	Limit       int    `json:"limit"`
	FolderLabel string `json:"folder_label"`
	FolderID    string `json:"folder_id"`
	DryRun      bool   `json:"dry_run"`
}

type runSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type runResponse struct {
	RunID   string                    `json:"run_id"`
	Results []*model.ProcessingResult `json:"results"`
	Summary runSummary                `json:"summary"`
}

// RunAPI handles POST /api/run. A pending device-code sign-in yields 401
// with the verification details so API clients can surface them.
func (h *Handler) RunAPI(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	opts := service.RunOptions{
		Limit:       req.Limit,
		FolderLabel: req.FolderLabel,
		FolderID:    req.FolderID,
		DryRun:      req.DryRun,
		RunID:       uuid.New().String(),
	}

	results, err := h.runner.Run(c.Request().Context(), opts)
	var authErr *auth.RequiredError
	if errors.As(err, &authErr) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":            "authentication_required",
			"verification_uri": authErr.VerificationURI,
			"user_code":        authErr.UserCode,
			"message":          authErr.Message,
		})
	}
	if err != nil {
		h.logger.WithFields(logrus.Fields{"run_id": opts.RunID, "error": err}).Error("triage run failed")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	total, successful := tally(results)
	return c.JSON(http.StatusOK, runResponse{
		RunID:   opts.RunID,
		Results: results,
		Summary: runSummary{Total: total, Successful: successful, Failed: total - successful},
	})
}

func tally(results []*model.ProcessingResult) (total, successful int) {
	total = len(results)
	for _, result := range results {
		if result.Success {
			successful++
		}
	}
	return total, successful
}
