package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alainbuyze/outlook-categorizer/internal/auth"
	"github.com/alainbuyze/outlook-categorizer/internal/config"
	"github.com/alainbuyze/outlook-categorizer/internal/model"
	"github.com/alainbuyze/outlook-categorizer/internal/service"
)

type stubRunner struct {
	lastOpts service.RunOptions
	results  []*model.ProcessingResult
	err      error
}

func (s *stubRunner) Run(_ context.Context, opts service.RunOptions) ([]*model.ProcessingResult, error) {
	s.lastOpts = opts
	return s.results, s.err
}

func newTestHandler(runner *stubRunner) *Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(&config.Config{BatchSize: 10}, runner, log)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Renderer = NewRenderer()
	return e
}

func sampleResults() []*model.ProcessingResult {
	return []*model.ProcessingResult{
		{
			EmailID:          "m1",
			Subject:          "Order confirmation",
			Sender:           "noreply@shop.example",
			ReceivedDateTime: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			Category:         model.CategoryReceipt,
			FolderID:         "f-receipt",
			Success:          true,
		},
		{
			EmailID:  "m2",
			Subject:  "Broken one",
			Category: model.CategoryOther,
			Error:    "failed to move message",
		},
	}
}

func TestHealth(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h := newTestHandler(&stubRunner{})
	require.NoError(t, h.Health(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestIndex(t *testing.T) {
	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h := newTestHandler(&stubRunner{})
	require.NoError(t, h.Index(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Outlook Categorizer")
	assert.Contains(t, rec.Body.String(), model.CategoryReceipt)
}

func TestRunAPI(t *testing.T) {
	t.Run("returns results and summary", func(t *testing.T) {
		runner := &stubRunner{results: sampleResults()}
		h := newTestHandler(runner)

		e := newEcho()
		req := httptest.NewRequest(http.MethodPost, "/api/run",
			strings.NewReader(`{"limit": 5, "folder_label": "Inbox", "dry_run": true}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		require.NoError(t, h.RunAPI(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, 5, runner.lastOpts.Limit)
		assert.Equal(t, "Inbox", runner.lastOpts.FolderLabel)
		assert.True(t, runner.lastOpts.DryRun)
		assert.NotEmpty(t, runner.lastOpts.RunID)

		var resp struct {
			RunID   string `json:"run_id"`
			Results []any  `json:"results"`
			Summary struct {
				Total      int `json:"total"`
				Successful int `json:"successful"`
				Failed     int `json:"failed"`
			} `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.RunID)
		assert.Len(t, resp.Results, 2)
		assert.Equal(t, 2, resp.Summary.Total)
		assert.Equal(t, 1, resp.Summary.Successful)
		assert.Equal(t, 1, resp.Summary.Failed)
	})

	t.Run("pending sign-in yields 401 with device code", func(t *testing.T) {
		runner := &stubRunner{err: &auth.RequiredError{
			VerificationURI: "https://microsoft.com/devicelogin",
			UserCode:        "ABCD-1234",
			Message:         "visit the verification URI",
		}}
		h := newTestHandler(runner)

		e := newEcho()
		req := httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		require.NoError(t, h.RunAPI(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "authentication_required", resp["error"])
		assert.Equal(t, "ABCD-1234", resp["user_code"])
		assert.Equal(t, "https://microsoft.com/devicelogin", resp["verification_uri"])
	})

	t.Run("other errors become 500", func(t *testing.T) {
		runner := &stubRunner{err: fmt.Errorf("folder label \"Nope\" not found")}
		h := newTestHandler(runner)

		e := newEcho()
		req := httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		err := h.RunAPI(e.NewContext(req, rec))
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
	})
}

func TestRunForm(t *testing.T) {
	t.Run("renders the result table", func(t *testing.T) {
		runner := &stubRunner{results: sampleResults()}
		h := newTestHandler(runner)

		e := newEcho()
		form := strings.NewReader("limit=3&folder_label=&dry_run=true")
		req := httptest.NewRequest(http.MethodPost, "/run", form)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()

		require.NoError(t, h.RunForm(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Order confirmation")
		assert.Contains(t, rec.Body.String(), "dry run")
		assert.True(t, runner.lastOpts.DryRun)
		assert.Equal(t, 3, runner.lastOpts.Limit)
	})

	t.Run("renders the sign-in page when auth is pending", func(t *testing.T) {
		runner := &stubRunner{err: &auth.RequiredError{
			VerificationURI: "https://microsoft.com/devicelogin",
			UserCode:        "ABCD-1234",
			Message:         "sign in first",
		}}
		h := newTestHandler(runner)

		e := newEcho()
		req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader("limit=3"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()

		require.NoError(t, h.RunForm(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "ABCD-1234")
	})
}
