package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caseflowhq/caseflow/pkg/dispatch"
	"github.com/caseflowhq/caseflow/pkg/mocks"
	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/persistence"
	"github.com/caseflowhq/caseflow/pkg/persistence/file"
	"github.com/caseflowhq/caseflow/pkg/providers/canned"
	"github.com/caseflowhq/caseflow/pkg/providers/internalstate"
	"github.com/caseflowhq/caseflow/pkg/registry"
	"github.com/caseflowhq/caseflow/pkg/web"
	"github.com/caseflowhq/caseflow/pkg/workflow"
)

func setupTestApp(t *testing.T) (*fiber.App, persistence.Archive) {
	t.Helper()

	archive := file.NewArchive(t.TempDir())

	return setupTestAppWithArchive(t, archive), archive
}

func setupTestAppWithArchive(t *testing.T, archive persistence.Archive) *fiber.App {
	t.Helper()

	logger := slog.Default()

	reg := registry.NewRegistry(logger)
	reg.RegisterProvider(canned.NewProvider(models.ProviderCommon, canned.CommonResponses()))
	reg.RegisterProvider(canned.NewProvider(models.ProviderAtlas, canned.AtlasResponses()))
	reg.RegisterProvider(internalstate.NewProvider(logger))

	dispatcher := dispatch.NewDispatcher(reg, logger)
	executor := workflow.NewStageExecutor(dispatcher, logger)

	engine, err := workflow.NewEngine(reg, executor, logger)
	require.NoError(t, err)

	handlers := web.NewAPIHandlers(engine, archive, reg, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	r := app.Group("/runs")
	r.Post("/", handlers.RunTicket)
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)

	app.Get("/pipeline", handlers.GetPipeline)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestRunTicket_CompletesAndArchives(t *testing.T) {
	t.Parallel()

	app, archive := setupTestApp(t)

	resp := postJSON(t, app, "/runs/", web.RunTicketRequest{
		CustomerName: "John Doe",
		Email:        "john@example.com",
		Query:        "I was charged twice",
		Priority:     "high",
		TicketID:     "TKT-1",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload models.FinalPayload
	decodeBody(t, resp, &payload)

	assert.Equal(t, "TKT-1", payload.TicketID)
	assert.Equal(t, 11, payload.Processing.StagesCompleted)
	assert.Equal(t, models.RunStatusCompleted, payload.Processing.Status)

	archived, err := archive.RunByID(t.Context(), payload.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, archived.Status)
}

func TestRunTicket_QueryOnlyFillsDefaults(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	// Only the query is mandatory; name, email, priority and ticket id
	// all have engine-side defaults.
	resp := postJSON(t, app, "/runs/", web.RunTicketRequest{Query: "reset my password"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload models.FinalPayload
	decodeBody(t, resp, &payload)

	assert.True(t, strings.HasPrefix(payload.TicketID, "TKT-"))
	assert.Equal(t, models.DefaultPriority, payload.Request.Priority)
}

func TestRunTicket_RejectsInvalidBody(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	tests := []struct {
		name string
		body web.RunTicketRequest
	}{
		{
			name: "missing query",
			body: web.RunTicketRequest{CustomerName: "Jane", Email: "jane@example.com"},
		},
		{
			name: "bad email",
			body: web.RunTicketRequest{CustomerName: "Jane", Email: "not-an-email", Query: "help"},
		},
		{
			name: "bad priority",
			body: web.RunTicketRequest{CustomerName: "Jane", Email: "jane@example.com", Query: "help", Priority: "urgent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := postJSON(t, app, "/runs/", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/run-missing", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRuns_ListsArchivedRuns(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/runs/", web.RunTicketRequest{
		CustomerName: "Jane",
		Email:        "jane@example.com",
		Query:        "help me",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/runs/", nil)

	listResp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var listing struct {
		Runs       []json.RawMessage `json:"runs"`
		TotalCount int               `json:"total_count"`
	}
	decodeBody(t, listResp, &listing)

	assert.Equal(t, 1, listing.TotalCount)
	assert.Len(t, listing.Runs, 1)
}

func TestGetPipeline(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/pipeline", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Stages []models.StageDefinition `json:"stages"`
	}
	decodeBody(t, resp, &body)

	assert.Len(t, body.Stages, 11)
	assert.Equal(t, models.StageIntake, body.Stages[0].Name)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}

func TestRunTicket_ArchiveWriteFailure(t *testing.T) {
	t.Parallel()

	archive := &mocks.MockArchive{}
	archive.On("SaveRun", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	app := setupTestAppWithArchive(t, archive)

	resp := postJSON(t, app, "/runs/", web.RunTicketRequest{Query: "help me"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	archive.AssertExpectations(t)
}

func TestGetRuns_ArchiveFailure(t *testing.T) {
	t.Parallel()

	archive := &mocks.MockArchive{}
	archive.On("Runs", mock.Anything).Return(nil, errors.New("connection reset"))

	app := setupTestAppWithArchive(t, archive)

	req := httptest.NewRequest(http.MethodGet, "/runs/", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	archive.AssertExpectations(t)
}

func TestHealthCheck_UnhealthyArchive(t *testing.T) {
	t.Parallel()

	archive := &mocks.MockArchive{}
	archive.On("HealthCheck", mock.Anything).Return(errors.New("archive unreachable"))

	app := setupTestAppWithArchive(t, archive)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "unhealthy", body.Status)
}
