// Package web provides the HTTP handlers and REST endpoints for
// running tickets and inspecting archived runs.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/persistence"
	"github.com/caseflowhq/caseflow/pkg/registry"
	"github.com/caseflowhq/caseflow/pkg/workflow"
)

type APIHandlers struct {
	engine    *workflow.Engine
	archive   persistence.Archive
	registry  *registry.Registry
	validator *validator.Validate
}

func NewAPIHandlers(
	engine *workflow.Engine,
	archive persistence.Archive,
	registry *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:    engine,
		archive:   archive,
		registry:  registry,
		validator: validator,
	}
}

// RunTicket executes one ticket through the full pipeline
// synchronously and returns the final payload. Aborted runs are
// archived before the error response goes out.
func (h *APIHandlers) RunTicket(c fiber.Ctx) error {
	var req RunTicketRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record := models.InputRecord{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Query:        req.Query,
		Priority:     req.Priority,
		TicketID:     req.TicketID,
	}

	payload, err := h.engine.Execute(c.Context(), record)
	if err != nil {
		h.archiveAborted(c, err)

		return handleRunError(c, err)
	}

	if h.archive != nil {
		runRecord := persistence.NewCompletedRecord(payload.RunID, payload)
		if err := h.archive.SaveRun(c.Context(), runRecord); err != nil {
			return internalError(c, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(payload)
}

func (h *APIHandlers) archiveAborted(c fiber.Ctx, err error) {
	if h.archive == nil {
		return
	}

	var runErr *workflow.RunError
	if !errors.As(err, &runErr) {
		return
	}

	record := persistence.NewAbortedRecord(
		runErr.State,
		workflow.StatusForError(runErr.Err),
		runErr.Stage,
		runErr.Err.Error(),
	)

	// Archiving is best effort here; the abort response matters more.
	_ = h.archive.SaveRun(c.Context(), record)
}

// GetRuns lists archived runs, newest first.
func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	records, err := h.archive.Runs(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":        records,
		"total_count": len(records),
	})
}

// GetRun returns one archived run by ID.
func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	record, err := h.archive.RunByID(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(record)
}

// GetPipeline returns the stage table the engine runs.
func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stages": h.engine.Pipeline(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	archiveOk := true

	var archiveCheck string

	if h.archive != nil {
		if err := h.archive.HealthCheck(c.Context()); err != nil {
			archiveOk = false
			archiveCheck = err.Error()
		} else {
			archiveCheck = "ok"
		}
	} else {
		archiveCheck = "disabled"
	}

	status := "unhealthy"
	message := "Caseflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && archiveOk {
		status = "healthy"
		message = "Caseflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"archive":  archiveCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
