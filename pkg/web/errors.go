package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/provider"
	"github.com/caseflowhq/caseflow/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleRunError maps run failures onto problem responses: rejected
// input is the caller's fault, provider failures are an upstream
// fault, and cancellation means the run never finished.
func handleRunError(c fiber.Ctx, err error) error {
	switch {
	case models.IsValidationError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case workflow.IsCancelled(err):
		problem := problems.NewStatusProblem(503).
			WithInstance(c.Path()).
			WithType("run_cancelled").
			WithDetail(err.Error())

		return c.Status(fiber.StatusServiceUnavailable).JSON(problem)

	case provider.IsProviderError(err):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("provider_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		return internalError(c, err)
	}
}
