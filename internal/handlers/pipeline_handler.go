package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"insurance-etl/internal/services"
	"insurance-etl/internal/utils"
	"insurance-etl/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type PipelineHandler struct {
	pipelineService *services.PipelineService
	pool            *worker.WorkingPool
}

func NewPipelineHandler(pipelineService *services.PipelineService, pool *worker.WorkingPool) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		pool:            pool,
	}
}

func (ph *PipelineHandler) Register(app *fiber.App) {
	runGroup := app.Group("etl/api/v1/runs")
	runGroup.Post("/", ph.StartRun)
	runGroup.Get("/:id", ph.GetRun)
	runGroup.Post("/:id/retry", ph.RetryRun)
}

// StartRun registers a run and queues it on the worker pool. The response
// returns immediately with the run ID; progress is polled via GetRun.
func (ph *PipelineHandler) StartRun(c fiber.Ctx) error {
	summary, err := ph.pipelineService.StartRun(c.Context())
	if err != nil {
		slog.Error("error registering pipeline run", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(utils.CreateErrorResponse("RUN_REGISTER_FAILED", err.Error()))
	}

	runID := summary.RunID
	if err := ph.pool.SubmitJob(func(ctx context.Context) error {
		return ph.pipelineService.Run(ctx, runID)
	}); err != nil {
		slog.Error("error queueing pipeline run", "run_id", runID, "error", err)
		return c.Status(http.StatusServiceUnavailable).JSON(utils.CreateErrorResponse("RUN_QUEUE_FULL", err.Error()))
	}

	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(summary))
}

func (ph *PipelineHandler) GetRun(c fiber.Ctx) error {
	idParam := c.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_ID", "Invalid UUID format"))
	}

	summary, ok, err := ph.pipelineService.GetRun(c.Context(), id)
	if err != nil {
		slog.Error("error loading pipeline run", "run_id", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(utils.CreateErrorResponse("RUN_FETCH_FAILED", err.Error()))
	}
	if !ok {
		return c.Status(http.StatusNotFound).JSON(utils.CreateErrorResponse("NOT_FOUND", "Run not found"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(summary))
}

// RetryRun requeues an existing run. A run with a staged cleaning
// checkpoint resumes from the cleaned dataset instead of reprocessing raw
// files.
func (ph *PipelineHandler) RetryRun(c fiber.Ctx) error {
	idParam := c.Params("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_ID", "Invalid UUID format"))
	}

	summary, ok, err := ph.pipelineService.GetRun(c.Context(), id)
	if err != nil {
		slog.Error("error loading pipeline run", "run_id", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(utils.CreateErrorResponse("RUN_FETCH_FAILED", err.Error()))
	}
	if !ok {
		return c.Status(http.StatusNotFound).JSON(utils.CreateErrorResponse("NOT_FOUND", "Run not found"))
	}

	if err := ph.pool.SubmitJob(func(ctx context.Context) error {
		return ph.pipelineService.Run(ctx, id)
	}); err != nil {
		slog.Error("error queueing pipeline run", "run_id", id, "error", err)
		return c.Status(http.StatusServiceUnavailable).JSON(utils.CreateErrorResponse("RUN_QUEUE_FULL", err.Error()))
	}

	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(summary))
}
