package handler

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/service"
	"github.com/cutroom/api/pkg/response"
)

type JobHandler struct {
	process   *service.ProcessService
	validator *validator.Validate
}

func NewJobHandler(process *service.ProcessService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		process:   process,
		validator: v,
	}
}

// Create handles POST /process
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.process.CreateJob(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Accepted(c, fiber.Map{
		"success": true,
		"job": model.JobCreatedResponse{
			ID:       job.ID,
			Status:   job.Status,
			Progress: job.Progress,
			Message:  "Processing started",
		},
	})
}

// List handles GET /jobs
func (h *JobHandler) List(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"jobs": h.process.ListJobs(),
	})
}

// Get handles GET /jobs/:id
func (h *JobHandler) Get(c *fiber.Ctx) error {
	job, err := h.process.GetJob(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, job)
}

// Delete handles DELETE /jobs/:id
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	if !h.process.DeleteJob(c.Context(), c.Params("id")) {
		return response.NotFound(c, "Job not found")
	}
	return response.OK(c, fiber.Map{"success": true})
}

// Download handles GET /download/:jobId
func (h *JobHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	path, err := h.process.DownloadPath(jobID)
	if err != nil {
		return serviceError(c, err)
	}
	if _, err := os.Stat(path); err != nil {
		return response.NotFound(c, "Output file not found")
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.mp4"`, jobID))
	return c.SendFile(path)
}
