package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/service"
	"github.com/cutroom/api/pkg/response"
)

type AiHandler struct {
	ai        *service.AiService
	pipeline  *service.PipelineService
	validator *validator.Validate
}

func NewAiHandler(ai *service.AiService, pipeline *service.PipelineService, v *validator.Validate) *AiHandler {
	return &AiHandler{
		ai:        ai,
		pipeline:  pipeline,
		validator: v,
	}
}

// Transcribe handles POST /transcribe
func (h *AiHandler) Transcribe(c *fiber.Ctx) error {
	var req model.TranscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.ai.Transcribe(c.Context(), req.VideoID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Analyze handles POST /ai-analyze
func (h *AiHandler) Analyze(c *fiber.Ctx) error {
	var req model.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.ai.Analyze(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// Process handles POST /ai-process
func (h *AiHandler) Process(c *fiber.Ctx) error {
	var req model.AiProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.pipeline.CreateAiJob(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Accepted(c, fiber.Map{
		"success": true,
		"job": model.JobCreatedResponse{
			ID:       job.ID,
			Status:   job.Status,
			Progress: job.Progress,
			Message:  "AI processing started",
		},
	})
}
