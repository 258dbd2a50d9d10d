package handler

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/service"
	"github.com/cutroom/api/pkg/response"
)

// CallbackHandler receives the remote pipeline's reports. These routes
// stay outside the auth middleware: the scripts hold no tokens.
type CallbackHandler struct {
	pipeline  *service.PipelineService
	validator *validator.Validate
}

func NewCallbackHandler(pipeline *service.PipelineService, v *validator.Validate) *CallbackHandler {
	return &CallbackHandler{
		pipeline:  pipeline,
		validator: v,
	}
}

// JobCallback handles POST /ai-callback
func (h *CallbackHandler) JobCallback(c *fiber.Ctx) error {
	var req model.JobCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	log.Printf("Job callback received: jobId=%s status=%s", req.JobID, req.Status)
	if _, err := h.pipeline.ApplyJobCallback(&req); err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"success": true})
}

// StepCallback handles POST /step-callback
func (h *CallbackHandler) StepCallback(c *fiber.Ctx) error {
	var req model.StepCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	if !model.ValidStepKind(req.Step) {
		return response.ValidationError(c, "Unknown step", map[string]interface{}{"step": req.Step})
	}

	log.Printf("Step callback received: jobId=%s step=%s status=%s", req.JobID, req.Step, req.Status)
	if _, err := h.pipeline.ApplyStepCallback(&req); err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"success": true})
}
