package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cutroom/api/internal/service"
	"github.com/cutroom/api/pkg/response"
)

// formatValidationErrors converts validator errors into a field->tag map
// for the error envelope's details.
func formatValidationErrors(err error) map[string]string {
	details := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details[e.Field()] = e.Tag()
		}
	}
	return details
}

// serviceError maps the shared service sentinels and external-tool
// failures onto the response envelope.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrVideoNotFound):
		return response.NotFound(c, "Video not found")
	case errors.Is(err, service.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, service.ErrJobNotReady):
		return response.NotReady(c, "Job is not completed yet")
	case errors.Is(err, service.ErrRemoteUnavailable):
		return response.ServiceError(c, "Remote pipeline host is not configured")
	}
	var external *service.ExternalError
	if errors.As(err, &external) {
		return response.ExternalProcessError(c, external.Op, external.Raw)
	}
	return response.ServiceError(c, err.Error())
}
