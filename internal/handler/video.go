package handler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cutroom/api/internal/service"
	"github.com/cutroom/api/pkg/response"
)

const maxUploadSize = 2 * 1024 * 1024 * 1024 // 2GB

// validVideoTypes is the upload MIME whitelist.
var validVideoTypes = map[string]bool{
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/webm":       true,
	"video/x-msvideo":  true,
	"video/x-matroska": true,
}

type VideoHandler struct {
	media   *service.MediaService
	tempDir string
}

func NewVideoHandler(media *service.MediaService, tempDir string) *VideoHandler {
	return &VideoHandler{
		media:   media,
		tempDir: tempDir,
	}
}

// Upload handles POST /videos
func (h *VideoHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("video")
	if err != nil {
		return response.ValidationError(c, "Video file is required", nil)
	}
	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 2GB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}
	contentType := file.Header.Get("Content-Type")
	if !validVideoTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: MP4, MOV, WebM, AVI, MKV", map[string]interface{}{
			"contentType": contentType,
		})
	}

	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return response.ServiceError(c, "Failed to prepare upload directory")
	}
	tempPath := filepath.Join(h.tempDir, fmt.Sprintf("upload-%s%s", uuid.New().String(), filepath.Ext(file.Filename)))
	if err := c.SaveFile(file, tempPath); err != nil {
		return response.ServiceError(c, "Failed to save uploaded file")
	}

	video, err := h.media.SaveVideo(c.Context(), tempPath, file.Filename, contentType, file.Size)
	if err != nil {
		os.Remove(tempPath)
		return response.ServiceError(c, err.Error())
	}
	return response.Created(c, video)
}

// List handles GET /videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"videos": h.media.ListVideos(),
	})
}

// Get handles GET /videos/:id
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	video, err := h.media.GetVideo(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, video)
}

// Delete handles DELETE /videos/:id
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	if !h.media.DeleteVideo(c.Params("id")) {
		return response.NotFound(c, "Video not found")
	}
	return response.OK(c, fiber.Map{"success": true})
}

// Preview handles GET /preview/*
func (h *VideoHandler) Preview(c *fiber.Ctx) error {
	rel := c.Params("*")
	if rel == "" {
		return response.ValidationError(c, "File path is required", nil)
	}
	abs, err := h.media.PreviewPath(rel)
	if err != nil {
		return response.NotFound(c, "File not found")
	}
	if _, err := os.Stat(abs); err != nil {
		return response.NotFound(c, "File not found")
	}
	return c.SendFile(abs)
}
