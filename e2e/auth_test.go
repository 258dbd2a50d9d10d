package e2e

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cutroom/api/internal/auth"
	"github.com/cutroom/api/internal/middleware"
)

const testJWTSecret = "e2e-secret"

func setupAuthedApp() *fiber.App {
	app := fiber.New()
	authMW := middleware.NewAuthMiddleware(testJWTSecret)
	app.Use(authMW.Authenticate())
	app.Get("/jobs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": middleware.GetUserID(c)})
	})
	return app
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	app := setupAuthedApp()

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAuthRejectsBadToken(t *testing.T) {
	app := setupAuthedApp()

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAuthAcceptsSignedToken(t *testing.T) {
	app := setupAuthedApp()

	token, err := auth.GenerateToken("user-1", "dev@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["user"] != "user-1" {
		t.Errorf("expected user-1 in context, got %v", result["user"])
	}
}
