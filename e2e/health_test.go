package e2e

import (
	"net/http"
	"testing"
)

func TestHealthReportsServices(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "ok" {
		t.Errorf("expected status ok, got %v", result["status"])
	}
	services, ok := result["services"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected services map, got %v", result["services"])
	}
	if services["remote"] != true {
		t.Errorf("expected remote true, got %v", services["remote"])
	}
	if services["r2"] != false {
		t.Errorf("expected r2 false, got %v", services["r2"])
	}
	if services["auth"] != false {
		t.Errorf("expected auth false, got %v", services["auth"])
	}
}
