package e2e

import (
	"net/http"
	"testing"
)

func TestTranscribe_FreshThenCached(t *testing.T) {
	ta := setupApp(t)
	videoID := uploadVideo(t, ta)
	ta.runner.stdout = `{
		"segments": [{"id": 0, "start": 0.0, "end": 2.0, "text": "welcome back"}],
		"full_text": "welcome back",
		"language": "en"
	}`

	resp, err := doRequest(ta.app, http.MethodPost, "/transcribe", `{"videoId": "`+videoID+`"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if result["cached"] != false {
		t.Error("first call should not be cached")
	}

	resp, err = doRequest(ta.app, http.MethodPost, "/transcribe", `{"videoId": "`+videoID+`"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	result = parseJSON(t, resp)
	if result["cached"] != true {
		t.Error("second call should be cached")
	}
	if len(ta.runner.runCalls) != 1 {
		t.Errorf("cached call must not invoke the remote host, got %d calls", len(ta.runner.runCalls))
	}
}

func TestTranscribe_UnknownVideo(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/transcribe", `{"videoId": "missing"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestTranscribe_RemoteFailureSurfacesDiagnostics(t *testing.T) {
	ta := setupApp(t)
	videoID := uploadVideo(t, ta)
	ta.runner.stdout = `{"error": "no audio stream"}`

	resp, err := doRequest(ta.app, http.MethodPost, "/transcribe", `{"videoId": "`+videoID+`"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusInternalServerError)
	result := parseJSON(t, resp)
	errObj, _ := result["error"].(map[string]interface{})
	if errObj["code"] != "EXTERNAL_PROCESS_ERROR" {
		t.Errorf("expected EXTERNAL_PROCESS_ERROR, got %v", errObj["code"])
	}
	details, _ := errObj["details"].(map[string]interface{})
	if details["raw"] != "no audio stream" {
		t.Errorf("expected raw diagnostics, got %v", details)
	}
}

func TestAnalyze_ReturnsPreviewWithoutJob(t *testing.T) {
	ta := setupApp(t)
	videoID := uploadVideo(t, ta)
	ta.runner.stdout = `{"analysis": "trim the first 3 seconds", "params": {"trim": {"start": "00:00:03"}}}`

	resp, err := doRequest(ta.app, http.MethodPost, "/ai-analyze",
		`{"videoId": "`+videoID+`", "userPrompt": "tighten the intro"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	analysis, _ := result["analysis"].(map[string]interface{})
	if analysis["summary"] != "trim the first 3 seconds" {
		t.Errorf("unexpected summary %v", analysis["summary"])
	}

	// Preview must not create a job.
	resp, err = doRequest(ta.app, http.MethodGet, "/jobs", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	jobs := parseJSON(t, resp)["jobs"].([]interface{})
	if len(jobs) != 0 {
		t.Errorf("analyze must not create jobs, found %d", len(jobs))
	}
}

func TestAnalyze_MissingPrompt(t *testing.T) {
	ta := setupApp(t)
	videoID := uploadVideo(t, ta)

	resp, err := doRequest(ta.app, http.MethodPost, "/ai-analyze", `{"videoId": "`+videoID+`"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestAiProcess_CreatesSteppedJob(t *testing.T) {
	ta := setupApp(t)
	videoID := uploadVideo(t, ta)

	resp, err := doRequest(ta.app, http.MethodPost, "/ai-process",
		`{"videoId": "`+videoID+`", "userPrompt": "make a short"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	jobObj, _ := result["job"].(map[string]interface{})
	jobID, _ := jobObj["id"].(string)
	if jobID == "" {
		t.Fatalf("response missing job id: %v", result)
	}
	if len(ta.runner.startCalls) != 1 {
		t.Fatalf("expected remote trigger launch, got %d", len(ta.runner.startCalls))
	}

	resp, err = doRequest(ta.app, http.MethodGet, "/jobs/"+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	job := parseJSON(t, resp)
	steps, ok := job["steps"].([]interface{})
	if !ok || len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %v", job["steps"])
	}
	first, _ := steps[0].(map[string]interface{})
	if first["step"] != "transcription" || first["status"] != "pending" {
		t.Errorf("unexpected first step %v", first)
	}
}
