package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/safebite/handheld/internal/audio"
	"github.com/safebite/handheld/internal/clock"
	"github.com/safebite/handheld/internal/config"
	"github.com/safebite/handheld/internal/service"
)

func newTestServer(t *testing.T) (*Server, *service.DeviceService, *clock.Manual) {
	t.Helper()
	cfg := config.Default()
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	driver := audio.NewSyntheticDriver(cfg.Audio.ToneHz)
	driver.SetClock(clk)
	svc := service.New(cfg, driver, nil, nil, service.WithClock(clk))
	svc.Tick()

	s := New(svc, "", "0")
	s.listCaptureDevices = func() ([]string, error) { return []string{"USB Mic"}, nil }
	return s, svc, clk
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeGeneric(t *testing.T, w *httptest.ResponseRecorder) GenericResponse {
	t.Helper()
	var resp GenericResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestServer_Status(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/status")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if resp.Status != string(audio.StatusIdle) {
		t.Errorf("Expected IDLE, got %s", resp.Status)
	}
	if resp.Device.WifiMode != "OFFLINE" {
		t.Errorf("Expected OFFLINE wifi mode, got %s", resp.Device.WifiMode)
	}
	if resp.Config == nil || resp.Config.DurationSeconds != 6 {
		t.Errorf("Expected resolved config with 6s clip, got %+v", resp.Config)
	}
}

func TestServer_RecordAndCancel(t *testing.T) {
	s, svc, clk := newTestServer(t)

	w := do(t, s, http.MethodPost, "/record")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeGeneric(t, w); !resp.Success {
		t.Errorf("Expected success, got %+v", resp)
	}
	if svc.RecorderState() != audio.StatusRecording {
		t.Fatalf("Expected RECORDING, got %s", svc.RecorderState())
	}

	// A second start is a conflict.
	w = do(t, s, http.MethodPost, "/record")
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}

	clk.Advance(40 * time.Millisecond)
	svc.Tick()

	w = do(t, s, http.MethodGet, "/status")
	var status StatusResponse
	json.NewDecoder(w.Body).Decode(&status)
	if !strings.HasPrefix(status.Message, "Recording in progress") {
		t.Errorf("Expected progress message, got %q", status.Message)
	}

	w = do(t, s, http.MethodPost, "/cancel")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if svc.RecorderState() != audio.StatusIdle {
		t.Errorf("Expected IDLE after cancel, got %s", svc.RecorderState())
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/status"},
		{http.MethodGet, "/record"},
		{http.MethodGet, "/cancel"},
		{http.MethodGet, "/input"},
		{http.MethodDelete, "/sources"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := do(t, s, tt.method, tt.target)
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405, got %d", w.Code)
			}
			if resp := decodeGeneric(t, w); resp.Error != "Method not allowed" {
				t.Errorf("Expected method error, got %+v", resp)
			}
		})
	}
}

func TestServer_Input(t *testing.T) {
	s, svc, clk := newTestServer(t)

	w := do(t, s, http.MethodPost, "/input?button=a")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	clk.Advance(20 * time.Millisecond)
	svc.Tick()
	if svc.RecorderState() != audio.StatusRecording {
		t.Errorf("Expected queued A to start recording, got %s", svc.RecorderState())
	}

	w = do(t, s, http.MethodPost, "/input?button=jump")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown button, got %d", w.Code)
	}

	w = do(t, s, http.MethodPost, "/input?button=power")
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	clk.Advance(20 * time.Millisecond)
	svc.Tick()

	w = do(t, s, http.MethodPost, "/input?button=wake")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 once halted, got %d", w.Code)
	}
	w = do(t, s, http.MethodPost, "/record")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for record once halted, got %d", w.Code)
	}
}

func TestServer_Sources(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/sources")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp SourcesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode sources: %v", err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "USB Mic" {
		t.Errorf("Expected [USB Mic], got %v", resp.Sources)
	}
	if len(resp.Backends) != 2 {
		t.Errorf("Expected synthetic and malgo backends, got %v", resp.Backends)
	}

	s.listCaptureDevices = func() ([]string, error) { return nil, nil }
	w = do(t, s, http.MethodGet, "/sources")
	resp = SourcesResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Backends) != 1 || resp.Backends[0] != audio.BackendTypeSynthetic {
		t.Errorf("Expected only the synthetic backend without devices, got %v", resp.Backends)
	}

	s.listCaptureDevices = func() ([]string, error) { return nil, errors.New("no audio context") }
	w = do(t, s, http.MethodGet, "/sources")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestServer_Index(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/status") {
		t.Error("Expected endpoint list in index page")
	}

	w = do(t, s, http.MethodGet, "/recording.wav")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for the clip, got %d", w.Code)
	}
}

func TestGenerateStatusMessage(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name     string
		snap     service.Snapshot
		expected string
	}{
		{"idle", service.Snapshot{RecorderState: audio.StatusIdle}, ""},
		{"complete", service.Snapshot{RecorderState: audio.StatusComplete}, "Recording complete"},
		{"error with detail", service.Snapshot{RecorderState: audio.StatusError, LastError: "Mic gone"}, "Mic gone"},
		{"error", service.Snapshot{RecorderState: audio.StatusError}, "An error occurred during the operation"},
		{"halted", service.Snapshot{RecorderState: audio.StatusRecording, Halted: true}, "Device halted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.generateStatusMessage(tt.snap); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
