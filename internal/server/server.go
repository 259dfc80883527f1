package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/safebite/handheld/internal/audio"
	"github.com/safebite/handheld/internal/config"
	"github.com/safebite/handheld/internal/service"
)

// Server exposes the device status and remote buttons over HTTP. The
// recorded clip itself is never served.
type Server struct {
	service    service.Service
	cfg        *config.Config
	configFile string
	port       string

	// listCaptureDevices is swapped in tests.
	listCaptureDevices func() ([]string, error)
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Status        string              `json:"status"`
	Message       string              `json:"message,omitempty"`
	Device        service.Snapshot    `json:"device"`
	Config        *ResolvedConfigInfo `json:"resolved_config"`
	ActiveProfile string              `json:"active_profile"`
}

// ResolvedConfigInfo contains configuration information for the UI
type ResolvedConfigInfo struct {
	Driver          string `json:"driver"`
	SampleRate      int    `json:"sample_rate"`
	DurationSeconds int    `json:"duration_seconds"`
	ChunkSamples    int    `json:"chunk_samples"`
	Gain            int    `json:"gain"`
	SSID            string `json:"ssid,omitempty"`
}

// SourcesResponse lists capture devices
type SourcesResponse struct {
	Sources  []string            `json:"sources"`
	Backends []audio.BackendType `json:"backends"`
}

// GenericResponse is returned by the control endpoints
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New creates a new web server instance
func New(svc service.Service, configFile string, port string) *Server {
	return &Server{
		service:            svc,
		cfg:                svc.GetConfig(),
		configFile:         configFile,
		port:               port,
		listCaptureDevices: audio.ListCaptureDevices,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/record", s.handleRecord)
	mux.HandleFunc("/cancel", s.handleCancel)
	mux.HandleFunc("/input", s.handleInput)
	mux.HandleFunc("/config/profiles", s.handleProfiles)
	mux.HandleFunc("/sources", s.handleSources)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Get local IP address
	localIP := getLocalIP()

	slog.Info("Starting web server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleIndex serves a minimal landing page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(getDefaultHTML()))
}

// getDefaultHTML lists the API endpoints
func getDefaultHTML() string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SafeBite</title>
</head>
<body>
    <h1>SafeBite handheld</h1>
    <h2>API Endpoints:</h2>
    <ul>
        <li>GET /status - Device status</li>
        <li>POST /record - Start recording</li>
        <li>POST /cancel - Cancel recording</li>
        <li>POST /input?button=A|B|POWER|WAKE - Press a button</li>
        <li>GET /config/profiles - List profiles</li>
        <li>GET /sources - List capture devices</li>
    </ul>
</body>
</html>`
}

// handleStatus returns the last published device snapshot
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	snap := s.service.Snapshot()
	response := StatusResponse{
		Status:        string(snap.RecorderState),
		Message:       s.generateStatusMessage(snap),
		Device:        snap,
		Config:        s.getResolvedConfigInfo(),
		ActiveProfile: s.activeProfile(),
	}
	s.sendJSON(w, http.StatusOK, response)
}

// handleRecord starts a new recording
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.service.StartRecording(); err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, audio.ErrAlreadyRecording) {
			statusCode = http.StatusConflict
		} else if errors.Is(err, service.ErrHalted) {
			statusCode = http.StatusServiceUnavailable
		}
		s.sendErrorResponse(w, statusCode,
			fmt.Sprintf("Failed to start recording: %v", err),
			"operation", "start_recording")
		return
	}

	s.sendJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Recording started"})
}

// handleCancel cancels a running recording
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	s.service.CancelRecording()
	s.sendJSON(w, http.StatusOK, GenericResponse{Success: true, Message: "Recording cancelled"})
}

// handleInput queues a button press for the next tick
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Invalid form data", "operation", "input")
		return
	}

	in, err := service.ParseInput(r.FormValue("button"))
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error(), "operation", "input")
		return
	}

	if err := s.service.Submit(in); err != nil {
		statusCode := http.StatusServiceUnavailable
		if errors.Is(err, service.ErrQueueFull) {
			statusCode = http.StatusTooManyRequests
		}
		s.sendErrorResponse(w, statusCode, fmt.Sprintf("Input rejected: %v", err), "operation", "input", "button", in)
		return
	}

	s.sendJSON(w, http.StatusAccepted, GenericResponse{Success: true, Message: fmt.Sprintf("Button %s queued", in)})
}

// handleProfiles returns available configuration profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	profiles, err := config.ListProfiles(s.configFile)
	if err != nil {
		profiles = []string{}
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"active":   s.activeProfile(),
	})
}

// handleSources lists capture devices and sampling backends
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	sources, err := s.listCaptureDevices()
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list capture devices: %v", err),
			"operation", "list_sources")
		return
	}

	s.sendJSON(w, http.StatusOK, SourcesResponse{Sources: sources, Backends: audio.BackendsFor(sources)})
}

func (s *Server) getResolvedConfigInfo() *ResolvedConfigInfo {
	return &ResolvedConfigInfo{
		Driver:          s.cfg.Audio.Driver,
		SampleRate:      s.cfg.Audio.SampleRate,
		DurationSeconds: s.cfg.Audio.DurationSeconds(),
		ChunkSamples:    s.cfg.Audio.ChunkSamples,
		Gain:            s.cfg.Audio.Gain,
		SSID:            s.cfg.Wifi.SSID,
	}
}

func (s *Server) activeProfile() string {
	if s.cfg.Inheritance != nil {
		return s.cfg.Inheritance.Profile
	}
	return ""
}

func (s *Server) generateStatusMessage(snap service.Snapshot) string {
	if snap.Halted {
		return "Device halted"
	}
	switch snap.RecorderState {
	case audio.StatusRecording:
		return fmt.Sprintf("Recording in progress - %.0f%%", snap.Progress*100)
	case audio.StatusComplete:
		return "Recording complete"
	case audio.StatusError:
		// Get detailed error information from service
		if snap.LastError != "" {
			return snap.LastError
		}
		return "An error occurred during the operation"
	default:
		return ""
	}
}

func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	s.sendJSON(w, http.StatusMethodNotAllowed, GenericResponse{Error: "Method not allowed"})
	return false
}

func (s *Server) sendJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	// Log the error with structured context
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	s.sendJSON(w, statusCode, GenericResponse{Success: false, Error: errorMsg})
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
