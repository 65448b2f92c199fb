package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nlouis56/vroume/internal/service"
	"github.com/nlouis56/vroume/internal/storage"
	"github.com/nlouis56/vroume/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service *service.Service
	config  *ServerConfig
	log     *logger.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
}

func NewServer(svc *service.Service, config *ServerConfig) *Server {
	return &Server{
		service: svc,
		config:  config,
		log:     logger.GetLogger(),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "vroume catalog API",
		"endpoints": map[string]string{
			"health":         "GET /health",
			"metrics":        "GET /api/health/metrics",
			"runs":           "GET /api/runs?stage=<stage>&limit=<n>",
			"correspondence": "GET /api/correspondence?genre=<genre>",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Correspondence("")
	if err != nil {
		s.log.Errorf("Failed to count correspondence: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}
	runs, err := s.service.Runs("", 0)
	if err != nil {
		s.log.Errorf("Failed to list runs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	resp := MetricsResponse{
		Status:         "healthy",
		DatabasePath:   s.config.DBPath,
		Correspondence: len(entries),
		RunsByStage:    make(map[string]int),
	}
	for _, run := range runs {
		resp.RunsByStage[run.Stage]++
		if run.Status == storage.StatusFailed {
			resp.FailedRuns++
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleListRuns handles GET /api/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.service.Runs(r.URL.Query().Get("stage"), limit)
	if err != nil {
		s.log.Errorf("Failed to list runs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	resp := ListRunsResponse{Runs: make([]RunDTO, len(runs)), Count: len(runs)}
	for i, run := range runs {
		resp.Runs[i] = runDTO(run)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleCorrespondence handles GET /api/correspondence
func (s *Server) handleCorrespondence(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Correspondence(r.URL.Query().Get("genre"))
	if err != nil {
		s.log.Errorf("Failed to list correspondence: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve correspondence")
		return
	}
	s.respondJSON(w, http.StatusOK, CorrespondenceResponse{Entries: entries, Count: len(entries)})
}
