package main

import (
	"time"

	"github.com/nlouis56/vroume/internal/storage"
	"github.com/nlouis56/vroume/pkg/models"
)

// DefaultRunLimit caps GET /api/runs when no limit is given.
const DefaultRunLimit = 50

// RunDTO represents a stage run in API responses
type RunDTO struct {
	ID         string     `json:"id"`
	Stage      string     `json:"stage"`
	Input      string     `json:"input"`
	Output     string     `json:"output"`
	RowsIn     int        `json:"rows_in"`
	RowsOut    int        `json:"rows_out"`
	Removed    int        `json:"removed"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func runDTO(r storage.Run) RunDTO {
	return RunDTO{
		ID:         r.ID,
		Stage:      r.Stage,
		Input:      r.Input,
		Output:     r.Output,
		RowsIn:     r.RowsIn,
		RowsOut:    r.RowsOut,
		Removed:    r.Removed,
		Status:     r.Status,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// ListRunsResponse is the response for GET /api/runs
type ListRunsResponse struct {
	Runs  []RunDTO `json:"runs"`
	Count int      `json:"count"`
}

// CorrespondenceResponse is the response for GET /api/correspondence
type CorrespondenceResponse struct {
	Entries []models.CorrespondenceEntry `json:"entries"`
	Count   int                          `json:"count"`
}

// MetricsResponse summarizes the catalog
type MetricsResponse struct {
	Status         string         `json:"status"`
	DatabasePath   string         `json:"database_path"`
	Correspondence int            `json:"correspondence_count"`
	RunsByStage    map[string]int `json:"runs_by_stage"`
	FailedRuns     int            `json:"failed_runs"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
