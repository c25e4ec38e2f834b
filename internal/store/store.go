package store

import (
	"context"
	"errors"

	"github.com/seantiz/warp/internal/model"
)

// ErrInvalidTransition is returned when a run status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// RunStats holds aggregate run statistics.
type RunStats struct {
	Total          int            `json:"total"`
	CountByStatus  map[string]int `json:"count_by_status"`
	CountByBackend map[string]int `json:"count_by_backend"`
	AvgDurationMS  float64        `json:"avg_duration_ms"`
	TotalItems     int64          `json:"total_items"`
}

// Store defines the persistence operations for runs.
type Store interface {
	CreateRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error)
	UpdateRunStatus(ctx context.Context, id, status string) error
	UpdateRun(ctx context.Context, r *model.Run) error
	GetRunStats(ctx context.Context) (*RunStats, error)
	InsertEvent(ctx context.Context, runID string, seq int, message string) error
	GetEvents(ctx context.Context, runID string) ([]model.RunEvent, error)
	Close() error
}
