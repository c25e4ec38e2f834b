package model

import "time"

// Run status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Execution policy constants. A policy names the backend a run is launched
// on; PolicyAuto lets the registry choose from the queue's capabilities.
const (
	PolicySequential = "seq"
	PolicyParallel   = "parallel"
	PolicyDevice     = "device"
	PolicyAuto       = "auto"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether no further transition is possible from status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// RunEvent is a single persisted progress event of a run.
type RunEvent struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is one launch of a work queue on a backend.
type Run struct {
	ID           string     `json:"id"`
	QueueID      string     `json:"queue_id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	Policy       string     `json:"policy"`
	Backend      string     `json:"backend,omitempty"`
	Items        int        `json:"items"`
	StorageBytes int64      `json:"storage_bytes"`
	Error        string     `json:"error,omitempty"`
	TimeoutS     *int       `json:"timeout_s,omitempty"`
	DurationMS   *int       `json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
