package backend

import "context"

// Target identifies which dispatch path a backend invokes work items through.
type Target string

// Dispatch targets.
const (
	TargetHost   Target = "host"
	TargetDevice Target = "device"
)

// CompletionMode states when a launch is complete relative to Launch
// returning.
type CompletionMode string

// Completion contracts.
const (
	// CompletionSync backends return from Launch only after every item ran.
	CompletionSync CompletionMode = "sync"

	// CompletionAsync backends return from Launch immediately; completion is
	// observed through the returned Completion.
	CompletionAsync CompletionMode = "async"
)

// Body is invoked once for every item index of a launch.
type Body func(i int) error

// Backend is the interface that all execution contexts implement.
type Backend interface {
	// Launch invokes body once for each index in [0, n). Items run
	// independently and are never cancelled once dispatched. If ctx is
	// already done nothing is invoked and the completion carries ctx.Err().
	Launch(ctx context.Context, n int, body Body) *Completion

	// Capabilities reports the dispatch target and completion contract.
	Capabilities() Capabilities

	// Close waits for outstanding launches and releases the context.
	Close(ctx context.Context) error
}

// Capabilities describes an execution context.
type Capabilities struct {
	Name           string         `json:"name"`
	Target         Target         `json:"target"`
	Completion     CompletionMode `json:"completion"`
	MaxConcurrency int            `json:"max_concurrency"`

	// Ordered is true when items are invoked one at a time in index order.
	Ordered bool `json:"ordered"`
}
