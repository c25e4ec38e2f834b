package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/seantiz/warp/internal/model"
)

// autoRank orders backends for the "auto" policy: device targets for
// device-capable queues, then concurrent host contexts, then sequential ones.
// A negative rank means the backend cannot run the queue.
func autoRank(c Capabilities, deviceCapable bool) int {
	switch {
	case c.Target == TargetDevice && deviceCapable:
		return 0
	case c.Target == TargetDevice:
		return -1
	case c.MaxConcurrency > 1:
		return 1
	default:
		return 2
	}
}

// BackendInfo pairs a backend name with its capabilities.
type BackendInfo struct {
	Name         string       `json:"name"`
	Capabilities Capabilities `json:"capabilities"`
}

// Registry holds registered backends and resolves which one to use for a
// given execution policy.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

// Register adds a backend to the registry under the given name.
func (r *Registry) Register(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = b
}

// Resolve returns the backend to use for the given policy. A policy other
// than "auto" is a backend name. For "auto", backends are ranked by their
// capabilities, preferring device targets for device-capable queues; ties go
// to the lowest name.
func (r *Registry) Resolve(policy string, deviceCapable bool) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if policy != model.PolicyAuto {
		b, ok := r.backends[policy]
		if !ok {
			return nil, fmt.Errorf("backend %q is not registered", policy)
		}
		return b, nil
	}

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		best     Backend
		bestRank = -1
	)
	for _, name := range names {
		b := r.backends[name]
		rank := autoRank(b.Capabilities(), deviceCapable)
		if rank < 0 {
			continue
		}
		if best == nil || rank < bestRank {
			best, bestRank = b, rank
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no registered backend for auto routing (device capable: %v)", deviceCapable)
	}
	return best, nil
}

// List returns information about all registered backends, sorted by name
// for a stable API response.
func (r *Registry) List() []BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]BackendInfo, 0, len(r.backends))
	for name, b := range r.backends {
		infos = append(infos, BackendInfo{
			Name:         name,
			Capabilities: b.Capabilities(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Close closes every registered backend and returns the joined errors.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, b := range r.backends {
		if err := b.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close backend %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
