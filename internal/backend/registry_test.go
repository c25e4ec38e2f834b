package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seantiz/warp/internal/backend"
	"github.com/seantiz/warp/internal/model"
)

// stubBackend is a minimal Backend for registry tests.
type stubBackend struct {
	name     string
	target   backend.Target
	workers  int
	closeErr error
	closed   bool
}

func (s *stubBackend) Launch(_ context.Context, n int, _ backend.Body) *backend.Completion {
	return backend.Completed(n, nil)
}

func (s *stubBackend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Name:           s.name,
		Target:         s.target,
		Completion:     backend.CompletionSync,
		MaxConcurrency: max(s.workers, 1),
	}
}

func (s *stubBackend) Close(_ context.Context) error {
	s.closed = true
	return s.closeErr
}

// Compile-time check that stubBackend satisfies the Backend interface.
var _ backend.Backend = (*stubBackend)(nil)

func TestRegistryRegisterAndList(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(model.PolicySequential, &stubBackend{name: "seq", target: backend.TargetHost})
	reg.Register(model.PolicyDevice, &stubBackend{name: "device", target: backend.TargetDevice})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d backends, want 2", len(list))
	}
	if list[0].Name != model.PolicyDevice || list[1].Name != model.PolicySequential {
		t.Errorf("List() not sorted by name: %v", list)
	}
	if list[0].Capabilities.Target != backend.TargetDevice {
		t.Errorf("device target = %q, want %q", list[0].Capabilities.Target, backend.TargetDevice)
	}
}

func TestRegistryResolveExplicit(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(model.PolicyParallel, &stubBackend{name: "pool", target: backend.TargetHost})

	b, err := reg.Resolve(model.PolicyParallel, false)
	if err != nil {
		t.Fatalf("Resolve explicit: %v", err)
	}
	if b.Capabilities().Name != "pool" {
		t.Errorf("resolved backend name = %q, want %q", b.Capabilities().Name, "pool")
	}
}

func TestRegistryResolveExplicitNotRegistered(t *testing.T) {
	reg := backend.NewRegistry()

	if _, err := reg.Resolve(model.PolicyDevice, true); err == nil {
		t.Error("expected error for unregistered backend, got nil")
	}
}

func TestRegistryResolveAuto(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(model.PolicySequential, &stubBackend{name: "seq", target: backend.TargetHost})
	reg.Register(model.PolicyParallel, &stubBackend{name: "pool", target: backend.TargetHost, workers: 4})
	reg.Register(model.PolicyDevice, &stubBackend{name: "device", target: backend.TargetDevice})

	tests := []struct {
		deviceCapable bool
		expectedName  string
	}{
		{true, "device"},
		{false, "pool"},
	}

	for _, tc := range tests {
		b, err := reg.Resolve(model.PolicyAuto, tc.deviceCapable)
		if err != nil {
			t.Errorf("Resolve(auto, %v): %v", tc.deviceCapable, err)
			continue
		}
		if b.Capabilities().Name != tc.expectedName {
			t.Errorf("Resolve(auto, %v) = %q, want %q", tc.deviceCapable, b.Capabilities().Name, tc.expectedName)
		}
	}
}

func TestRegistryResolveAutoFallsBack(t *testing.T) {
	reg := backend.NewRegistry()
	// Only the sequential backend is available.
	reg.Register(model.PolicySequential, &stubBackend{name: "seq", target: backend.TargetHost})

	for _, deviceCapable := range []bool{true, false} {
		b, err := reg.Resolve(model.PolicyAuto, deviceCapable)
		if err != nil {
			t.Fatalf("Resolve(auto, %v): %v", deviceCapable, err)
		}
		if b.Capabilities().Name != "seq" {
			t.Errorf("Resolve(auto, %v) = %q, want seq", deviceCapable, b.Capabilities().Name)
		}
	}
}

func TestRegistryResolveAutoNothingRegistered(t *testing.T) {
	reg := backend.NewRegistry()
	// A device backend alone cannot serve host-only queues.
	reg.Register(model.PolicyDevice, &stubBackend{name: "device", target: backend.TargetDevice})

	if _, err := reg.Resolve(model.PolicyAuto, false); err == nil {
		t.Error("expected error when no auto-routing target is registered, got nil")
	}
}

func TestRegistryResolveAutoUsesCapabilitiesNotNames(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register("cpu-serial", &stubBackend{name: "cpu-serial", target: backend.TargetHost})
	reg.Register("cpu-wide", &stubBackend{name: "cpu-wide", target: backend.TargetHost, workers: 8})
	reg.Register("gpu1", &stubBackend{name: "gpu1", target: backend.TargetDevice})
	reg.Register("gpu0", &stubBackend{name: "gpu0", target: backend.TargetDevice})

	tests := []struct {
		deviceCapable bool
		expectedName  string
	}{
		{true, "gpu0"},
		{false, "cpu-wide"},
	}

	for _, tc := range tests {
		b, err := reg.Resolve(model.PolicyAuto, tc.deviceCapable)
		if err != nil {
			t.Fatalf("Resolve(auto, %v): %v", tc.deviceCapable, err)
		}
		if b.Capabilities().Name != tc.expectedName {
			t.Errorf("Resolve(auto, %v) = %q, want %q", tc.deviceCapable, b.Capabilities().Name, tc.expectedName)
		}
	}
}

func TestRegistryClose(t *testing.T) {
	reg := backend.NewRegistry()
	closeErr := errors.New("stream stuck")
	a := &stubBackend{name: "a"}
	b := &stubBackend{name: "b", closeErr: closeErr}
	reg.Register("a", a)
	reg.Register("b", b)

	err := reg.Close(context.Background())
	if !errors.Is(err, closeErr) {
		t.Errorf("Close error = %v, want %v", err, closeErr)
	}
	if !a.closed || !b.closed {
		t.Error("expected every backend to be closed")
	}
}
