package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend kinds accepted in a topology file.
const (
	KindSeq    = "seq"
	KindPool   = "pool"
	KindDevice = "device"
)

// BackendSpec declares one execution context to register at startup.
type BackendSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Workers bounds a pool backend. Zero uses GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`

	// Lanes and QueueDepth size a device stream. Zero values fall back to
	// the device environment configuration.
	Lanes      int `yaml:"lanes,omitempty"`
	QueueDepth int `yaml:"queue_depth,omitempty"`
}

// Topology is the root of a backend topology file.
type Topology struct {
	Backends []BackendSpec `yaml:"backends"`
}

// DefaultBackends returns the topology used without a file: one backend of
// each kind, registered under the policy names.
func DefaultBackends(workers int) []BackendSpec {
	return []BackendSpec{
		{Name: "seq", Kind: KindSeq},
		{Name: "parallel", Kind: KindPool, Workers: workers},
		{Name: "device", Kind: KindDevice},
	}
}

// LoadBackends reads and validates the topology file at path.
func LoadBackends(path string) ([]BackendSpec, error) {
	top, err := loadYAML[Topology](os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("load backends %s: %w", path, err)
	}
	if err := validateBackends(top.Backends); err != nil {
		return nil, fmt.Errorf("load backends %s: %w", path, err)
	}
	return top.Backends, nil
}

// ParseBackends decodes and validates a topology document.
func ParseBackends(data []byte) ([]BackendSpec, error) {
	var top Topology
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parse backends: %w", err)
	}
	if err := validateBackends(top.Backends); err != nil {
		return nil, err
	}
	return top.Backends, nil
}

func loadYAML[T any](fsys fs.FS, name string) (out T, err error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return out, err
	}
	err = yaml.Unmarshal(data, &out)
	return out, err
}

func validateBackends(specs []BackendSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("no backends declared")
	}
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("backend %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("backend %q declared twice", s.Name)
		}
		seen[s.Name] = true

		switch s.Kind {
		case KindSeq, KindPool, KindDevice:
		default:
			return fmt.Errorf("backend %q: unknown kind %q", s.Name, s.Kind)
		}
		if s.Workers < 0 || s.Lanes < 0 || s.QueueDepth < 0 {
			return fmt.Errorf("backend %q: sizes must not be negative", s.Name)
		}
	}
	return nil
}
