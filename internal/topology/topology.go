// Package topology turns declared backend specs into a populated registry.
package topology

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seantiz/warp/internal/backend"
	"github.com/seantiz/warp/internal/backend/device"
	"github.com/seantiz/warp/internal/backend/pool"
	"github.com/seantiz/warp/internal/backend/seq"
	"github.com/seantiz/warp/internal/config"
)

// Build creates and registers one backend per spec. Device specs without explicit
// sizes fall back to the device environment configuration.
func Build(specs []config.BackendSpec, logger *slog.Logger) (*backend.Registry, error) {
	reg := backend.NewRegistry()
	devCfg := device.LoadConfig()

	for _, s := range specs {
		var b backend.Backend
		switch s.Kind {
		case config.KindSeq:
			b = seq.New(s.Name)
		case config.KindPool:
			b = pool.New(s.Name, s.Workers)
		case config.KindDevice:
			cfg := devCfg
			if s.Lanes > 0 {
				cfg.Lanes = s.Lanes
			}
			if s.QueueDepth > 0 {
				cfg.QueueDepth = s.QueueDepth
			}
			b = device.New(s.Name, cfg, logger)
		default:
			_ = reg.Close(context.Background())
			return nil, fmt.Errorf("backend %q: unknown kind %q", s.Name, s.Kind)
		}
		reg.Register(s.Name, b)
		logger.Info("backend registered", "name", s.Name, "kind", s.Kind)
	}
	return reg, nil
}
