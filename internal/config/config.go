package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultListenAddr  = ":8080"
	defaultDBPath      = "warp.db"
	defaultRunTimeoutS = 30

	envListenAddr   = "WARP_LISTEN_ADDR"
	envDBPath       = "WARP_DB_PATH"
	envLogLevel     = "WARP_LOG_LEVEL"
	envBackendsFile = "WARP_BACKENDS_FILE"
	envWorkers      = "WARP_WORKERS"
	envRunTimeoutS  = "WARP_RUN_TIMEOUT_S"
	envTraceFile    = "WARP_TRACE_FILE"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// BackendsFile is a YAML backend topology. Empty means DefaultBackends.
	BackendsFile string

	// Workers sizes the parallel host pool of the default topology.
	Workers int

	// RunTimeoutS is applied to runs submitted without a timeout.
	RunTimeoutS int

	// TraceFile receives run spans when set. "-" means stdout.
	TraceFile string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:  defaultListenAddr,
		DBPath:      defaultDBPath,
		LogLevel:    slog.LevelInfo,
		Workers:     runtime.GOMAXPROCS(0),
		RunTimeoutS: defaultRunTimeoutS,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envBackendsFile); v != "" {
		cfg.BackendsFile = v
	}
	if v := os.Getenv(envWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv(envRunTimeoutS); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RunTimeoutS = n
		}
	}
	if v := os.Getenv(envTraceFile); v != "" {
		cfg.TraceFile = v
	}

	return cfg
}

// LoadDotenv loads variables from the given .env files (".env" when none is
// given) without overriding variables already set. Missing files are
// skipped.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
