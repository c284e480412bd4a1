package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// HealthService reports process and storage health.
type HealthService struct {
	version     string
	historyPath string
	startTime   time.Time
	logger      *slog.Logger
}

// NewHealthService creates a health service.
func NewHealthService(version, historyPath string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:     version,
		historyPath: historyPath,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Runtime   map[string]any `json:"runtime,omitempty"`
	Services  map[string]any `json:"services,omitempty"`
}

// Health collects the current health status. Storage reports degraded
// when the history directory is not writable.
func (s *HealthService) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Runtime: map[string]any{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: map[string]any{},
	}

	storage := map[string]any{"status": "ok", "path": s.historyPath}
	if err := checkWritable(filepath.Dir(s.historyPath)); err != nil {
		storage["status"] = "degraded"
		storage["message"] = err.Error()
		status.Status = "degraded"
		s.logger.WarnContext(ctx, "history storage degraded", slog.String("error", err.Error()))
	}
	status.Services["storage"] = storage

	return status
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
