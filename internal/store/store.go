// Package store persists KPI snapshot history on disk as JSON so
// trend detection can compare fresh snapshots against prior runs.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"tyrepulse/pkg/contracts/domain"
)

// HistoryStore keeps snapshots in a single JSON file. Writes go
// through a temp file and rename so a crash never truncates history.
type HistoryStore struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewHistoryStore creates a store backed by path. A nil logger falls
// back to the default slog logger.
func NewHistoryStore(path string, logger *slog.Logger) *HistoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStore{path: path, logger: logger}
}

// Load reads all stored snapshots ordered by generation time. A
// missing file yields an empty history.
func (s *HistoryStore) Load() ([]domain.KPISnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *HistoryStore) load() ([]domain.KPISnapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var snapshots []domain.KPISnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", s.path, err)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].GeneratedAt.Before(snapshots[j].GeneratedAt)
	})
	return snapshots, nil
}

// Append adds a snapshot to the history and persists it.
func (s *HistoryStore) Append(snapshot domain.KPISnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.load()
	if err != nil {
		return err
	}
	snapshots = append(snapshots, snapshot)

	if err := s.write(snapshots); err != nil {
		return err
	}

	s.logger.Info("snapshot stored",
		slog.String("path", s.path),
		slog.String("grouping", string(snapshot.Grouping)),
		slog.Int("groups", len(snapshot.Groups)),
		slog.Int("history_size", len(snapshots)))
	return nil
}

// Latest returns the most recent snapshot for grouping, or false when
// none is stored.
func (s *HistoryStore) Latest(grouping domain.Grouping) (domain.KPISnapshot, bool, error) {
	snapshots, err := s.Load()
	if err != nil {
		return domain.KPISnapshot{}, false, err
	}
	for i := len(snapshots) - 1; i >= 0; i-- {
		if snapshots[i].Grouping == grouping {
			return snapshots[i], true, nil
		}
	}
	return domain.KPISnapshot{}, false, nil
}

// ByGrouping returns all snapshots for grouping in generation order.
func (s *HistoryStore) ByGrouping(grouping domain.Grouping) ([]domain.KPISnapshot, error) {
	snapshots, err := s.Load()
	if err != nil {
		return nil, err
	}
	var filtered []domain.KPISnapshot
	for _, snap := range snapshots {
		if snap.Grouping == grouping {
			filtered = append(filtered, snap)
		}
	}
	return filtered, nil
}

// write dumps the full history through a temp file and rename.
func (s *HistoryStore) write(snapshots []domain.KPISnapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}
