package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Healthy(t *testing.T) {
	dir := t.TempDir()
	svc := NewHealthService("1.2.3", filepath.Join(dir, "history.json"), discardLogger())

	status := svc.Health(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.NotZero(t, status.Timestamp)

	storage, ok := status.Services["storage"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", storage["status"])
}

func TestHealth_RuntimeFields(t *testing.T) {
	svc := NewHealthService("dev", filepath.Join(t.TempDir(), "history.json"), discardLogger())

	status := svc.Health(context.Background())
	assert.Contains(t, status.Runtime, "go_version")
	assert.Contains(t, status.Runtime, "goroutines")
}
