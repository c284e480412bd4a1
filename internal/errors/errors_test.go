package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := NewValidation("grouping must be daily, weekly, or monthly")
	assert.Equal(t, "VALIDATION_ERROR: grouping must be daily, weekly, or monthly", err.Error())

	wrapped := NewNormalization("sheet unusable", fmt.Errorf("no_header_found"))
	assert.Contains(t, wrapped.Error(), "NORMALIZATION_ERROR")
	assert.Contains(t, wrapped.Error(), "no_header_found")
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewInternal(cause)
	assert.ErrorIs(t, err, cause)
}

func TestAsAPIError(t *testing.T) {
	apiErr := NewNotFound("snapshot")
	wrapped := fmt.Errorf("loading dashboard: %w", apiErr)

	got, ok := AsAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, got.Code)
	assert.Equal(t, http.StatusNotFound, got.Status)

	_, ok = AsAPIError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestToProblem_MapsCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", NewValidation("bad input"), http.StatusBadRequest, TypeValidation},
		{"normalization", NewNormalization("no header", nil), http.StatusUnprocessableEntity, TypeNormalization},
		{"computation", NewComputation("kpi failed", nil), http.StatusInternalServerError, TypeComputation},
		{"not found", NewNotFound("report"), http.StatusNotFound, TypeNotFound},
		{"rate limit", NewRateLimit(), http.StatusTooManyRequests, TypeRateLimit},
		{"unknown", fmt.Errorf("mystery"), http.StatusInternalServerError, TypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := ToProblem(tt.err, "/api/test")
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/test", problem.Instance)
		})
	}
}

func TestToProblem_HidesUnknownDetail(t *testing.T) {
	problem := ToProblem(fmt.Errorf("db password wrong"), "/api/process")
	assert.NotContains(t, problem.Detail, "password")
	assert.Equal(t, "an unexpected error occurred", problem.Detail)
}

func TestToProblem_CarriesFields(t *testing.T) {
	err := NewValidation("missing columns").
		WithField("missing", []string{"actual_weight", "spec_weight"})
	problem := ToProblem(err, "/api/process")

	require.Contains(t, problem.Extensions, "missing")
	assert.Equal(t, []string{"actual_weight", "spec_weight"}, problem.Extensions["missing"])
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(422, TypeNormalization, "Normalization Failed", "no header row", "/api/process").
		WithExtension("sheet", "Line 3")

	raw, err := json.Marshal(problem)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, TypeNormalization, got["type"])
	assert.Equal(t, float64(422), got["status"])
	assert.Equal(t, "no header row", got["detail"])
	assert.Equal(t, "Line 3", got["sheet"])
}

func TestHandler_Handle(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := NewHandler(logger)

	problem := h.Handle(context.Background(), NewRateLimit(), "/api/dashboard-data")
	assert.Equal(t, http.StatusTooManyRequests, problem.Status)
	assert.Equal(t, "/api/dashboard-data", problem.Instance)
}
