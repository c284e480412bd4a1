package errors

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// Handler converts errors into problem responses and logs them with
// request context.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an error handler. A nil logger falls back to the
// default slog logger.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger}
}

// Handle logs err and returns the ProblemDetails to write back.
func (h *Handler) Handle(ctx context.Context, err error, instance string) *ProblemDetails {
	problem := ToProblem(err, instance)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.LogAttrs(ctx, level, "request failed",
		slog.String("instance", instance),
		slog.Int("status", problem.Status),
		slog.String("type", problem.Type),
		slog.String("error", err.Error()),
	)
	return problem
}

// WriteError handles err and writes the problem response.
func (h *Handler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	problem := h.Handle(r.Context(), err, r.URL.Path)
	if renderErr := render.Render(w, r, problem); renderErr != nil {
		h.logger.ErrorContext(r.Context(), "failed to render problem response",
			slog.String("error", renderErr.Error()))
	}
}

// ToProblem maps an error chain onto an RFC 7807 problem. Unknown
// errors become opaque 500s so internals never leak to clients.
func ToProblem(err error, instance string) *ProblemDetails {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal,
			"Internal Server Error", "an unexpected error occurred", instance)
	}

	problem := NewProblemDetails(apiErr.Status, problemType(apiErr.Code),
		problemTitle(apiErr.Code), apiErr.Message, instance)
	for k, v := range apiErr.Fields {
		problem.WithExtension(k, v)
	}
	return problem
}

func problemType(code string) string {
	switch code {
	case CodeValidation:
		return TypeValidation
	case CodeNormalization:
		return TypeNormalization
	case CodeComputation:
		return TypeComputation
	case CodeNotFound:
		return TypeNotFound
	case CodeRateLimit:
		return TypeRateLimit
	default:
		return TypeInternal
	}
}

func problemTitle(code string) string {
	switch code {
	case CodeValidation:
		return "Validation Failed"
	case CodeNormalization:
		return "Normalization Failed"
	case CodeComputation:
		return "Computation Failed"
	case CodeNotFound:
		return "Not Found"
	case CodeRateLimit:
		return "Too Many Requests"
	default:
		return "Internal Server Error"
	}
}
