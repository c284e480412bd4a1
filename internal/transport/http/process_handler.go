package http

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "tyrepulse/internal/errors"
	"tyrepulse/internal/services"
	"tyrepulse/pkg/contracts/domain"
)

// maxUploadBytes bounds a single processing upload.
const maxUploadBytes = 64 << 20

// ProcessHandler accepts spreadsheet uploads and directory processing
// requests.
type ProcessHandler struct {
	service      *services.ProcessService
	logger       *slog.Logger
	errorHandler *apierrors.Handler
	validate     *validator.Validate
}

// NewProcessHandler creates a process handler.
func NewProcessHandler(service *services.ProcessService, logger *slog.Logger, errorHandler *apierrors.Handler) *ProcessHandler {
	return &ProcessHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "process")),
		errorHandler: errorHandler,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes returns the processing routes.
func (h *ProcessHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ProcessUpload)
	r.Post("/dir", h.ProcessDir)
	return r
}

// ProcessUpload handles POST /api/process: multipart spreadsheet
// files plus an optional grouping form field.
func (h *ProcessHandler) ProcessUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.errorHandler.WriteError(w, r, apierrors.NewValidation("invalid multipart body"))
		return
	}

	grouping := domain.GroupingDaily
	if raw := r.FormValue("grouping"); raw != "" {
		grouping = domain.Grouping(raw)
		if !grouping.IsValid() {
			h.errorHandler.WriteError(w, r,
				apierrors.NewValidation(fmt.Sprintf("unknown grouping %q", raw)))
			return
		}
	}

	uploads := r.MultipartForm.File["files"]
	if len(uploads) == 0 {
		h.errorHandler.WriteError(w, r, apierrors.NewValidation("no files uploaded"))
		return
	}

	tmpDir, err := os.MkdirTemp("", "tyrepulse-upload-*")
	if err != nil {
		h.errorHandler.WriteError(w, r, apierrors.NewInternal(err))
		return
	}
	defer os.RemoveAll(tmpDir)

	var paths []string
	for _, upload := range uploads {
		name := filepath.Base(upload.Filename)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".xlsm", ".csv":
		default:
			h.errorHandler.WriteError(w, r,
				apierrors.NewValidation(fmt.Sprintf("unsupported file type: %s", name)))
			return
		}

		path, err := h.saveUpload(upload, filepath.Join(tmpDir, name))
		if err != nil {
			h.errorHandler.WriteError(w, r, apierrors.NewInternal(err))
			return
		}
		paths = append(paths, path)
	}

	result, err := h.service.ProcessFiles(r.Context(), paths, grouping)
	if err != nil {
		h.errorHandler.WriteError(w, r, wrapProcessError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// ProcessDirRequest is the JSON body of POST /api/process/dir.
type ProcessDirRequest struct {
	Dir      string `json:"dir" validate:"required"`
	Grouping string `json:"grouping" validate:"omitempty,oneof=daily weekly monthly"`
}

// Bind implements render.Binder.
func (req *ProcessDirRequest) Bind(r *http.Request) error {
	return nil
}

// ProcessDir handles POST /api/process/dir: processes every
// spreadsheet in a server-side directory.
func (h *ProcessHandler) ProcessDir(w http.ResponseWriter, r *http.Request) {
	var req ProcessDirRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.WriteError(w, r, apierrors.NewValidation("invalid request body"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.WriteError(w, r, apierrors.NewValidation(err.Error()))
		return
	}

	grouping := domain.GroupingDaily
	if req.Grouping != "" {
		grouping = domain.Grouping(req.Grouping)
	}

	result, err := h.service.ProcessDir(r.Context(), req.Dir, grouping)
	if err != nil {
		h.errorHandler.WriteError(w, r, wrapProcessError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

func (h *ProcessHandler) saveUpload(upload *multipart.FileHeader, dst string) (string, error) {
	src, err := upload.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return dst, nil
}

// wrapProcessError classifies pipeline failures for the API. Unusable
// spreadsheets are the client's problem, everything else is ours.
func wrapProcessError(err error) error {
	if _, ok := apierrors.AsAPIError(err); ok {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "no usable tables") || strings.Contains(msg, "no spreadsheet files") {
		return apierrors.NewNormalization(msg, err)
	}
	return apierrors.NewInternal(err)
}
