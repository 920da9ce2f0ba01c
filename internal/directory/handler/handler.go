package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"persondir/internal/directory/models"
	"persondir/internal/platform/metrics"
	dErrors "persondir/pkg/domain-errors"
	"persondir/pkg/platform/httputil"
	"persondir/pkg/platform/middleware/metadata"
	middleware "persondir/pkg/platform/middleware/request"
	"persondir/pkg/platform/middleware/requesttime"
)

// maxBodyBytes caps request payloads; a record is a handful of short strings.
const maxBodyBytes = 1 << 20

// Service defines the directory operations the handlers need.
type Service interface {
	ListNames(ctx context.Context) ([]string, error)
	FindByName(ctx context.Context, name string) (*models.Record, error)
	FindByID(ctx context.Context, id string) (*models.Record, error)
	Insert(ctx context.Context, req *models.CreateRecordRequest) error
	Update(ctx context.Context, id string, req *models.UpdateRecordRequest) (*models.Record, error)
	Delete(ctx context.Context, id string) (string, error)
	Count(ctx context.Context) (int, error)
}

// Handler serves the directory endpoints.
type Handler struct {
	logger    *slog.Logger
	directory Service
	metrics   *metrics.Metrics
}

// New creates a new directory Handler. metrics may be nil.
func New(directory Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		directory: directory,
		metrics:   metrics,
	}
}

// Register registers the directory routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	directoryRouter := chi.NewRouter()
	directoryRouter.Use(middleware.Recovery(h.logger))
	directoryRouter.Use(middleware.RequestID)
	directoryRouter.Use(metadata.ClientMetadata)
	directoryRouter.Use(requesttime.Middleware)
	directoryRouter.Use(middleware.Logger(h.logger))
	directoryRouter.Use(chimw.Timeout(30 * time.Second))
	directoryRouter.Use(middleware.ContentTypeJSON)
	directoryRouter.Use(metrics.LatencyMiddleware(h.metrics))

	directoryRouter.Get("/healthz", h.handleHealth)
	directoryRouter.Get("/users", h.handleListNames)
	directoryRouter.Post("/users", h.handleCreate)
	directoryRouter.Get("/users/id/{id}", h.handleGetByID)
	directoryRouter.Get("/users/{name}", h.handleGetByName)
	directoryRouter.Patch("/users/{id}", h.handleUpdate)
	directoryRouter.Delete("/users/{id}", h.handleDelete)

	r.Mount("/", directoryRouter)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := h.directory.Count(r.Context())
	if err != nil {
		h.writeFailure(w, r, "health check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.Health{Status: "ok", Records: n})
}

func (h *Handler) handleListNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.directory.ListNames(r.Context())
	if err != nil {
		h.writeFailure(w, r, "failed to list names", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, names)
}

func (h *Handler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	rec, err := h.directory.FindByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeFailure(w, r, "failed to get record by name", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	rec, err := h.directory.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, "failed to get record by id", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.directory.Insert(r.Context(), &req); err != nil {
		h.writeFailure(w, r, "failed to create record", err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, "User created successfully")
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.directory.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.writeFailure(w, r, "failed to update record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, err := h.directory.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, "failed to delete record", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, fmt.Sprintf("User %s deleted", name))
}

// decode reads a JSON object body into dst, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeFailure logs client errors at warn and everything else at error, then
// writes the translated response.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	args := []any{
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
