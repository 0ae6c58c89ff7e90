package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JamesPrial/task-history/internal/payload"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/task"
	"github.com/JamesPrial/task-history/internal/validate"
)

// Handler serves the task routes.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// Register mounts the task routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Patch("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := service.ListFilter{Status: task.Status(r.URL.Query().Get("status"))}
	tasks, err := h.svc.ListTasks(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, msgGetError)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, msgGet, tasks)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, msgGetError)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, msgGet, t)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	input, err := h.decode(w, r)
	if err != nil {
		h.fail(w, r, err, msgCreateError)
		return
	}
	created, err := h.svc.CreateTask(r.Context(), input)
	if err != nil {
		h.fail(w, r, err, msgCreateError)
		return
	}
	writeSuccess(w, h.logger, http.StatusCreated, msgCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	input, err := h.decode(w, r)
	if err != nil {
		h.fail(w, r, err, msgUpdateError)
		return
	}
	updated, err := h.svc.UpdateTask(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, r, err, msgUpdateError)
		return
	}
	writeSuccess(w, h.logger, http.StatusOK, msgUpdated, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, msgDeleteError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, _ := statusFor(err, fallback)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "task request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeError(w, h.logger, err, fallback)
}

// decode reads the request body as a task.Input, reporting oversized bodies
// as invalid input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (task.Input, error) {
	input, err := payload.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, &validate.ValidationError{Field: payload.BodyField, Constraint: "is too large."}
	}
	return input, err
}
