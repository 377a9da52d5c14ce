package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dkarpov/taskboard/internal/contextkeys"
	"github.com/dkarpov/taskboard/internal/tasks/models"
	"github.com/dkarpov/taskboard/internal/tasks/service"
	"github.com/dkarpov/taskboard/internal/tasks/storage"
	"github.com/dkarpov/taskboard/internal/token"
)

type TasksService interface {
	CreateTask(ctx context.Context, fields models.TaskFields) (*models.Task, error)
	ListTasks(ctx context.Context) ([]*models.Task, error)
	UpdateTask(ctx context.Context, taskID int64, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	SearchTasks(ctx context.Context, query, tag string) ([]*models.Task, error)
}

type Handlers struct {
	svc      TasksService
	validate *validator.Validate
}

func NewHandlers(svc TasksService) *Handlers {
	return &Handlers{svc: svc, validate: validator.New()}
}

func NewRouter(svc TasksService, verifier *token.Verifier, log *slog.Logger, searchEnabled bool) chi.Router {
	h := NewHandlers(svc)

	r := chi.NewRouter()
	r.Use(RequestLogger(log))
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(verifier, log))
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks", h.CreateTask)
		r.Put("/tasks/{id}", h.UpdateTask)
		r.Delete("/tasks/{id}", h.DeleteTask)
		if searchEnabled {
			r.Get("/tasks/search", h.SearchTasks)
		}
	})
	return r
}

type createTaskRequest struct {
	Text string   `json:"text" validate:"required"`
	Date string   `json:"date"`
	Tags []string `json:"tags"`
}

type updateTaskRequest struct {
	Text      *string  `json:"text"`
	Completed *bool    `json:"completed"`
	Date      *string  `json:"date"`
	Tags      []string `json:"tags"`
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.ListTasks(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	task, err := h.svc.CreateTask(r.Context(), models.TaskFields{
		Text: req.Text,
		Date: req.Date,
		Tags: req.Tags,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), taskID, models.TaskPatch{
		Text:      req.Text,
		Completed: req.Completed,
		Date:      req.Date,
		Tags:      req.Tags,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteTask(r.Context(), taskID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SearchTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	tag := r.URL.Query().Get("tag")

	tasks, err := h.svc.SearchTasks(r.Context(), query, tag)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidText):
		respondError(w, http.StatusBadRequest, "invalid task text")
	case errors.Is(err, storage.ErrTaskNotFound):
		// covers both missing and foreign tasks, on purpose
		respondError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrSearchUnavailable):
		respondError(w, http.StatusServiceUnavailable, "search unavailable")
	default:
		contextkeys.GetLogger(r.Context()).Error("internal error", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return taskID, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
