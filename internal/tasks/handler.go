package tasks

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/task-manager-api/internal/httpx"
	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/models"
)

// Handler holds the /tasks HTTP handlers. All routes run behind RequireAuth.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create adds a task for the caller. POST /tasks
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	t, err := h.svc.Create(r.Context(), middleware.User(r.Context()), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

// List returns the caller's tasks. GET /tasks?completed=&sortBy=&limit=&skip=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := ParseQuery(ListParams{
		Completed: v.Get("completed"),
		SortBy:    v.Get("sortBy"),
		Limit:     v.Get("limit"),
		Skip:      v.Get("skip"),
	})
	tasks, err := h.svc.List(r.Context(), middleware.User(r.Context()), q)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tasks)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), middleware.User(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// Update applies a partial update. PATCH /tasks/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.DecodeFields(r, models.TaskUpdates)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	var (
		p           models.TaskPatch
		description string
		completed   bool
	)
	if ok, err := fields.Get("description", &description); err != nil {
		httpx.Error(w, r, err)
		return
	} else if ok {
		p.Description = &description
	}
	if ok, err := fields.Get("completed", &completed); err != nil {
		httpx.Error(w, r, err)
		return
	} else if ok {
		p.Completed = &completed
	}

	t, err := h.svc.Update(r.Context(), middleware.User(r.Context()), chi.URLParam(r, "id"), p)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Delete(r.Context(), middleware.User(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}
