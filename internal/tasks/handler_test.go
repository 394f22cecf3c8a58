package tasks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store/memory"
)

// asUser stands in for RequireAuth.
func asUser(u *models.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUser(r.Context(), u, "")))
		})
	}
}

func newRouter(h *Handler, u *models.User) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(u))
	r.Post("/tasks", h.Create)
	r.Get("/tasks", h.List)
	r.Get("/tasks/{id}", h.Get)
	r.Patch("/tasks/{id}", h.Update)
	r.Delete("/tasks/{id}", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_CRUD(t *testing.T) {
	st := memory.New()
	u := newUser(t, st, "a@test.com")
	router := newRouter(NewHandler(NewService(st)), u)

	w := do(t, router, http.MethodPost, "/tasks", `{"description":"Study"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.False(t, created.Completed)
	assert.Equal(t, u.ID, created.Author)
	path := "/tasks/" + created.ID.Hex()

	w = do(t, router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPatch, path, `{"completed":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":true`)

	w = do(t, router, http.MethodGet, "/tasks?completed=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(t, router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Resource not found", w.Body.String())

	w = do(t, router, http.MethodPatch, path, `{"completed":false}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found", w.Body.String())

	w = do(t, router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandler_EmptyList(t *testing.T) {
	st := memory.New()
	router := newRouter(NewHandler(NewService(st)), newUser(t, st, "a@test.com"))

	w := do(t, router, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandler_BadInput(t *testing.T) {
	st := memory.New()
	u := newUser(t, st, "a@test.com")
	router := newRouter(NewHandler(NewService(st)), u)

	w := do(t, router, http.MethodPost, "/tasks", `{"description":"Study"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	path := "/tasks/" + created.ID.Hex()

	tests := []struct {
		name, method, path, body string
	}{
		{"create without description", http.MethodPost, "/tasks", `{"completed":true}`},
		{"create malformed", http.MethodPost, "/tasks", `{`},
		{"update unknown key", http.MethodPatch, path, `{"author":"000000000000000000000000"}`},
		{"update mixed keys", http.MethodPatch, path, `{"completed":true,"owner":"x"}`},
		{"update wrong type", http.MethodPatch, path, `{"completed":"yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}

	w = do(t, router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":false`)
}
