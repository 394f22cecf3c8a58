package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/task-manager-api/internal/auth"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/notify"
	"github.com/ayush/task-manager-api/internal/store/memory"
	"github.com/ayush/task-manager-api/internal/tasks"
	"github.com/ayush/task-manager-api/internal/users"
)

type testServer struct {
	t     *testing.T
	h     http.Handler
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := memory.New()
	tokens := auth.NewTokenService("test-secret")
	notifier := notify.New(notify.LogSender{})
	t.Cleanup(notifier.Wait)

	userSvc := users.NewService(users.Deps{
		Users:    st,
		Tasks:    st,
		Avatars:  st,
		Hasher:   auth.NewHasher(bcrypt.MinCost),
		Tokens:   tokens,
		Notifier: notifier,
	})
	h := NewRouter(Options{
		Logger:      zerolog.Nop(),
		CORSOrigins: []string{"http://localhost:3000"},
		Tokens:      tokens,
		Users:       st,
		UserHandler: users.NewHandler(userSvc),
		TaskHandler: tasks.NewHandler(tasks.NewService(st)),
	})
	return &testServer{t: t, h: h, store: st}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	return w
}

// signup registers and logs in, returning the user id and token.
func (s *testServer) signup(name, email, password string) (string, string) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/users", "",
		`{"name":"`+name+`","email":"`+email+`","password":"`+password+`"}`)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/users/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		User  struct{ ID string `json:"_id"` } `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRegister_HashesPassword(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/users", "", `{"name":"Oscar","email":"oscar@test.com","password":"oscarmayer!"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode[map[string]any](t, w)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "tokens")
	assert.NotContains(t, body, "avatar")

	stored, err := s.store.GetUserByEmail(context.Background(), "oscar@test.com")
	require.NoError(t, err)
	assert.NotEqual(t, "oscarmayer!", stored.Password)
}

func TestCreateTask_DefaultsIncomplete(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("Oscar", "oscar@test.com", "oscarmayer!")

	w := s.do(http.MethodPost, "/tasks", token, `{"description":"Study"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	task := decode[map[string]any](t, w)
	assert.Equal(t, false, task["completed"])
	assert.Equal(t, "Study", task["description"])
}

func TestTaskOwnership(t *testing.T) {
	s := newTestServer(t)
	_, tokenA := s.signup("Oscar", "oscar@test.com", "oscarmayer!")
	_, tokenB := s.signup("Mike", "mike@test.com", "mikemike!")

	w := s.do(http.MethodPost, "/tasks", tokenA, `{"description":"A's task"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/tasks/" + decode[map[string]any](t, w)["_id"].(string)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, path, tokenB, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, tokenB, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, path, tokenB, `{"completed":true}`).Code)

	w = s.do(http.MethodGet, "/tasks", tokenB, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(http.MethodGet, path, tokenA, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["completed"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/users/me"},
		{http.MethodPatch, "/users/me"},
		{http.MethodDelete, "/users/me"},
		{http.MethodPost, "/users/logout"},
		{http.MethodPost, "/users/logoutAll"},
		{http.MethodPost, "/users/me/avatar"},
		{http.MethodDelete, "/users/me/avatar"},
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/tasks"},
	} {
		w := s.do(rt.method, rt.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.method+" "+rt.path)
		assert.Empty(t, w.Body.String())
	}
}

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id, first := s.signup("Oscar", "oscar@test.com", "oscarmayer!")

	w := s.do(http.MethodPost, "/users/login", "", `{"email":"oscar@test.com","password":"oscarmayer!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[map[string]any](t, w)["token"].(string)

	u, err := s.store.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, u.Tokens, 2)

	w = s.do(http.MethodPost, "/users/logout", first, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", first, "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/users/me", second, "").Code)

	u, err = s.store.GetUserByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, u.Tokens, 1)
	assert.Equal(t, second, u.Tokens[0].Token)
}

func TestLogoutAll(t *testing.T) {
	s := newTestServer(t)
	_, first := s.signup("Oscar", "oscar@test.com", "oscarmayer!")
	w := s.do(http.MethodPost, "/users/login", "", `{"email":"oscar@test.com","password":"oscarmayer!"}`)
	second := decode[map[string]any](t, w)["token"].(string)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/users/logoutAll", second, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", first, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", second, "").Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	s.signup("Oscar", "oscar@test.com", "oscarmayer!")

	wrong := s.do(http.MethodPost, "/users/login", "", `{"email":"oscar@test.com","password":"nope-nope"}`)
	ghost := s.do(http.MethodPost, "/users/login", "", `{"email":"ghost@test.com","password":"oscarmayer!"}`)

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, wrong.Code, ghost.Code)
	assert.Equal(t, wrong.Body.String(), ghost.Body.String())
}

func TestDeleteMe_CascadesTasks(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signup("Oscar", "oscar@test.com", "oscarmayer!")
	for _, d := range []string{"one", "two"} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/tasks", token, `{"description":"`+d+`"}`).Code)
	}

	w := s.do(http.MethodDelete, "/users/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[map[string]any](t, w)["_id"])

	tasksLeft, err := s.store.ListTasks(context.Background(), id, models.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, tasksLeft)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/users/me", token, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/users/"+id, "", "").Code)
}

func TestUpdateMe_RejectsUnknownKeys(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("Oscar", "oscar@test.com", "oscarmayer!")

	w := s.do(http.MethodPatch, "/users/me", token, `{"name":"Changed","location":"Philadelphia"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "location")

	w = s.do(http.MethodGet, "/users/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Oscar", decode[map[string]any](t, w)["name"])

	w = s.do(http.MethodPatch, "/users/me", token, `{"name":"Changed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Changed", decode[map[string]any](t, w)["name"])
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/users/me", token, "").Code, "token survives update")
}

func TestUnauthenticatedByID(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.signup("Oscar", "oscar@test.com", "oscarmayer!")

	w := s.do(http.MethodGet, "/users/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "oscar@test.com", decode[map[string]any](t, w)["email"])

	w = s.do(http.MethodGet, "/users/000000000000000000000000", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", w.Body.String())

	w = s.do(http.MethodGet, "/users", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/users/"+id, "", "").Code)
	w = s.do(http.MethodDelete, "/users/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestTaskListQuery(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("Oscar", "oscar@test.com", "oscarmayer!")
	for _, body := range []string{
		`{"description":"b"}`,
		`{"description":"a","completed":true}`,
		`{"description":"c"}`,
	} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/tasks", token, body).Code)
	}

	descs := func(path string) []string {
		w := s.do(http.MethodGet, path, token, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []string
		for _, task := range decode[[]map[string]any](t, w) {
			out = append(out, task["description"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"a"}, descs("/tasks?completed=true"))
	assert.Equal(t, []string{"c", "b", "a"}, descs("/tasks?sortBy=description_desc"))
	assert.Equal(t, []string{"b"}, descs("/tasks?sortBy=description_asc&limit=1&skip=1"))

	assert.Equal(t, []string{"b", "a", "c"}, descs("/tasks?sortBy=secret_asc"), "unknown sort field is ignored")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPatch_RejectsNull(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signup("Oscar", "oscar@test.com", "oscarmayer!")
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/users/me", token, `{"age":27}`).Code)

	w := s.do(http.MethodPatch, "/users/me", token, `{"age":null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/users/me", token, "")
	assert.EqualValues(t, 27, decode[map[string]any](t, w)["age"])

	w = s.do(http.MethodPost, "/tasks", token, `{"description":"Study","completed":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/tasks/" + decode[map[string]any](t, w)["_id"].(string)

	for _, body := range []string{`{"completed":null}`, `{"description":null}`} {
		w = s.do(http.MethodPatch, path, token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "invalid value for")
	}
	w = s.do(http.MethodGet, path, token, "")
	task := decode[map[string]any](t, w)
	assert.Equal(t, true, task["completed"])
	assert.Equal(t, "Study", task["description"])
}
