package users

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/avatar"
	"github.com/ayush/task-manager-api/internal/httpx"
	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/models"
)

// multipartSlack covers the multipart framing around the avatar file.
const multipartSlack = 64 << 10

// Handler holds the /users HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register creates an account. POST /users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

// Login issues a token. POST /users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, models.LoginResponse{User: u, Token: token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), middleware.User(r.Context()), middleware.Token(r.Context())); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LogoutAll(r.Context(), middleware.User(r.Context())); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

// Me returns the authenticated user. GET /users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, middleware.User(r.Context()))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

// UpdateMe applies a partial update. PATCH /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.DecodeFields(r, models.UserUpdates)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	p, err := userPatch(fields)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.svc.UpdateSelf(r.Context(), middleware.User(r.Context()), p)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func userPatch(f httpx.Fields) (models.UserPatch, error) {
	var (
		p                     models.UserPatch
		name, email, password string
		age                   int
	)
	if ok, err := f.Get("name", &name); err != nil {
		return p, err
	} else if ok {
		p.Name = &name
	}
	if ok, err := f.Get("email", &email); err != nil {
		return p, err
	} else if ok {
		p.Email = &email
	}
	if ok, err := f.Get("password", &password); err != nil {
		return p, err
	} else if ok {
		p.Password = &password
	}
	if ok, err := f.Get("age", &age); err != nil {
		return p, err
	} else if ok {
		p.Age = &age
	}
	return p, nil
}

// DeleteMe removes the authenticated account. DELETE /users/me
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.DeleteSelf(r.Context(), middleware.User(r.Context()))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.DeleteByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

// UploadAvatar stores the multipart "avatar" file. POST /users/me/avatar
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, avatar.MaxBytes+multipartSlack)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpx.Error(w, r, apperr.Validation("%s", avatar.ErrTooLarge.Error()))
			return
		}
		httpx.Error(w, r, apperr.Validation("%s", avatar.ErrNotAnImage.Error()))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, avatar.MaxBytes+1))
	if err != nil {
		httpx.Error(w, r, apperr.Validation("%s", avatar.ErrTooLarge.Error()))
		return
	}
	if err := h.svc.SetAvatar(r.Context(), middleware.User(r.Context()), header.Filename, data); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Text(w, http.StatusOK, "image uploaded successfully")
}

func (h *Handler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAvatar(r.Context(), middleware.User(r.Context())); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Text(w, http.StatusOK, "Profile updated")
}

// GetAvatar serves a user's avatar as PNG. GET /users/{id}/avatar
func (h *Handler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.GetAvatar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", avatar.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
