// Package tasks implements per-user task CRUD. Every operation is scoped to
// the authenticated author; another user's task is reported as missing.
package tasks

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store"
)

// TaskStore persists tasks filtered by author.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	ListTasks(ctx context.Context, authorID string, q models.TaskQuery) ([]models.Task, error)
	GetTask(ctx context.Context, id, authorID string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id, authorID string) (*models.Task, error)
}

type Service struct {
	store TaskStore
}

func NewService(st TaskStore) *Service {
	return &Service{store: st}
}

// Create stores a task authored by u. Completed defaults to false.
func (s *Service) Create(ctx context.Context, u *models.User, req models.CreateTaskRequest) (*models.Task, error) {
	t := &models.Task{
		Description: strings.TrimSpace(req.Description),
		Author:      u.ID,
	}
	if t.Description == "" {
		return nil, apperr.Validation("Description is required")
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	return t, nil
}

// ListParams are the raw query parameters of GET /tasks.
type ListParams struct {
	Completed string
	SortBy    string
	Limit     string
	Skip      string
}

// ParseQuery turns raw query parameters into a TaskQuery. A completed value
// other than "true" or "false" is ignored, as is a sortBy field outside
// models.TaskSortFields; limit and skip that are not positive integers mean
// unbounded.
func ParseQuery(p ListParams) models.TaskQuery {
	var q models.TaskQuery
	switch p.Completed {
	case "true":
		q.Completed = ptr(true)
	case "false":
		q.Completed = ptr(false)
	}

	field, dir, _ := strings.Cut(p.SortBy, "_")
	if slices.Contains(models.TaskSortFields, field) {
		q.SortField = field
		q.SortDesc = dir == "desc"
	}

	q.Limit = nonNegative(p.Limit)
	q.Skip = nonNegative(p.Skip)
	return q
}

func nonNegative(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func ptr[T any](v T) *T { return &v }

func (s *Service) List(ctx context.Context, u *models.User, q models.TaskQuery) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, u.ID.Hex(), q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *Service) Get(ctx context.Context, u *models.User, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id, u.ID.Hex())
	if err != nil {
		return nil, translate(err, "Resource not found")
	}
	return t, nil
}

// Update applies p to a task owned by u.
func (s *Service) Update(ctx context.Context, u *models.User, id string, p models.TaskPatch) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id, u.ID.Hex())
	if err != nil {
		return nil, translate(err, "Task not found")
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
		if t.Description == "" {
			return nil, apperr.Validation("Description is required")
		}
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, translate(err, "Task not found")
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, u *models.User, id string) (*models.Task, error) {
	t, err := s.store.DeleteTask(ctx, id, u.ID.Hex())
	if err != nil {
		return nil, translate(err, "")
	}
	return t, nil
}

func translate(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal(err)
}
