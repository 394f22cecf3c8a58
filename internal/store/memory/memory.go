// Package memory provides an in-memory implementation of the user, task and
// avatar stores, for tests and local development.
package memory

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store"
)

// Store mirrors store.MongoStore semantics on maps guarded by one lock.
type Store struct {
	mu sync.RWMutex

	users   map[primitive.ObjectID]*models.User
	tasks   map[primitive.ObjectID]*models.Task
	order   []primitive.ObjectID // task insertion order
	avatars map[primitive.ObjectID][]byte

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:   make(map[primitive.ObjectID]*models.User),
		tasks:   make(map[primitive.ObjectID]*models.Task),
		avatars: make(map[primitive.ObjectID][]byte),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrNotFound
	}
	return oid, nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Tokens = slices.Clone(u.Tokens)
	c.Avatar = bytes.Clone(u.Avatar)
	return &c
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	return &c
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(u.Email, primitive.NilObjectID) {
		return store.ErrDuplicateEmail
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Tokens == nil {
		u.Tokens = []models.AuthToken{}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByToken(ctx context.Context, id, token string) (*models.User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.HasToken(token) {
		return nil, store.ErrNotFound
	}
	return u, nil
}

// ListUsers returns users ordered by id, which for ObjectIDs follows creation.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		c := cloneUser(u)
		c.Password, c.Tokens, c.Avatar = "", nil, nil
		users = append(users, *c)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID.Hex() < users[j].ID.Hex()
	})
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.emailTaken(u.Email, u.ID) {
		return store.ErrDuplicateEmail
	}
	u.UpdatedAt = s.now()
	cur.Name, cur.Email, cur.Password, cur.Age = u.Name, u.Email, u.Password, u.Age
	cur.UpdatedAt = u.UpdatedAt
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.users, oid)
	delete(s.avatars, oid)
	return u, nil
}

func (s *Store) AddToken(ctx context.Context, id string, t models.AuthToken) error {
	return s.withUser(id, func(u *models.User) {
		u.Tokens = append(u.Tokens, t)
	})
}

func (s *Store) RemoveToken(ctx context.Context, id, token string) error {
	return s.withUser(id, func(u *models.User) {
		u.Tokens = slices.DeleteFunc(u.Tokens, func(t models.AuthToken) bool {
			return t.Token == token
		})
	})
}

func (s *Store) ClearTokens(ctx context.Context, id string) error {
	return s.withUser(id, func(u *models.User) {
		u.Tokens = []models.AuthToken{}
	})
}

func (s *Store) withUser(id string, fn func(*models.User)) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[oid]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	return nil
}

// Avatars

func (s *Store) PutAvatar(ctx context.Context, id string, data []byte) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[oid]; !ok {
		return store.ErrNotFound
	}
	s.avatars[oid] = bytes.Clone(data)
	return nil
}

func (s *Store) GetAvatar(ctx context.Context, id string) ([]byte, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.avatars[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (s *Store) DeleteAvatar(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.avatars, oid)
	return nil
}

// Tasks

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.tasks[t.ID] = cloneTask(t)
	s.order = append(s.order, t.ID)
	return nil
}

func (s *Store) ListTasks(ctx context.Context, authorID string, q models.TaskQuery) ([]models.Task, error) {
	author, err := parseID(authorID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, id := range s.order {
		t := s.tasks[id]
		if t.Author != author {
			continue
		}
		if q.Completed != nil && t.Completed != *q.Completed {
			continue
		}
		out = append(out, *t)
	}

	if q.SortField != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareTasks(&out[i], &out[j], q.SortField)
			if q.SortDesc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return nil, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(out)) {
		out = out[:q.Limit]
	}
	return out, nil
}

func compareTasks(a, b *models.Task, field string) int {
	switch field {
	case "description":
		return strings.Compare(a.Description, b.Description)
	case "completed":
		switch {
		case a.Completed == b.Completed:
			return 0
		case !a.Completed:
			return -1
		default:
			return 1
		}
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func (s *Store) GetTask(ctx context.Context, id, authorID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.ownedTask(id, authorID)
	if err != nil {
		return nil, err
	}
	return cloneTask(t), nil
}

func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[t.ID]
	if !ok || cur.Author != t.Author {
		return store.ErrNotFound
	}
	t.UpdatedAt = s.now()
	cur.Description, cur.Completed, cur.UpdatedAt = t.Description, t.Completed, t.UpdatedAt
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id, authorID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.ownedTask(id, authorID)
	if err != nil {
		return nil, err
	}
	s.removeTask(t.ID)
	return t, nil
}

func (s *Store) DeleteTasksByAuthor(ctx context.Context, authorID string) (int64, error) {
	author, err := parseID(authorID)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tasks {
		if t.Author == author {
			s.removeTask(id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ownedTask(id, authorID string) (*models.Task, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	author, err := parseID(authorID)
	if err != nil {
		return nil, err
	}
	t, ok := s.tasks[oid]
	if !ok || t.Author != author {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) removeTask(id primitive.ObjectID) {
	delete(s.tasks, id)
	s.order = slices.DeleteFunc(s.order, func(o primitive.ObjectID) bool { return o == id })
}
