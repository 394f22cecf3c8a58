// Package users implements account registration, sessions, profile updates
// and avatars.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/avatar"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store"
)

// UserStore persists user documents and their token lists.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) (*models.User, error)
	AddToken(ctx context.Context, id string, t models.AuthToken) error
	RemoveToken(ctx context.Context, id, token string) error
	ClearTokens(ctx context.Context, id string) error
}

// TaskRemover deletes the tasks a user owns.
type TaskRemover interface {
	DeleteTasksByAuthor(ctx context.Context, authorID string) (int64, error)
}

// AvatarStore keeps normalized avatar images keyed by user id.
type AvatarStore interface {
	PutAvatar(ctx context.Context, id string, data []byte) error
	GetAvatar(ctx context.Context, id string) ([]byte, error)
	DeleteAvatar(ctx context.Context, id string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// LoginLimiter throttles login attempts per email.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

type Notifier interface {
	Welcome(email, name string)
	Cancellation(email, name string)
}

// Deps are the collaborators of a Service. Limiter may be nil.
type Deps struct {
	Users    UserStore
	Tasks    TaskRemover
	Avatars  AvatarStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Notifier Notifier
	Limiter  LoginLimiter
}

// Service holds the user operations behind the /users routes.
type Service struct {
	Deps

	dummyOnce sync.Once
	dummyHash string
}

func NewService(d Deps) *Service {
	return &Service{Deps: d}
}

// Register validates and stores a new account, then sends a welcome email.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	u := &models.User{
		Name:  strings.TrimSpace(req.Name),
		Email: normalizeEmail(req.Email),
	}
	if req.Age != nil {
		u.Age = *req.Age
	}
	password := strings.TrimSpace(req.Password)

	if err := errors.Join(
		validateName(u.Name),
		validateEmail(u.Email),
		validatePassword(password),
		validateAge(u.Age),
	); err != nil {
		return nil, firstValidation(err)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	u.Password = hash

	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperr.Validation("Email is already registered")
		}
		return nil, apperr.Internal(err)
	}

	s.Notifier.Welcome(u.Email, u.Name)
	return u, nil
}

// firstValidation reduces a joined set of validation errors to the first one.
func firstValidation(err error) error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := j.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return err
}

// Login checks credentials and records a freshly issued token. Unknown
// emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)

	if s.Limiter != nil {
		ok, err := s.Limiter.Allow(ctx, email)
		if err != nil {
			log.Warn().Err(err).Msg("login limiter unavailable")
		} else if !ok {
			return nil, "", apperr.TooManyRequests("Too many login attempts, try again later")
		}
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", apperr.Internal(err)
		}
		s.Hasher.Verify(password, s.dummy())
		return nil, "", apperr.InvalidCredentials()
	}

	ok, err := s.Hasher.Verify(password, u.Password)
	if err != nil {
		return nil, "", apperr.Internal(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return nil, "", apperr.InvalidCredentials()
	}

	token, err := s.Tokens.Issue(u.ID.Hex())
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	t := models.AuthToken{Token: token, Created: time.Now().UTC()}
	if err := s.Users.AddToken(ctx, u.ID.Hex(), t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", apperr.InvalidCredentials()
		}
		return nil, "", apperr.Internal(err)
	}
	u.Tokens = append(u.Tokens, t)

	if s.Limiter != nil {
		if err := s.Limiter.Reset(ctx, email); err != nil {
			log.Warn().Err(err).Msg("login limiter reset failed")
		}
	}
	return u, token, nil
}

// dummy returns a hash to compare against when the email is unknown, so both
// failure paths cost one bcrypt comparison.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}

// Logout revokes only the token the request was made with.
func (s *Service) Logout(ctx context.Context, u *models.User, token string) error {
	if err := s.Users.RemoveToken(ctx, u.ID.Hex(), token); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Internal(err)
	}
	return nil
}

// LogoutAll revokes every token of u.
func (s *Service) LogoutAll(ctx context.Context, u *models.User) error {
	if err := s.Users.ClearTokens(ctx, u.ID.Hex()); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.Users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Get looks up any user by id. It requires no authentication.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.Users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// UpdateSelf applies p to u, re-validates the result and persists it. The
// password is re-hashed only when p sets it.
func (s *Service) UpdateSelf(ctx context.Context, u *models.User, p models.UserPatch) (*models.User, error) {
	next := *u
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		next.Email = normalizeEmail(*p.Email)
	}
	if p.Age != nil {
		next.Age = *p.Age
	}

	var password string
	if p.Password != nil {
		password = strings.TrimSpace(*p.Password)
		if err := validatePassword(password); err != nil {
			return nil, err
		}
	}
	if err := errors.Join(validateName(next.Name), validateEmail(next.Email), validateAge(next.Age)); err != nil {
		return nil, firstValidation(err)
	}

	if p.Password != nil {
		hash, err := s.Hasher.Hash(password)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
		}
		next.Password = hash
	}

	if err := s.Users.UpdateUser(ctx, &next); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperr.Validation("Email is already registered")
		}
		return nil, apperr.Internal(err)
	}
	return &next, nil
}

// DeleteSelf removes u together with its tasks and avatar, then sends a
// cancellation email.
func (s *Service) DeleteSelf(ctx context.Context, u *models.User) (*models.User, error) {
	deleted, err := s.remove(ctx, u.ID.Hex())
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			// deleted concurrently; the account is gone either way
			deleted = u
		} else {
			return nil, err
		}
	}
	s.Notifier.Cancellation(deleted.Email, deleted.Name)
	return deleted, nil
}

// DeleteByID removes any user by id, cascading like DeleteSelf. It requires
// no authentication and sends no email.
func (s *Service) DeleteByID(ctx context.Context, id string) (*models.User, error) {
	return s.remove(ctx, id)
}

func (s *Service) remove(ctx context.Context, id string) (*models.User, error) {
	if _, err := s.Users.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("")
		}
		return nil, apperr.Internal(err)
	}

	n, err := s.Tasks.DeleteTasksByAuthor(ctx, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("delete tasks of %s: %w", id, err))
	}

	deleted, err := s.Users.DeleteUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("")
		}
		return nil, apperr.Internal(err)
	}

	if err := s.Avatars.DeleteAvatar(ctx, id); err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("avatar cleanup failed")
	}
	log.Info().Str("user_id", id).Int64("tasks", n).Msg("user deleted")
	return deleted, nil
}

// SetAvatar validates an upload, normalizes it and stores it for u.
func (s *Service) SetAvatar(ctx context.Context, u *models.User, filename string, data []byte) error {
	if err := avatar.Check(filename, int64(len(data))); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	img, err := avatar.Normalize(data)
	if err != nil {
		return apperr.Validation("%s", avatar.ErrUndecodable.Error())
	}
	if err := s.Avatars.PutAvatar(ctx, u.ID.Hex(), img); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) ClearAvatar(ctx context.Context, u *models.User) error {
	if err := s.Avatars.DeleteAvatar(ctx, u.ID.Hex()); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// GetAvatar returns the stored PNG for user id.
func (s *Service) GetAvatar(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.Users.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("")
		}
		return nil, apperr.Internal(err)
	}
	data, err := s.Avatars.GetAvatar(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("")
		}
		return nil, apperr.Internal(err)
	}
	return data, nil
}
