// Package store persists users, tasks and avatars in MongoDB, with an
// optional MinIO bucket for avatar objects.
package store

import "errors"

var (
	// ErrNotFound is returned when no document matches, including malformed ids.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)
