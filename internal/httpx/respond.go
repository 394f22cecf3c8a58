// Package httpx holds the JSON response and request-decoding helpers shared by
// the user and task handlers.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/ayush/task-manager-api/internal/apperr"
)

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Text writes a plain-text body.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// Error writes err using the status of its kind. Validation, credential,
// rate-limit and internal errors carry {"error": msg}; unauthenticated
// responses are always empty and not-found responses carry the route's text.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal(err)
	}
	status := ae.Kind.Status()

	switch ae.Kind {
	case apperr.KindInternal:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		JSON(w, status, map[string]string{"error": ae.Message})
	case apperr.KindUnauthenticated:
		w.WriteHeader(status)
	case apperr.KindNotFound:
		if ae.Message == "" {
			w.WriteHeader(status)
			return
		}
		Text(w, status, ae.Message)
	default:
		JSON(w, status, map[string]string{"error": ae.Message})
	}
}

// Decode reads a JSON body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// Fields is a decoded JSON object keyed by field name, for partial updates.
type Fields map[string]json.RawMessage

// DecodeFields reads a JSON object body and rejects any key outside allowed.
func DecodeFields(r *http.Request, allowed []string) (Fields, error) {
	var f Fields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil || f == nil {
		return nil, apperr.Validation("invalid request body")
	}
	if err := f.Check(allowed); err != nil {
		return nil, err
	}
	return f, nil
}

// Check fails with a validation error when f has a key outside allowed.
func (f Fields) Check(allowed []string) error {
	var bad []string
	for k := range f {
		if !slices.Contains(allowed, k) {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return apperr.Validation("Invalid updates: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Get unmarshals field key into v; it reports false when key is absent.
// A null value is rejected.
func (f Fields) Get(key string, v any) (bool, error) {
	raw, ok := f[key]
	if !ok {
		return false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return true, apperr.Validation("invalid value for %s", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, apperr.Validation("invalid value for %s", key)
	}
	return true, nil
}
