package users

import (
	"net/mail"
	"strings"

	"github.com/ayush/task-manager-api/internal/apperr"
)

const minPasswordLen = 7

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	if name == "" {
		return apperr.Validation("Name is required")
	}
	return nil
}

// validateEmail expects an already normalized address.
func validateEmail(email string) error {
	if email == "" {
		return apperr.Validation("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("Email is invalid")
	}
	at := strings.LastIndexByte(email, '@')
	if domain := email[at+1:]; !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return apperr.Validation("Email is invalid")
	}
	return nil
}

// validatePassword expects a trimmed plaintext password.
func validatePassword(password string) error {
	if password == "" {
		return apperr.Validation("Password is required")
	}
	if len(password) < minPasswordLen {
		return apperr.Validation("Password must be at least %d characters", minPasswordLen)
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return apperr.Validation(`You cannot use the word "password"`)
	}
	return nil
}

func validateAge(age int) error {
	if age < 0 {
		return apperr.Validation("Age must be a positive number")
	}
	return nil
}
