package cleanblog

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a post, comment or user id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the session is not allowed to perform an admin action.
	ErrForbidden = errors.New("forbidden")
	// ErrLoginRequired is returned when an anonymous session attempts a write.
	ErrLoginRequired = errors.New("login required")

	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateTitle    = errors.New("a post with this title already exists")

	ErrUnknownEmail = errors.New("no account with that email")
	ErrBadPassword  = errors.New("incorrect password")

	// ErrValidation matches every FieldErrors value under errors.Is.
	ErrValidation = errors.New("validation failed")
)

// FieldErrors maps a form field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any FieldErrors.
func (fe FieldErrors) Is(target error) bool {
	return target == ErrValidation
}
