// File: internal/common/dberrors.go
package common

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err came from a unique index on either
// postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique_violation")
}

// MapPersistenceError turns a driver error into an APIError by looking at the
// message text. Errors it does not recognise are returned unchanged.
func MapPersistenceError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := IsAPIError(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound.WithDetails(entity + " not found.")
	}
	if IsUniqueViolation(err) {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "email"):
			return ErrConflict.WithDetails("An account with this email already exists.")
		case strings.Contains(msg, "phone"):
			return ErrConflict.WithDetails("An account with this phone number already exists.")
		case strings.Contains(msg, "inspection_code"):
			return ErrConflict.WithDetails("A record with this inspection code already exists.")
		}
		return ErrConflict.WithDetails(entity + " already exists.")
	}
	return err
}

// RetryOnce runs fn and, if it fails with an error whose message contains one
// of the given substrings, runs it exactly one more time.
func RetryOnce(ctx context.Context, fn func(ctx context.Context) error, substrings ...string) error {
	err := fn(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, s := range substrings {
		if s != "" && strings.Contains(msg, strings.ToLower(s)) {
			return fn(ctx)
		}
	}
	return err
}
