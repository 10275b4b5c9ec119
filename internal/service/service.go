// Package service holds the use cases behind the HTTP handlers. Services are
// stateless apart from their dependencies and safe for concurrent use.
package service

import (
	"errors"
	"time"

	"grocery/internal/apperr"
	"grocery/internal/store"
)

// Clock returns the current time. Tests replace it to pin timestamps.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// classify maps a store error to an apperr kind. Errors that already carry a
// kind pass through unchanged.
func classify(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.ServerFault(err)
}
