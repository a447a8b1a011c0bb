package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")

	// ErrStorage tags persistence failures so callers can tell them apart
	// from validation errors.
	ErrStorage = errors.New("storage failure")
)

// storageErr wraps a persistence failure under ErrStorage.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
