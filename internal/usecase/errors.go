package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrSchemaMismatch        = errors.New("warehouse schema mismatch")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
