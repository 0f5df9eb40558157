package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates the store rejected an insert because the email is taken.
	ErrDuplicateEmail = errors.New("repository: email already registered")
)
