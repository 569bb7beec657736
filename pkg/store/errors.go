package store

import "errors"

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateURL is returned when another writer already created an
	// article for the same URL.
	ErrDuplicateURL = errors.New("article URL already exists")
)
