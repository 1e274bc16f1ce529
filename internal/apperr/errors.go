// Package apperr holds the sentinel conditions shared across webnote components.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps any failure of the underlying key-value storage.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrContentUnavailable means a page had no body or too little text to use.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrTabUnavailable means no active tab was found when one was expected.
	ErrTabUnavailable = errors.New("tab unavailable")
)
