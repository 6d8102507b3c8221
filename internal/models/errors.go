package models

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError rejects bad input before any store call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a failure from the document store. Mutations are never
// retried on StoreError; a silent retry of a create could duplicate content.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// AuthError covers identity provider rejections (bad credentials, duplicate
// email). The Reason is safe to surface to the client verbatim.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }
