package todo

import "fmt"

// ValidationError is a rejected input. It never reaches the backend.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ErrEmptyTitle is returned for blank or whitespace-only input.
var ErrEmptyTitle = &ValidationError{Msg: "Todo cannot be empty!"}

// BackendError is a failed call to the collection.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *BackendError) Unwrap() error { return e.Err }
