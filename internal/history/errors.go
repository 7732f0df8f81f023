package history

import "fmt"

// ValidationError means the submitted record itself is bad and a retry
// with the same input will fail again
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// FetchError means reading from storage failed, the previous snapshot
// is kept whole
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch history: %s", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PersistenceError means a validated record could not be stored
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist record: %s", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
