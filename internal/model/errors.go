package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is fatal and aborts a run before anything is scheduled
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownAlgorithm means the catalog has no entry for an algorithm name
	ErrUnknownAlgorithm = fmt.Errorf("%w: unknown algorithm", ErrConfiguration)
	// ErrMissingThreshold means an algorithm has no confidence threshold
	ErrMissingThreshold = fmt.Errorf("%w: missing threshold", ErrConfiguration)

	ErrTaskExecution = errors.New("task execution failed")
	ErrPersistence   = errors.New("persistence failed")
	ErrInvalidScore  = errors.New("invalid score")
	ErrNotFound      = errors.New("not found")
)

// TripleError ties an error to the (query, algorithm, article) it happened on
type TripleError struct {
	Key TripleKey
	Err error
}

func (e *TripleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *TripleError) Unwrap() error {
	return e.Err
}
