package tasks

import "errors"

var (
	// ErrNotFound is returned when an id does not resolve anywhere in the forest.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidStatus is returned for a status outside TODO, IN_PROGRESS and DONE.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrTooDeep is returned when a subtask would exceed MaxDepth.
	ErrTooDeep = errors.New("task nesting too deep")
	// ErrMalformedStorage is returned by Open when persisted bytes cannot be
	// decoded into a forest.
	ErrMalformedStorage = errors.New("malformed task storage")
	// ErrPersistence wraps failures of the Blob collaborator.
	ErrPersistence = errors.New("task persistence failed")
)
