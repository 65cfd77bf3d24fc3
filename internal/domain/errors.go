package domain

import "errors"

// Sentinel errors for the failure surface. Callers match them with
// errors.Is; lower layers wrap them with file paths and entry context.
var (
	// ErrNotFound indicates a missing input file.
	ErrNotFound = errors.New("not found")

	// ErrCorruptStore indicates a file that is not a readable task store.
	ErrCorruptStore = errors.New("corrupt store")

	// ErrIncompatibleSchema indicates a valid database that does not carry
	// the expected task store schema.
	ErrIncompatibleSchema = errors.New("incompatible schema")

	// ErrEmptyInput indicates a merge invoked with no input logs.
	ErrEmptyInput = errors.New("no input logs")

	// ErrWriteFailure indicates the merged store could not be written. The
	// original primary file is untouched when this is returned.
	ErrWriteFailure = errors.New("write failure")

	// ErrConcurrentMerge indicates another merge holds the lock on the
	// primary database. Callers should retry later.
	ErrConcurrentMerge = errors.New("concurrent merge detected")
)
