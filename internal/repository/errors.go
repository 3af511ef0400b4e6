package repository

import "errors"

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")

	// ErrOverlap signals that the database rejected an active reservation
	// overlapping another one for the same room.
	ErrOverlap = errors.New("overlapping reservation")

	// ErrTimeout covers lock-wait and statement timeouts as well as
	// serialization failures. The operation may be retried.
	ErrTimeout = errors.New("transaction timed out")

	// ErrSequenceUnavailable is returned by SequenceRepository.Next when the
	// sequence does not exist.
	ErrSequenceUnavailable = errors.New("sequence unavailable")
)
