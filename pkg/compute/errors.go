package compute

import "errors"

var (
	// ErrInvalidArgument is returned when Generate is asked for a
	// non-positive device count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPreconditionViolation is returned when Score receives devices that
	// have not been normalized.
	ErrPreconditionViolation = errors.New("precondition violation")
)
