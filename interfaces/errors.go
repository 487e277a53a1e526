package interfaces

import "errors"

var (
	// ErrInvalidArgument is returned for malformed or mismatched input:
	// header mismatch, parse failure, unsupported key type, unknown encoding.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInternal is returned when a lower layer violates its contract:
	// empty serialization, wrong digest length, failed server start.
	ErrInternal = errors.New("internal error")

	// ErrUnimplemented is returned for recognized but unsupported features,
	// currently only PEM key encoding on the decode path.
	ErrUnimplemented = errors.New("unimplemented")
)
