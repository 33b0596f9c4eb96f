package bloomset

import "errors"

var (
	// ErrInvalidParameters is returned when a filter is constructed with a
	// non-positive capacity, a false positive rate outside (0, 1), or explicit
	// parameters that cannot describe a filter.
	ErrInvalidParameters = errors.New("bloomset: invalid filter parameters")

	// ErrIncompatibleFilter is returned when two filters with different
	// sizes or hash counts are combined or compared.
	ErrIncompatibleFilter = errors.New("bloomset: incompatible filter")

	// ErrIndexOutOfRange is returned by the bit store when an index at or
	// beyond the filter size is accessed. It indicates a bug in the caller.
	ErrIndexOutOfRange = errors.New("bloomset: bit index out of range")

	// ErrCorruptData is returned when serialized data is truncated or has an
	// invalid payload.
	ErrCorruptData = errors.New("bloomset: corrupt serialized data")
)
