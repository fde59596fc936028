package pool

import "errors"

var (
	// ErrDuplicateKind is returned by CreatePool when the kind is already registered.
	ErrDuplicateKind = errors.New("duplicate pool kind")
	// ErrMissingPrototype is returned by CreatePool for options without a usable prototype.
	ErrMissingPrototype = errors.New("pool options missing prototype")
	// ErrUnknownKind is returned by Allocate for an unregistered kind when
	// auto-creation is off or the resolver does not know the kind.
	ErrUnknownKind = errors.New("unknown pool kind")
	// ErrExhausted is a soft failure: the pool is at capacity and nothing
	// could be recycled. Callers should skip the effect, not abort.
	ErrExhausted = errors.New("pool exhausted")
)
