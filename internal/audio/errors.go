package audio

import "errors"

// Error taxonomy. Every fallible operation wraps one of these sentinels
// so callers can branch with errors.Is. No failure is fatal to the
// manager; a failing asset leaves the registry and other assets intact.
var (
	// ErrNotFound reports an unknown asset name
	ErrNotFound = errors.New("asset not found")

	// ErrAlreadyExists reports a duplicate registration, including a
	// name whose fetch is still in flight
	ErrAlreadyExists = errors.New("asset already registered")

	// ErrInvalidState reports an operation attempted before its
	// prerequisite state, e.g. decode before the engine is attached
	ErrInvalidState = errors.New("invalid state")

	// ErrOutOfRange reports a volume level outside [0,100] or an
	// unknown channel
	ErrOutOfRange = errors.New("value out of range")

	// ErrSource reports a fetch failure (file, network)
	ErrSource = errors.New("source fetch failed")

	// ErrDecode reports malformed audio data
	ErrDecode = errors.New("decode failed")
)
