package hostname

import "errors"

var (
	// ErrUnknownRoute is returned when a route key exists in neither route table.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrUnknownHost is returned when a hostname has no entry in a lookup table.
	ErrUnknownHost = errors.New("unknown host")

	// ErrNoHostname is returned when the environment does not expose a hostname.
	ErrNoHostname = errors.New("environment has no hostname")
)
