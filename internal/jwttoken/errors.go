package jwttoken

import (
	"errors"
	"fmt"
)

var (
	// ErrNoToken is returned by Token while no JWT has been cached.
	ErrNoToken = errors.New("no jwt token retrieved")

	// ErrMissingAccessToken is returned when the exchange response has no access_token.
	ErrMissingAccessToken = errors.New("response contains no access_token")

	// ErrNotJWT is returned when the cached token cannot be parsed as a JWT.
	ErrNotJWT = errors.New("token is not a jwt")
)

// StatusError reports a non-2xx response from the OAuth endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("token endpoint returned status %d", e.Code)
	}
	return fmt.Sprintf("token endpoint returned status %d: %s", e.Code, e.Body)
}
