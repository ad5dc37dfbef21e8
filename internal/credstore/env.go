package credstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore reads credentials from two environment variables. It is read-only.
type EnvStore struct {
	tokenIDKey     string
	accessTokenKey string
	lookup         func(string) (string, bool)
}

// Compile-time check to ensure EnvStore implements Store
var _ Store = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore reading the given variable names.
// lookup defaults to os.LookupEnv when nil.
func NewEnvStore(tokenIDKey, accessTokenKey string, lookup func(string) (string, bool)) (*EnvStore, error) {
	if tokenIDKey == "" || accessTokenKey == "" {
		return nil, fmt.Errorf("environment keys cannot be empty")
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}

	return &EnvStore{
		tokenIDKey:     tokenIDKey,
		accessTokenKey: accessTokenKey,
		lookup:         lookup,
	}, nil
}

// Load returns the credentials held in the environment.
func (e *EnvStore) Load(ctx context.Context) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	tokenID, ok := e.lookup(e.tokenIDKey)
	if !ok || tokenID == "" {
		return Credentials{}, fmt.Errorf("environment variable %s is not set", e.tokenIDKey)
	}
	accessToken, ok := e.lookup(e.accessTokenKey)
	if !ok || accessToken == "" {
		return Credentials{}, fmt.Errorf("environment variable %s is not set", e.accessTokenKey)
	}

	return Credentials{TokenID: tokenID, AccessToken: accessToken}, nil
}

// Save always fails; environment variables are managed outside the process.
func (e *EnvStore) Save(ctx context.Context, _ Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrReadOnly
}
