package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrReadOnly is returned by Save on backends that cannot be written.
var ErrReadOnly = errors.New("credential store is read-only")

// Credentials are the inputs of a JWT exchange.
type Credentials struct {
	TokenID     string `json:"token_id"`
	AccessToken string `json:"access_token"`
}

// Validate reports whether both fields are set.
func (c Credentials) Validate() error {
	if c.TokenID == "" {
		return errors.New("token_id is empty")
	}
	if c.AccessToken == "" {
		return errors.New("access_token is empty")
	}
	return nil
}

// Store loads and saves credentials.
type Store interface {
	// Load returns the stored credentials. Returns error if they are missing or incomplete.
	Load(ctx context.Context) (Credentials, error)

	// Save persists the credentials. Returns ErrReadOnly on read-only backends.
	Save(ctx context.Context, creds Credentials) error
}

func decode(data []byte, source string) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decoding credentials from %s: %w", source, err)
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("invalid credentials in %s: %w", source, err)
	}
	return creds, nil
}

func encode(creds Credentials) ([]byte, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(creds)
}
