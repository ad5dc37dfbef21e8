package credstore

import (
	"context"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps credentials as a JSON secret in the OS keyring.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{service: service, user: user}, nil
}

// Load returns the credentials from the keyring.
func (k *KeyringStore) Load(ctx context.Context) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	secret, err := keyring.Get(k.service, k.user)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading keyring for service %s, user %s: %w", k.service, k.user, err)
	}

	return decode([]byte(secret), "keyring")
}

// Save writes the credentials to the keyring, overwriting any existing value.
func (k *KeyringStore) Save(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(creds)
	if err != nil {
		return err
	}

	return keyring.Set(k.service, k.user, string(data))
}
