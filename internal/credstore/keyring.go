package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name records are filed under in the OS keychain.
const KeyringService = "carrent-cli"

// KeyringBackend keeps records in the OS keychain/credential manager.
type KeyringBackend struct {
	service string
}

// NewKeyringBackend returns a backend for service, or KeyringService when empty.
func NewKeyringBackend(service string) *KeyringBackend {
	if service == "" {
		service = KeyringService
	}
	return &KeyringBackend{service: service}
}

func (k *KeyringBackend) Get(key string) ([]byte, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read keychain: %w", err)
	}
	return []byte(value), nil
}

func (k *KeyringBackend) Set(key string, value []byte) error {
	if err := keyring.Set(k.service, key, string(value)); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

func (k *KeyringBackend) Delete(key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}
	return nil
}
