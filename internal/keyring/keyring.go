package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	kerrors "github.com/illarion/tavernvault/internal/errors"
)

// Entry names reserved by tavernvault inside its namespace. Any other
// name is an opaque secret passed through verbatim.
const (
	EncryptionKeyName = "encryption_key"
	VaultDataKeyName  = "vault_data_key"
)

// Store is durable key-value storage keyed by (namespace, name).
//
// Get reports an absent entry with found == false and a nil error.
// Delete of an absent entry succeeds.
type Store interface {
	Set(namespace, name, value string) error
	Get(namespace, name string) (value string, found bool, err error)
	Delete(namespace, name string) error
}

// OS stores entries in the platform credential store.
type OS struct{}

// NewOS returns the platform-backed store.
func NewOS() *OS {
	return &OS{}
}

// Set stores a value in the OS keyring
func (OS) Set(namespace, name, value string) error {
	if err := keyring.Set(namespace, name, value); err != nil {
		return kerrors.E(kerrors.KindStoreUnavailable, "keyring set", err)
	}
	return nil
}

// Get retrieves a value from the OS keyring
func (OS) Get(namespace, name string) (string, bool, error) {
	value, err := keyring.Get(namespace, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, kerrors.E(kerrors.KindStoreUnavailable, "keyring get", err)
	}
	return value, true, nil
}

// Delete removes a value from the OS keyring
func (OS) Delete(namespace, name string) error {
	err := keyring.Delete(namespace, name)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return kerrors.E(kerrors.KindStoreUnavailable, "keyring delete", err)
}

// Has checks if an entry is present
func Has(s Store, namespace, name string) (bool, error) {
	_, found, err := s.Get(namespace, name)
	return found, err
}

// Open returns the store selected by kind ("os" or "memory").
func Open(kind string) (Store, error) {
	switch kind {
	case "", "os":
		return NewOS(), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown keyring backend %q", kind)
	}
}
