package vault

import (
	"errors"

	"github.com/illarion/tavernvault/internal/crypto"
	kerrors "github.com/illarion/tavernvault/internal/errors"
	"github.com/illarion/tavernvault/internal/keyring"
)

// MinPassphraseLength is measured in bytes.
const MinPassphraseLength = 8

const invalidPassphrase = "invalid passphrase"

// Status reports whether a data key is cached.
//
// Initialized mirrors HasCachedKey: the vault cannot see the persisted
// bundle, so "never initialized" and "locked" look the same from here.
type Status struct {
	Initialized  bool `json:"initialized"`
	HasCachedKey bool `json:"has_cached_key"`
}

// Vault manages the data key lifecycle.
type Vault struct {
	store     keyring.Store
	namespace string
}

// New returns a Vault caching its data key in store under namespace.
func New(store keyring.Store, namespace string) *Vault {
	return &Vault{store: store, namespace: namespace}
}

// CheckPassphrase applies the length policy.
func CheckPassphrase(passphrase []byte) error {
	if len(passphrase) < MinPassphraseLength {
		return kerrors.ErrWeakPassphrase
	}
	return nil
}

// Status reports the cache state.
func (v *Vault) Status() (Status, error) {
	cached, err := keyring.Has(v.store, v.namespace, keyring.VaultDataKeyName)
	if err != nil {
		return Status{}, err
	}
	return Status{Initialized: cached, HasCachedKey: cached}, nil
}

// Initialize creates a new data key, caches it and returns its bundle.
// Any previously cached data key is replaced.
func (v *Vault) Initialize(passphrase []byte) (string, error) {
	bundle, dataKey, err := Create(passphrase)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(dataKey)

	if err := v.Cache(dataKey); err != nil {
		return "", err
	}
	return bundle, nil
}

// Create generates a data key and wraps it under passphrase without
// touching the cache. The caller should ClearBytes the returned key.
func Create(passphrase []byte) (bundle string, dataKey []byte, err error) {
	if err := CheckPassphrase(passphrase); err != nil {
		return "", nil, err
	}

	dataKey, err = crypto.GenerateKey()
	if err != nil {
		return "", nil, err
	}

	bundle, err = seal(dataKey, passphrase)
	if err != nil {
		crypto.ClearBytes(dataKey)
		return "", nil, err
	}
	return bundle, dataKey, nil
}

// Unlock recovers the data key from bundle and caches it. On failure the
// cache is left as it was.
func (v *Vault) Unlock(passphrase []byte, bundle string) error {
	dataKey, err := open(passphrase, bundle, "vault unlock")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(dataKey)

	return v.Cache(dataKey)
}

// Rewrap re-wraps the data key under newPassphrase with a fresh salt.
// The cache is not touched; persisting the new bundle is up to the caller.
func (v *Vault) Rewrap(oldPassphrase, newPassphrase []byte, bundle string) (string, error) {
	if err := CheckPassphrase(newPassphrase); err != nil {
		return "", err
	}

	dataKey, err := open(oldPassphrase, bundle, "vault rewrap")
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(dataKey)

	return seal(dataKey, newPassphrase)
}

// DataKey returns the cached data key. The caller should ClearBytes it.
func (v *Vault) DataKey() ([]byte, error) {
	encoded, found, err := v.store.Get(v.namespace, keyring.VaultDataKeyName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, kerrors.ErrNotUnlocked
	}
	key, err := crypto.DecodeKey(encoded)
	if err != nil {
		return nil, &kerrors.Error{Kind: kerrors.KindInvalidEncoding, Op: "load data key", Err: err}
	}
	return key, nil
}

// Lock forgets the cached data key. Locking a locked vault succeeds.
func (v *Vault) Lock() error {
	return v.store.Delete(v.namespace, keyring.VaultDataKeyName)
}

// Cache stores dataKey as the unlocked data key.
func (v *Vault) Cache(dataKey []byte) error {
	return v.store.Set(v.namespace, keyring.VaultDataKeyName, crypto.EncodeKey(dataKey))
}

// seal wraps dataKey under a key derived from passphrase and a new salt.
func seal(dataKey, passphrase []byte) (string, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return "", err
	}

	wrappingKey, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(wrappingKey)

	wrapped, err := crypto.Wrap(wrappingKey, dataKey)
	if err != nil {
		return "", err
	}

	return (&Bundle{Salt: salt, Wrapped: wrapped}).Encode(), nil
}

// open recovers the data key from an encoded bundle.
func open(passphrase []byte, encoded, op string) ([]byte, error) {
	bundle, err := ParseBundle(encoded)
	if err != nil {
		return nil, err
	}

	wrappingKey, err := crypto.DeriveKey(passphrase, bundle.Salt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(wrappingKey)

	dataKey, err := crypto.Unwrap(wrappingKey, bundle.Wrapped)
	switch {
	case errors.Is(err, kerrors.ErrInvalidPayload):
		return nil, kerrors.E(kerrors.KindInvalidBundle, op, nil)
	case errors.Is(err, kerrors.ErrAuthenticationFailed):
		return nil, &kerrors.Error{Kind: kerrors.KindAuthenticationFailed, Op: op, Msg: invalidPassphrase, Err: err}
	case err != nil:
		return nil, err
	}

	if len(dataKey) != crypto.KeySize {
		crypto.ClearBytes(dataKey)
		return nil, kerrors.New(kerrors.KindInvalidBundle, op, "invalid key length")
	}
	return dataKey, nil
}
