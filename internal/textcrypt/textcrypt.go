// Package textcrypt encrypts arbitrary UTF-8 text at rest under a single
// key cached in the credential store.
//
// The key is created lazily on first use. Concurrent first calls are not
// coordinated: if two callers race before either persists, both generate a
// key and the last write wins. Callers serialize at the boundary.
package textcrypt

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/illarion/tavernvault/internal/crypto"
	kerrors "github.com/illarion/tavernvault/internal/errors"
	"github.com/illarion/tavernvault/internal/keyring"
)

// Service encrypts and decrypts text with the persistent key.
type Service struct {
	store     keyring.Store
	namespace string
}

// New returns a Service reading its key from store under namespace.
func New(store keyring.Store, namespace string) *Service {
	return &Service{store: store, namespace: namespace}
}

// GetOrCreateKey returns the persistent key, generating and storing it
// when absent. The caller should ClearBytes the result.
func (s *Service) GetOrCreateKey() ([]byte, error) {
	encoded, found, err := s.store.Get(s.namespace, keyring.EncryptionKeyName)
	if err != nil {
		return nil, err
	}
	if found {
		key, err := crypto.DecodeKey(encoded)
		if err != nil {
			return nil, &kerrors.Error{Kind: kerrors.KindInvalidEncoding, Op: "load encryption key", Err: err}
		}
		return key, nil
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(s.namespace, keyring.EncryptionKeyName, crypto.EncodeKey(key)); err != nil {
		crypto.ClearBytes(key)
		return nil, err
	}
	return key, nil
}

// Encrypt returns base64(nonce || ciphertext || tag).
func (s *Service) Encrypt(plaintext string) (string, error) {
	key, err := s.GetOrCreateKey()
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(key)

	payload, err := crypto.Wrap(key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt. A tampered payload or one produced under a
// different key fails authentication.
func (s *Service) Decrypt(payload string) (string, error) {
	key, err := s.GetOrCreateKey()
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(key)

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", kerrors.E(kerrors.KindInvalidEncoding, "decrypt text", err)
	}

	plaintext, err := crypto.Unwrap(key, decoded)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		crypto.ClearBytes(plaintext)
		return "", kerrors.New(kerrors.KindInvalidEncoding, "decrypt text", "decrypted text is not valid UTF-8")
	}
	return string(plaintext), nil
}
