package crypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost. These match the reference defaults and must not be
// lowered: the cost is what protects a stolen bundle.
const (
	SaltSize      = 16
	ArgonTime     = 2
	ArgonMemory   = 19 * 1024 // KiB
	ArgonThreads  = 1
	DerivedKeyLen = KeySize
)

// NewSalt returns a fresh random KDF salt.
func NewSalt() ([]byte, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a wrapping key from a passphrase with Argon2id.
// The caller owns the result and should ClearBytes it.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	return argon2.IDKey(passphrase, salt, ArgonTime, ArgonMemory, ArgonThreads, DerivedKeyLen), nil
}
