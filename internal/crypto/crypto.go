package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/awnumar/memguard"

	kerrors "github.com/illarion/tavernvault/internal/errors"
)

const (
	KeySize        = 32 // AES-256 key size
	NonceSize      = 12 // GCM nonce size
	TagSize        = 16 // GCM authentication tag size
	MinPayloadSize = NonceSize + 1
)

// Encryptor provides authenticated encryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor holding a copy of key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, kerrors.New(kerrors.KindInvalidEncoding, "", "invalid key length")
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Encryptor{key: k}, nil
}

func (e *Encryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext using AES-256-GCM
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	nonce, err := GenerateRandom(NonceSize)
	if err != nil {
		return nil, err
	}

	// Nonce is the prefix of the returned payload
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts a payload produced by Encrypt
func (e *Encryptor) Decrypt(payload []byte) ([]byte, error) {
	if len(payload) < MinPayloadSize {
		return nil, kerrors.ErrInvalidPayload
	}

	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	nonce, ciphertext := payload[:NonceSize], payload[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, kerrors.E(kerrors.KindAuthenticationFailed, "", err)
	}

	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// Wrap encrypts plaintext under key with a fresh nonce.
func Wrap(key, plaintext []byte) ([]byte, error) {
	enc, err := NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()
	return enc.Encrypt(plaintext)
}

// Unwrap reverses Wrap. Truncated payloads fail with an invalid-payload
// error; every other failure is an authentication failure.
func Unwrap(key, payload []byte) ([]byte, error) {
	enc, err := NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()
	return enc.Decrypt(payload)
}

// EncodeKey renders key material for the credential store.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey parses a stored key. The result is always KeySize bytes.
func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, kerrors.E(kerrors.KindInvalidEncoding, "", err)
	}
	if len(key) != KeySize {
		ClearBytes(key)
		return nil, kerrors.New(kerrors.KindInvalidEncoding, "", "invalid key length")
	}
	return key, nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	memguard.WipeBytes(b)
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() ([]byte, error) {
	return GenerateRandom(KeySize)
}
