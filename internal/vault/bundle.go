package vault

import (
	"encoding/base64"

	"github.com/illarion/tavernvault/internal/crypto"
	kerrors "github.com/illarion/tavernvault/internal/errors"
)

// MinBundleSize leaves room for the salt and at least one payload byte.
const MinBundleSize = crypto.SaltSize + 1

// BundleSize is the length of a decoded bundle wrapping a 32-byte key.
const BundleSize = crypto.SaltSize + crypto.NonceSize + crypto.KeySize + crypto.TagSize

// Bundle is the decoded persisted vault state.
type Bundle struct {
	Salt    []byte
	Wrapped []byte
}

// ParseBundle decodes the base64 form.
func ParseBundle(encoded string) (*Bundle, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, kerrors.E(kerrors.KindInvalidEncoding, "parse bundle", err)
	}
	if len(raw) < MinBundleSize {
		return nil, kerrors.E(kerrors.KindInvalidBundle, "parse bundle", nil)
	}
	return &Bundle{
		Salt:    raw[:crypto.SaltSize],
		Wrapped: raw[crypto.SaltSize:],
	}, nil
}

// Encode returns the base64 form.
func (b *Bundle) Encode() string {
	raw := make([]byte, 0, len(b.Salt)+len(b.Wrapped))
	raw = append(raw, b.Salt...)
	raw = append(raw, b.Wrapped...)
	return base64.StdEncoding.EncodeToString(raw)
}
