package vault

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/tavernvault/internal/crypto"
	kerrors "github.com/illarion/tavernvault/internal/errors"
	"github.com/illarion/tavernvault/internal/keyring"
)

const ns = "tavern-test"

func newVault(t *testing.T) (*Vault, *keyring.Memory) {
	t.Helper()
	store := keyring.NewMemory()
	return New(store, ns), store
}

func TestInitializeBundleLayout(t *testing.T) {
	v, _ := newVault(t)
	bundle, err := v.Initialize([]byte("correct-horse"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(bundle)
	require.NoError(t, err)
	assert.Len(t, raw, BundleSize)
	assert.Equal(t, 76, BundleSize)

	status, err := v.Status()
	require.NoError(t, err)
	assert.Equal(t, Status{Initialized: true, HasCachedKey: true}, status)
}

func TestInitializeRejectsWeakPassphraseBeforeCaching(t *testing.T) {
	v, store := newVault(t)
	_, err := v.Initialize([]byte("short"))
	assert.True(t, errors.Is(err, kerrors.ErrWeakPassphrase))

	_, found, err := store.Get(ns, keyring.VaultDataKeyName)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUnlockRecoversInitializedKey(t *testing.T) {
	v, _ := newVault(t)
	pass := []byte("correct-horse")
	bundle, err := v.Initialize(pass)
	require.NoError(t, err)
	original, err := v.DataKey()
	require.NoError(t, err)

	require.NoError(t, v.Lock())
	_, err = v.DataKey()
	assert.True(t, errors.Is(err, kerrors.ErrNotUnlocked))

	require.NoError(t, v.Unlock(pass, bundle))
	recovered, err := v.DataKey()
	require.NoError(t, err)
	assert.Equal(t, original, recovered)
	assert.Len(t, recovered, crypto.KeySize)
}

func TestFailedUnlockKeepsCachedKey(t *testing.T) {
	v, _ := newVault(t)
	bundle, err := v.Initialize([]byte("correct-horse"))
	require.NoError(t, err)
	require.NoError(t, v.Lock())

	require.NoError(t, v.Unlock([]byte("correct-horse"), bundle))
	cached, err := v.DataKey()
	require.NoError(t, err)

	err = v.Unlock([]byte("wrong-password"), bundle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, kerrors.ErrAuthenticationFailed))
	assert.Equal(t, "invalid passphrase", kerrors.Message(err))

	still, err := v.DataKey()
	require.NoError(t, err)
	assert.Equal(t, cached, still)
}

func TestWrongPassphraseOnLockedVault(t *testing.T) {
	v, _ := newVault(t)
	bundle, err := v.Initialize([]byte("correct-horse"))
	require.NoError(t, err)
	require.NoError(t, v.Lock())

	err = v.Unlock([]byte("correct-horsE"), bundle)
	assert.True(t, errors.Is(err, kerrors.ErrAuthenticationFailed))

	status, err := v.Status()
	require.NoError(t, err)
	assert.False(t, status.HasCachedKey)
}

func TestRewrapPreservesDataKey(t *testing.T) {
	v, _ := newVault(t)
	oldPass, newPass := []byte("correct-horse"), []byte("battery-staple")
	bundle, err := v.Initialize(oldPass)
	require.NoError(t, err)
	original, err := v.DataKey()
	require.NoError(t, err)
	require.NoError(t, v.Lock())

	rewrapped, err := v.Rewrap(oldPass, newPass, bundle)
	require.NoError(t, err)
	assert.NotEqual(t, bundle, rewrapped)

	// Rewrap leaves the cache alone.
	_, err = v.DataKey()
	assert.True(t, errors.Is(err, kerrors.ErrNotUnlocked))

	require.NoError(t, v.Unlock(newPass, rewrapped))
	recovered, err := v.DataKey()
	require.NoError(t, err)
	assert.Equal(t, original, recovered)

	err = v.Unlock(oldPass, rewrapped)
	assert.True(t, errors.Is(err, kerrors.ErrAuthenticationFailed))
}

func TestRewrapErrors(t *testing.T) {
	v, _ := newVault(t)
	bundle, err := v.Initialize([]byte("correct-horse"))
	require.NoError(t, err)

	_, err = v.Rewrap([]byte("correct-horse"), []byte("short"), bundle)
	assert.True(t, errors.Is(err, kerrors.ErrWeakPassphrase))

	_, err = v.Rewrap([]byte("wrong-password"), []byte("battery-staple"), bundle)
	assert.True(t, errors.Is(err, kerrors.ErrAuthenticationFailed))
}

func TestUnlockMalformedBundles(t *testing.T) {
	v, _ := newVault(t)
	tests := []struct {
		name   string
		bundle string
		want   error
	}{
		{"not base64", "!!!", kerrors.ErrInvalidEncoding},
		{"empty", "", kerrors.ErrInvalidBundle},
		{"salt only", base64.StdEncoding.EncodeToString(make([]byte, 16)), kerrors.ErrInvalidBundle},
		{"payload too short", base64.StdEncoding.EncodeToString(make([]byte, 20)), kerrors.ErrInvalidBundle},
		{"garbage payload", base64.StdEncoding.EncodeToString(make([]byte, BundleSize)), kerrors.ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Unlock([]byte("correct-horse"), tt.bundle)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTamperedBundleNeverUnlocks(t *testing.T) {
	v, _ := newVault(t)
	pass := []byte("correct-horse")
	bundle, err := v.Initialize(pass)
	require.NoError(t, err)
	require.NoError(t, v.Lock())

	raw, err := base64.StdEncoding.DecodeString(bundle)
	require.NoError(t, err)

	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x80
		err := v.Unlock(pass, base64.StdEncoding.EncodeToString(tampered))
		require.Error(t, err, "byte %d", i)
		assert.True(t, errors.Is(err, kerrors.ErrAuthenticationFailed), "byte %d: %v", i, err)
	}

	_, err = v.DataKey()
	assert.True(t, errors.Is(err, kerrors.ErrNotUnlocked))
}

func TestLockIsIdempotent(t *testing.T) {
	v, _ := newVault(t)
	require.NoError(t, v.Lock())
	require.NoError(t, v.Lock())

	status, err := v.Status()
	require.NoError(t, err)
	assert.Equal(t, Status{}, status)
}

func TestReinitializeReplacesCachedKey(t *testing.T) {
	v, _ := newVault(t)
	_, err := v.Initialize([]byte("correct-horse"))
	require.NoError(t, err)
	first, err := v.DataKey()
	require.NoError(t, err)

	_, err = v.Initialize([]byte("correct-horse"))
	require.NoError(t, err)
	second, err := v.DataKey()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestStoreUnavailable(t *testing.T) {
	v, store := newVault(t)
	store.SetUnavailable(errors.New("locked keychain"))

	_, err := v.Status()
	assert.True(t, errors.Is(err, kerrors.ErrStoreUnavailable))

	_, err = v.Initialize([]byte("correct-horse"))
	assert.True(t, errors.Is(err, kerrors.ErrStoreUnavailable))

	err = v.Lock()
	assert.True(t, errors.Is(err, kerrors.ErrStoreUnavailable))
}

func TestBundleEncodeParse(t *testing.T) {
	b := &Bundle{Salt: make([]byte, crypto.SaltSize), Wrapped: []byte{1, 2, 3}}
	parsed, err := ParseBundle(b.Encode())
	require.NoError(t, err)
	assert.Equal(t, b.Salt, parsed.Salt)
	assert.Equal(t, b.Wrapped, parsed.Wrapped)
}

func TestCreateLeavesCacheAlone(t *testing.T) {
	v, store := newVault(t)
	pass := []byte("correct-horse")

	bundle, dataKey, err := Create(pass)
	require.NoError(t, err)
	assert.Len(t, dataKey, crypto.KeySize)

	_, found, err := store.Get(ns, keyring.VaultDataKeyName)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, v.Unlock(pass, bundle))
	cached, err := v.DataKey()
	require.NoError(t, err)
	assert.Equal(t, dataKey, cached)

	_, _, err = Create([]byte("short"))
	assert.True(t, errors.Is(err, kerrors.ErrWeakPassphrase))
}
