// Package vault implements the passphrase-gated envelope around the data key.
//
// A random 256-bit data key is wrapped with AES-256-GCM under a wrapping
// key derived from the passphrase by Argon2id. The result, the bundle, is
// base64(salt || nonce || wrapped key || tag) and is the only vault state
// the application persists. While unlocked the data key is cached in the
// credential store.
//
// States:
//
//	Uninitialized --Initialize--> Unlocked --Lock--> Locked --Unlock--> Unlocked
//
// Rewrap is a pure bundle transformation and never touches the cache.
// A wrong passphrase and a tampered bundle are indistinguishable to the
// caller: both report "invalid passphrase".
package vault
