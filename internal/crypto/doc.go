// Package crypto provides cryptographic operations for tavernvault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key
//   - 12-byte random nonce per encryption operation, never a counter
//   - payload layout nonce || ciphertext || 16-byte tag
//
// Key derivation uses Argon2id with the RFC 9106 second recommended
// profile (t=2, m=19 MiB, p=1), 16-byte salt, 32-byte output.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
