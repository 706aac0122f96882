// Package storage provides the BBolt application-state file for tavernvault.
//
// Database structure uses two buckets:
//   - config: format version and created/modified timestamps
//   - vault: the wrapped-key bundle and when it was last written
//
// The bundle is safe to store in the clear: it is only useful together with
// the passphrase. Keeping it here lets status report "locked" separately
// from "never initialized" without a password.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
