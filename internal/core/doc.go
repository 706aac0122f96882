// Package core binds every tavernvault operation behind one facade.
//
// Service owns no state of its own. Secrets and cached keys live in the
// credential store, the wrapped vault bundle lives in the bbolt state
// file, and database backups live in the backups directory. Operations:
//   - Secrets: SetSecret, GetSecret, DeleteSecret
//   - Text: EncryptText, DecryptText
//   - Vault: VaultStatus, VaultInitialize, VaultUnlock, VaultRewrap,
//     VaultGetDataKey, VaultLock, VaultForget
//   - Backups: BackupDatabase, ListDatabaseBackups, RestoreDatabase,
//     VerifyBackup
//
// Passphrase input helpers (terminal prompt and environment) are in
// password.go.
package core
