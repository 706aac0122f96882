package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/tavernvault/internal/backup"
	"github.com/illarion/tavernvault/internal/config"
	"github.com/illarion/tavernvault/internal/crypto"
	kerrors "github.com/illarion/tavernvault/internal/errors"
	"github.com/illarion/tavernvault/internal/keyring"
	"github.com/illarion/tavernvault/internal/logging"
	"github.com/illarion/tavernvault/internal/storage"
	"github.com/illarion/tavernvault/internal/textcrypt"
	"github.com/illarion/tavernvault/internal/vault"
)

const safetyBackupReason = "pre-restore"

var (
	ErrVaultExists   = errors.New("vault already initialized")
	ErrNoStoredVault = errors.New("no stored vault bundle")
)

// VaultStatus extends the vault's own status with the persisted bundle.
// Initialized is true when a key is cached or a bundle is stored.
type VaultStatus struct {
	Initialized   bool      `json:"initialized"`
	HasCachedKey  bool      `json:"has_cached_key"`
	BundleStored  bool      `json:"bundle_stored"`
	BundleUpdated time.Time `json:"bundle_updated,omitzero"`
}

// Service is the command-surface facade.
type Service struct {
	cfg     *config.Config
	store   keyring.Store
	log     logging.Logger
	text    *textcrypt.Service
	vault   *vault.Vault
	backups *backup.Manager
}

// New builds a Service over cfg using store for credentials.
func New(cfg *config.Config, store keyring.Store, log logging.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		log:     log,
		text:    textcrypt.New(store, cfg.ServiceName),
		vault:   vault.New(store, cfg.ServiceName),
		backups: backup.NewManager(cfg.BackupsPath(), cfg.MaxBackups),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// SetSecret stores value under name, replacing any previous value.
func (s *Service) SetSecret(name, value string) error {
	s.log.Debugf("set secret %q", name)
	return s.store.Set(s.cfg.ServiceName, name, value)
}

// GetSecret returns the value stored under name. An absent entry is
// reported with found == false.
func (s *Service) GetSecret(name string) (value string, found bool, err error) {
	s.log.Debugf("get secret %q", name)
	return s.store.Get(s.cfg.ServiceName, name)
}

// DeleteSecret removes name. Deleting an absent entry succeeds.
func (s *Service) DeleteSecret(name string) error {
	s.log.Debugf("delete secret %q", name)
	return s.store.Delete(s.cfg.ServiceName, name)
}

func (s *Service) EncryptText(plaintext string) (string, error) {
	s.log.Debugf("encrypt text (%d bytes)", len(plaintext))
	return s.text.Encrypt(plaintext)
}

func (s *Service) DecryptText(payload string) (string, error) {
	s.log.Debugf("decrypt text (%d chars)", len(payload))
	return s.text.Decrypt(payload)
}

// VaultStatus reports the cache and the persisted bundle. It never
// creates the state file.
func (s *Service) VaultStatus() (VaultStatus, error) {
	st, err := s.vault.Status()
	if err != nil {
		return VaultStatus{}, err
	}
	status := VaultStatus{HasCachedKey: st.HasCachedKey}

	if _, err := os.Stat(s.cfg.StatePath()); err == nil {
		err := s.withState(func(db *storage.Storage) error {
			info, err := db.Info()
			if err != nil {
				return err
			}
			status.BundleStored = info.HasBundle
			status.BundleUpdated = info.BundleUpdated
			return nil
		})
		if err != nil {
			return VaultStatus{}, err
		}
	} else if !os.IsNotExist(err) {
		return VaultStatus{}, kerrors.E(kerrors.KindFilesystem, "vault status", err)
	}

	status.Initialized = status.HasCachedKey || status.BundleStored
	s.log.Debugf("vault status: %+v", status)
	return status, nil
}

// VaultInitialize creates a new data key, stores its bundle and then
// caches the key. A stored bundle is only replaced when force is set; the
// old data key is then unrecoverable. If caching fails the bundle is
// already stored and VaultUnlock recovers the key.
func (s *Service) VaultInitialize(passphrase []byte, force bool) (string, error) {
	if err := vault.CheckPassphrase(passphrase); err != nil {
		return "", err
	}

	var (
		bundle  string
		dataKey []byte
	)
	err := s.withState(func(db *storage.Storage) error {
		exists, err := db.HasBundle()
		if err != nil {
			return err
		}
		if exists && !force {
			return ErrVaultExists
		}

		bundle, dataKey, err = vault.Create(passphrase)
		if err != nil {
			return err
		}
		return db.SetBundle(bundle)
	})
	defer crypto.ClearBytes(dataKey)
	if err != nil {
		return "", err
	}

	if err := s.vault.Cache(dataKey); err != nil {
		return "", err
	}

	s.log.Infof("vault initialized, bundle stored in %s", s.cfg.StatePath())
	return bundle, nil
}

// VaultUnlock recovers the data key and caches it. An empty bundle means
// the stored one.
func (s *Service) VaultUnlock(passphrase []byte, bundle string) error {
	if bundle == "" {
		stored, err := s.storedBundle()
		if err != nil {
			return err
		}
		bundle = stored
	}

	if err := s.vault.Unlock(passphrase, bundle); err != nil {
		return err
	}
	s.log.Infof("vault unlocked")
	return nil
}

// VaultRewrap re-wraps the data key under a new passphrase. With an empty
// bundle the stored one is used and replaced by the result; an explicit
// bundle is only transformed.
func (s *Service) VaultRewrap(oldPassphrase, newPassphrase []byte, bundle string) (string, error) {
	if bundle != "" {
		return s.vault.Rewrap(oldPassphrase, newPassphrase, bundle)
	}

	var rewrapped string
	err := s.withState(func(db *storage.Storage) error {
		stored, err := db.GetBundle()
		if errors.Is(err, storage.ErrNoBundle) {
			return ErrNoStoredVault
		}
		if err != nil {
			return err
		}

		rewrapped, err = s.vault.Rewrap(oldPassphrase, newPassphrase, stored)
		if err != nil {
			return err
		}
		return db.SetBundle(rewrapped)
	})
	if err != nil {
		return "", err
	}

	s.log.Infof("vault passphrase changed, stored bundle replaced")
	return rewrapped, nil
}

// VaultGetDataKey returns the cached data key in base64.
func (s *Service) VaultGetDataKey() (string, error) {
	key, err := s.vault.DataKey()
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(key)
	return crypto.EncodeKey(key), nil
}

// VaultLock removes the cached data key. Locking a locked vault succeeds.
func (s *Service) VaultLock() error {
	if err := s.vault.Lock(); err != nil {
		return err
	}
	s.log.Infof("vault locked")
	return nil
}

// VaultForget locks the vault and deletes the stored bundle, then
// compacts the state file. Without a bundle kept elsewhere the data key
// is gone for good.
func (s *Service) VaultForget() error {
	if err := s.vault.Lock(); err != nil {
		return err
	}
	if _, err := os.Stat(s.cfg.StatePath()); os.IsNotExist(err) {
		return nil
	}

	err := s.withState(func(db *storage.Storage) error {
		if err := db.DeleteBundle(); err != nil {
			return err
		}
		if err := db.Compact(); err != nil {
			s.log.Warnf("state compaction failed: %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Infof("stored bundle removed")
	return nil
}

// BackupDatabase copies the application database into the backups
// directory and applies the retention limit.
func (s *Service) BackupDatabase(reason string) (string, error) {
	s.log.Debugf("backup database %s (reason %q)", s.cfg.DatabasePath(), reason)
	path, err := s.backups.Backup(s.cfg.DatabasePath(), reason)
	if err != nil {
		return "", err
	}
	s.log.Infof("backup written to %s", path)
	return path, nil
}

// ListDatabaseBackups returns the backups newest first.
func (s *Service) ListDatabaseBackups() ([]backup.Record, error) {
	return s.backups.List()
}

// RestoreDatabase replaces the application database with a backup. ref is
// a path or a backup file name inside the backups directory. With verify
// set, the backup must pass an integrity check first. With backupFirst
// set, the current database is backed up before it is replaced; rotation
// runs only after the restore and never removes the restored backup.
func (s *Service) RestoreDatabase(ctx context.Context, ref string, verify, backupFirst bool) error {
	path, err := s.backups.Resolve(ref)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return kerrors.E(kerrors.KindBackupNotFound, "restore", nil)
	}

	if verify {
		s.log.Debugf("verifying %s before restore", path)
		if err := backup.Verify(ctx, path); err != nil {
			return err
		}
	}

	if backupFirst {
		safety, err := s.backups.Copy(s.cfg.DatabasePath(), safetyBackupReason, path)
		switch {
		case errors.Is(err, kerrors.ErrDatabaseNotFound):
			s.log.Infof("no database to back up before restore")
		case err != nil:
			return err
		default:
			s.log.Infof("safety backup written to %s", safety)
		}
	}

	s.log.Debugf("restore %s over %s", path, s.cfg.DatabasePath())
	if err := backup.Restore(path, s.cfg.DatabasePath()); err != nil {
		return err
	}
	s.log.Infof("database restored from %s", path)

	if backupFirst {
		if err := s.backups.Rotate(path); err != nil {
			return err
		}
	}
	return nil
}

// VerifyBackup runs a SQLite integrity check on a backup.
func (s *Service) VerifyBackup(ctx context.Context, ref string) error {
	path, err := s.backups.Resolve(ref)
	if err != nil {
		return err
	}
	s.log.Debugf("verify backup %s", path)
	return backup.Verify(ctx, path)
}

// GetAppDataDir returns the application data directory.
func (s *Service) GetAppDataDir() string {
	return s.cfg.DataDir
}

func (s *Service) storedBundle() (string, error) {
	var bundle string
	err := s.withState(func(db *storage.Storage) error {
		var err error
		bundle, err = db.GetBundle()
		if errors.Is(err, storage.ErrNoBundle) {
			return ErrNoStoredVault
		}
		return err
	})
	return bundle, err
}

// withState opens the state file for the duration of fn. Storage failures
// are reported as filesystem errors; errors already classified pass
// through.
func (s *Service) withState(fn func(db *storage.Storage) error) error {
	db, err := storage.OpenInitialized(s.cfg.StatePath())
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "open state", err)
	}
	defer db.Close()
	s.log.Debugf("state file %s opened", db.Path())

	err = fn(db)
	if err == nil || errors.Is(err, ErrVaultExists) || errors.Is(err, ErrNoStoredVault) {
		return err
	}
	var classified *kerrors.Error
	if errors.As(err, &classified) {
		return err
	}
	return kerrors.E(kerrors.KindFilesystem, "state", fmt.Errorf("%s: %w", s.cfg.StatePath(), err))
}
