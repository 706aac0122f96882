package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // version, timestamps
	VaultBucket  = []byte("vault")  // wrapped bundle
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
)

// Vault keys
var (
	VaultBundle        = []byte("bundle")
	VaultBundleUpdated = []byte("bundle_updated")
)

const formatVersion = "1"

var (
	ErrNotInitialized = errors.New("state store not initialized")
	ErrNoBundle       = errors.New("no vault bundle stored")
)

// Storage provides BBolt-based application state
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a state database, creating its directory
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// OpenInitialized opens the state database and initializes it if needed
func OpenInitialized(path string) (*Storage, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	ok, err := s.IsInitialized()
	if err == nil && !ok {
		err = s.Initialize()
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, VaultBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte(formatVersion)); err != nil {
			return err
		}

		now, _ := time.Now().MarshalBinary()
		if config.Get(ConfigCreated) == nil {
			if err := config.Put(ConfigCreated, now); err != nil {
				return err
			}
		}
		return config.Put(ConfigModified, now)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil && tx.Bucket(VaultBucket) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetBundle stores the encoded vault bundle, replacing any previous one
func (s *Storage) SetBundle(bundle string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return ErrNotInitialized
		}
		if err := vault.Put(VaultBundle, []byte(bundle)); err != nil {
			return err
		}
		now, _ := time.Now().MarshalBinary()
		if err := vault.Put(VaultBundleUpdated, now); err != nil {
			return err
		}
		return touch(tx, now)
	})
}

// GetBundle retrieves the encoded vault bundle
func (s *Storage) GetBundle() (string, error) {
	var bundle string
	err := s.db.View(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return ErrNotInitialized
		}
		data := vault.Get(VaultBundle)
		if data == nil {
			return ErrNoBundle
		}
		// Copy: the slice is only valid during the transaction
		bundle = string(data)
		return nil
	})
	return bundle, err
}

// HasBundle reports whether a bundle is stored
func (s *Storage) HasBundle() (bool, error) {
	_, err := s.GetBundle()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoBundle), errors.Is(err, ErrNotInitialized):
		return false, nil
	default:
		return false, err
	}
}

// DeleteBundle removes the stored bundle. Deleting an absent bundle succeeds.
func (s *Storage) DeleteBundle() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return nil
		}
		if err := vault.Delete(VaultBundle); err != nil {
			return err
		}
		if err := vault.Delete(VaultBundleUpdated); err != nil {
			return err
		}
		now, _ := time.Now().MarshalBinary()
		return touch(tx, now)
	})
}

func touch(tx *bolt.Tx, now []byte) error {
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return ErrNotInitialized
	}
	return config.Put(ConfigModified, now)
}

// Compact creates a compacted copy of the database, removing unused space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	// Reopen database
	s.db, err = bolt.Open(srcPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
