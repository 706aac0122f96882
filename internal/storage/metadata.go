package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Info summarizes the state file for status output
type Info struct {
	Version       string    `json:"version"`
	Created       time.Time `json:"created"`
	Modified      time.Time `json:"modified"`
	HasBundle     bool      `json:"has_bundle"`
	BundleUpdated time.Time `json:"bundle_updated,omitempty"`
}

// Info reads the state summary without touching the bundle contents
func (s *Storage) Info() (*Info, error) {
	info := &Info{}
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		info.Version = string(config.Get(ConfigVersion))
		if err := unmarshalTime(config.Get(ConfigCreated), &info.Created); err != nil {
			return fmt.Errorf("created time: %w", err)
		}
		if err := unmarshalTime(config.Get(ConfigModified), &info.Modified); err != nil {
			return fmt.Errorf("modified time: %w", err)
		}

		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return nil
		}
		info.HasBundle = vault.Get(VaultBundle) != nil
		return unmarshalTime(vault.Get(VaultBundleUpdated), &info.BundleUpdated)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func unmarshalTime(data []byte, t *time.Time) error {
	if data == nil {
		return nil
	}
	return t.UnmarshalBinary(data)
}
