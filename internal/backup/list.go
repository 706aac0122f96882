package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	kerrors "github.com/illarion/tavernvault/internal/errors"
)

// Record describes one backup file.
type Record struct {
	Path string `json:"path"`
	// CreatedAt is the YYYYMMDD_HHMMSS prefix of the file name.
	CreatedAt string `json:"created_at"`
	Reason    string `json:"reason"`
}

// Time parses CreatedAt as a UTC time.
func (r Record) Time() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, r.CreatedAt, time.UTC)
}

// ParseName splits a backup file name into its timestamp and reason.
func ParseName(name string) (createdAt, reason string, ok bool) {
	if filepath.Ext(name) != Extension {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimSuffix(name, Extension), "_", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0] + "_" + parts[1], parts[2], true
}

// List returns the backups in dir, newest first. A missing directory
// yields an empty list.
func List(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, kerrors.E(kerrors.KindFilesystem, "list backups", err)
	}

	records := []Record{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		createdAt, reason, ok := ParseName(e.Name())
		if !ok {
			continue
		}
		records = append(records, Record{
			Path:      filepath.Join(dir, e.Name()),
			CreatedAt: createdAt,
			Reason:    reason,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
	return records, nil
}
