package backup

import (
	"os"
	"path/filepath"
	"sort"

	kerrors "github.com/illarion/tavernvault/internal/errors"
	"github.com/illarion/tavernvault/internal/security"
)

// Rotate deletes the oldest ".db" files in dir until at most limit remain.
// Files are ordered by path, which is chronological for backup names.
// Files at the keep paths count toward the limit but are skipped when
// deleting, so the next oldest goes instead. A failed deletion stops
// rotation; files already removed stay removed.
func Rotate(dir string, limit int, keep ...string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "rotate backups", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Extension {
			continue
		}
		names = append(names, e.Name())
	}

	if len(names) <= limit {
		return nil
	}

	sort.Strings(names)

	validator, err := security.New(dir)
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "rotate backups", err)
	}
	defer validator.Close()

	excess := len(names) - limit
	for _, name := range names {
		if excess == 0 {
			break
		}
		if kept(filepath.Join(validator.Dir(), name), keep) {
			continue
		}
		if err := validator.RemoveInRoot(name); err != nil {
			return kerrors.E(kerrors.KindFilesystem, "rotate backups", err)
		}
		excess--
	}
	return nil
}

func kept(path string, keep []string) bool {
	for _, k := range keep {
		if samePath(path, k) {
			return true
		}
	}
	return false
}
