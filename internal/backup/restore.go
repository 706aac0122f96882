package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	kerrors "github.com/illarion/tavernvault/internal/errors"
)

// Restore replaces databasePath with a full copy of backupPath. It takes
// no safety backup of its own; callers wanting one call Backup first.
// The backup file is left in place.
func Restore(backupPath, databasePath string) error {
	src, err := os.Open(backupPath)
	if os.IsNotExist(err) {
		return kerrors.E(kerrors.KindBackupNotFound, "restore", nil)
	}
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "restore", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "restore", err)
	}
	if info.IsDir() {
		return kerrors.New(kerrors.KindBackupNotFound, "restore", "backup path is a directory")
	}

	if err := replaceFile(databasePath, src, info.Mode().Perm()); err != nil {
		return kerrors.E(kerrors.KindFilesystem, "restore", err)
	}
	return nil
}

// replaceFile writes src to a temporary sibling of dst and renames it
// over dst.
func replaceFile(dst string, src io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".restore-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return nil
}
