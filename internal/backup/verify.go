package backup

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	kerrors "github.com/illarion/tavernvault/internal/errors"
)

// Verify opens a backup as a SQLite database in query-only mode and runs
// PRAGMA integrity_check.
func Verify(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return kerrors.E(kerrors.KindBackupNotFound, "verify backup", nil)
	}
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "verify backup", err)
	}
	if info.IsDir() {
		return kerrors.New(kerrors.KindBackupNotFound, "verify backup", "backup path is a directory")
	}

	dsn, err := verifyDSN(path)
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "verify backup", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return kerrors.E(kerrors.KindFilesystem, "verify backup", fmt.Errorf("open: %w", err))
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return kerrors.E(kerrors.KindFilesystem, "verify backup", fmt.Errorf("integrity check: %w", err))
	}
	if result != "ok" {
		return kerrors.E(kerrors.KindFilesystem, "verify backup", fmt.Errorf("integrity check failed: %s", result))
	}
	return nil
}

// verifyDSN builds a read-only SQLite URI for path with '?', '#' and '%'
// in the file name escaped.
func verifyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	p := filepath.ToSlash(abs)
	if p[0] != '/' {
		// Windows volume paths become "/C:/..."
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "_pragma=query_only(1)"}
	return u.String(), nil
}
