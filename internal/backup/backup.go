package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	kerrors "github.com/illarion/tavernvault/internal/errors"
	"github.com/illarion/tavernvault/internal/security"
)

const (
	DefaultMaxBackups = 20
	MaxReasonLength   = 50
	TimestampLayout   = "20060102_150405"
	Extension         = ".db"
)

// Manager creates and rotates backups in one directory.
type Manager struct {
	dir        string
	maxBackups int
	now        func() time.Time
}

// NewManager returns a Manager for dir keeping at most maxBackups files.
// A maxBackups below 1 selects DefaultMaxBackups.
func NewManager(dir string, maxBackups int) *Manager {
	if maxBackups < 1 {
		maxBackups = DefaultMaxBackups
	}
	return &Manager{dir: dir, maxBackups: maxBackups, now: time.Now}
}

// Dir returns the backups directory.
func (m *Manager) Dir() string {
	return m.dir
}

// SanitizeReason keeps letters, digits, '-' and '_', dropping everything
// else, and truncates to MaxReasonLength characters.
func SanitizeReason(reason string) string {
	var b strings.Builder
	n := 0
	for _, r := range reason {
		if n == MaxReasonLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '_' {
			b.WriteRune(r)
			n++
		}
	}
	return b.String()
}

// FileName builds the backup file name for t and reason.
func FileName(t time.Time, reason string) string {
	return fmt.Sprintf("%s_%s%s", t.UTC().Format(TimestampLayout), SanitizeReason(reason), Extension)
}

// Backup copies databasePath into the backups directory and then rotates.
// It returns the path of the new backup. A backup taken in the same second
// with the same reason replaces the earlier one.
func (m *Manager) Backup(databasePath, reason string) (string, error) {
	path, err := m.Copy(databasePath, reason, "")
	if err != nil {
		return "", err
	}
	if err := m.Rotate(); err != nil {
		return "", err
	}
	return path, nil
}

// Copy writes a backup of databasePath without rotating. It refuses to
// replace the file at protect, which callers use for a backup they still
// need to read.
func (m *Manager) Copy(databasePath, reason, protect string) (string, error) {
	src, err := os.Open(databasePath)
	if os.IsNotExist(err) {
		return "", kerrors.E(kerrors.KindDatabaseNotFound, "backup", nil)
	}
	if err != nil {
		return "", kerrors.E(kerrors.KindFilesystem, "backup", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", kerrors.E(kerrors.KindFilesystem, "backup", err)
	}
	if info.IsDir() {
		return "", kerrors.New(kerrors.KindDatabaseNotFound, "backup", "database path is a directory")
	}

	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", kerrors.E(kerrors.KindFilesystem, "backup", fmt.Errorf("failed to create backups directory: %w", err))
	}

	validator, err := security.New(m.dir)
	if err != nil {
		return "", kerrors.E(kerrors.KindFilesystem, "backup", err)
	}
	defer validator.Close()

	name := FileName(m.now(), reason)
	path := filepath.Join(validator.Dir(), name)
	if protect != "" && samePath(path, protect) {
		return "", kerrors.New(kerrors.KindFilesystem, "backup", "backup "+name+" is in use; retry in a second")
	}

	if err := validator.CopyIntoRoot(name, src, info.Mode().Perm()); err != nil {
		return "", kerrors.E(kerrors.KindFilesystem, "backup", err)
	}
	return path, nil
}

// Rotate applies the retention limit to the managed directory. Files at
// the keep paths still count toward the limit but are never removed.
func (m *Manager) Rotate(keep ...string) error {
	return Rotate(m.dir, m.maxBackups, keep...)
}

// List returns the well-formed backups, newest first.
func (m *Manager) List() ([]Record, error) {
	return List(m.dir)
}

// Resolve turns a backup reference into a path. References that name an
// existing file are used as is; bare file names are looked up inside the
// backups directory.
func (m *Manager) Resolve(ref string) (string, error) {
	if _, err := os.Stat(ref); err == nil || filepath.Base(ref) != ref {
		return ref, nil
	}
	if _, err := os.Stat(m.dir); err != nil {
		return ref, nil
	}

	validator, err := security.New(m.dir)
	if err != nil {
		return "", kerrors.E(kerrors.KindFilesystem, "resolve backup", err)
	}
	defer validator.Close()

	if _, err := validator.StatInRoot(ref); err != nil {
		return "", kerrors.E(kerrors.KindBackupNotFound, "resolve backup", nil)
	}
	return validator.Resolve(ref)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
