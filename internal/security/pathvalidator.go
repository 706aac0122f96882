package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrNotFlat      = errors.New("path must name a file directly inside the directory")
)

const tempSuffix = ".partial"

// PathValidator confines file operations to a single directory
// using Go's os.Root API.
type PathValidator struct {
	root    *os.Root
	rootDir string
}

// New creates a new PathValidator for the directory at the given path.
// The directory must exist.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open root directory: %w", err)
	}

	return &PathValidator{
		root:    root,
		rootDir: absPath,
	}, nil
}

// Close releases resources held by the PathValidator.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute confined directory.
func (pv *PathValidator) Dir() string {
	return pv.rootDir
}

// ValidateAndNormalize validates a user-provided path and returns a normalized
// relative path. It rejects:
// - Empty paths
// - Absolute paths
// - Paths that escape the directory (using ..)
// - Windows reserved names (CON, NUL, etc.)
func (pv *PathValidator) ValidateAndNormalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	cleanPath := filepath.Clean(userPath)
	if !filepath.IsLocal(cleanPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, cleanPath)
	}

	// Verify containment using filepath.Rel
	absPath := filepath.Join(pv.rootDir, cleanPath)
	relPath, err := filepath.Rel(pv.rootDir, absPath)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(relPath), nil
}

// ValidateName validates a bare file name directly inside the directory.
func (pv *PathValidator) ValidateName(name string) (string, error) {
	clean, err := pv.ValidateAndNormalize(name)
	if err != nil {
		return "", err
	}
	if strings.Contains(clean, "/") {
		return "", fmt.Errorf("%w: %s", ErrNotFlat, name)
	}
	return clean, nil
}

// Resolve validates name and returns its absolute path.
func (pv *PathValidator) Resolve(name string) (string, error) {
	clean, err := pv.ValidateName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(pv.rootDir, clean), nil
}

// StatInRoot stats a file within the directory using os.Root.
func (pv *PathValidator) StatInRoot(name string) (os.FileInfo, error) {
	clean, err := pv.ValidateName(name)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Stat(clean)
}

// RemoveInRoot removes a file within the directory using os.Root.
func (pv *PathValidator) RemoveInRoot(name string) error {
	clean, err := pv.ValidateName(name)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Remove(clean)
}

// CopyIntoRoot streams src into name. The data is written to a temporary
// file, synced, then renamed over name, so a crash never leaves a
// partially written name behind.
func (pv *PathValidator) CopyIntoRoot(name string, src io.Reader, perm os.FileMode) error {
	clean, err := pv.ValidateName(name)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	tmp := clean + tempSuffix

	f, err := pv.root.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		pv.root.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		pv.root.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		pv.root.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := pv.root.Rename(tmp, clean); err != nil {
		pv.root.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}
