package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPathValidator_ValidateAndNormalize(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	tests := []struct {
		name      string
		input     string
		shouldErr bool
		errType   error
	}{
		// Valid paths
		{"backup file", "20240101_120000_manual.db", false, nil},
		{"file in subdirectory", "subdir/test.db", false, nil},
		{"dot slash", "./test.db", false, nil},

		// Path traversal attempts
		{"parent directory", "../test.db", true, ErrPathEscapes},
		{"nested parent", "a/../../test.db", true, ErrPathEscapes},
		{"absolute path unix", "/etc/passwd", true, ErrAbsolutePath},

		// Empty path
		{"empty path", "", true, ErrEmptyPath},
	}

	if runtime.GOOS == "windows" {
		tests = append(tests, struct {
			name      string
			input     string
			shouldErr bool
			errType   error
		}{"absolute path windows", "C:\\Windows\\System32\\config", true, ErrAbsolutePath})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateAndNormalize(tt.input)

			if tt.shouldErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got none", tt.input)
					return
				}
				if tt.errType != nil && !errors.Is(err, tt.errType) {
					t.Errorf("Expected error type %v, got %v", tt.errType, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for input %q: %v", tt.input, err)
				return
			}
			if strings.Contains(result, "\\") || strings.HasPrefix(result, "..") || filepath.IsAbs(result) {
				t.Errorf("Result is not a clean relative path: %q", result)
			}
		})
	}
}

func TestPathValidator_ValidateName(t *testing.T) {
	validator, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if _, err := validator.ValidateName("ok.db"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := validator.ValidateName("nested/file.db"); !errors.Is(err, ErrNotFlat) {
		t.Errorf("Expected ErrNotFlat, got %v", err)
	}

	resolved, err := validator.Resolve("ok.db")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved != filepath.Join(validator.Dir(), "ok.db") {
		t.Errorf("Resolve mismatch: %s", resolved)
	}
}

func TestPathValidator_CopyIntoRoot(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if err := validator.CopyIntoRoot("copy.db", strings.NewReader("payload"), 0600); err != nil {
		t.Fatalf("CopyIntoRoot failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "copy.db"))
	if err != nil {
		t.Fatalf("Failed to read copy: %v", err)
	}
	if string(content) != "payload" {
		t.Errorf("Content mismatch: got %q", content)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "copy.db"+tempSuffix)); !os.IsNotExist(err) {
		t.Error("Temporary file should not remain")
	}

	// Overwrite keeps a single file with the new content
	if err := validator.CopyIntoRoot("copy.db", strings.NewReader("second"), 0600); err != nil {
		t.Fatalf("CopyIntoRoot overwrite failed: %v", err)
	}
	content, _ = os.ReadFile(filepath.Join(tmpDir, "copy.db"))
	if string(content) != "second" {
		t.Errorf("Content mismatch after overwrite: got %q", content)
	}

	// Escapes are rejected and nothing is written outside
	if err := validator.CopyIntoRoot("../outside.db", strings.NewReader("bad"), 0600); err == nil {
		t.Error("Expected error for escaping path")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(tmpDir), "outside.db")); err == nil {
		t.Error("File was created outside the directory")
	}
}

func TestPathValidator_RemoveAndStat(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if err := os.WriteFile(filepath.Join(tmpDir, "old.db"), []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if _, err := validator.StatInRoot("old.db"); err != nil {
		t.Fatalf("StatInRoot failed: %v", err)
	}
	if err := validator.RemoveInRoot("old.db"); err != nil {
		t.Fatalf("RemoveInRoot failed: %v", err)
	}
	if _, err := validator.StatInRoot("old.db"); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist after removal, got %v", err)
	}
	if err := validator.RemoveInRoot("../old.db"); err == nil {
		t.Error("Expected error for escaping removal")
	}
}
