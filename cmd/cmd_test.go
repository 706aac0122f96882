package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/tavernvault/internal/backup"
	"github.com/illarion/tavernvault/internal/config"
	"github.com/illarion/tavernvault/internal/core"
	"github.com/illarion/tavernvault/internal/keyring"
)

// setupTestEnvironment points every command at temporary directories and
// an in-memory credential store shared across runs.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	dataDir := filepath.Join(tmp, "data")

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg"))
	t.Setenv(config.EnvConfig, filepath.Join(tmp, "config.toml"))
	t.Setenv(config.EnvDataDir, dataDir)
	t.Setenv(config.EnvKeyring, config.KeyringMemory)
	t.Setenv(core.EnvPassphrase, "")
	t.Setenv(core.EnvNewPassphrase, "")

	SetStore(keyring.NewMemory())
	t.Cleanup(ResetGlobalState)
	return dataDir
}

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err = root.ExecuteContext(context.Background())
	if err != nil {
		HandleError(root, err)
	}
	return out.String(), errOut.String(), err
}

func TestSecretCommands(t *testing.T) {
	setupTestEnvironment(t)

	_, _, err := run(t, "", "secret", "set", "openai_api_key", "sk-123")
	require.NoError(t, err)

	out, _, err := run(t, "", "secret", "get", "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-123\n", out)

	_, _, err = run(t, "", "secret", "delete", "openai_api_key")
	require.NoError(t, err)
	_, _, err = run(t, "", "secret", "delete", "openai_api_key")
	require.NoError(t, err)

	_, stderr, err := run(t, "", "secret", "get", "openai_api_key")
	require.Error(t, err)
	assert.Contains(t, stderr, `Error: secret "openai_api_key" not found`)
}

func TestTextCommands(t *testing.T) {
	setupTestEnvironment(t)

	out, _, err := run(t, "", "text", "encrypt", "meet at the crossroads")
	require.NoError(t, err)
	payload := strings.TrimSpace(out)
	require.NotEmpty(t, payload)

	out, _, err = run(t, payload+"\n", "text", "decrypt")
	require.NoError(t, err)
	assert.Equal(t, "meet at the crossroads\n", out)

	_, stderr, err := run(t, "", "text", "decrypt", "not base64!")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: invalid encoding")
}

func TestVaultCommands(t *testing.T) {
	setupTestEnvironment(t)

	out, _, err := run(t, "", "vault", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not initialized")

	t.Setenv(core.EnvPassphrase, "short")
	_, stderr, err := run(t, "", "vault", "init")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: passphrase must be at least 8 characters")

	t.Setenv(core.EnvPassphrase, "correct-horse")
	out, _, err = run(t, "", "vault", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Vault initialized")

	_, stderr, err = run(t, "", "vault", "init")
	require.Error(t, err)
	assert.Contains(t, stderr, "vault init --force")

	key, _, err := run(t, "", "vault", "key")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(key))

	out, _, err = run(t, "", "vault", "status", "--json")
	require.NoError(t, err)
	var status core.VaultStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Initialized)
	assert.True(t, status.HasCachedKey)
	assert.True(t, status.BundleStored)

	_, _, err = run(t, "", "vault", "lock")
	require.NoError(t, err)
	_, stderr, err = run(t, "", "vault", "key")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: vault not unlocked")
	assert.Contains(t, stderr, "vault unlock")

	t.Setenv(core.EnvPassphrase, "wrong-passphrase")
	_, stderr, err = run(t, "", "vault", "unlock")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: invalid passphrase")

	t.Setenv(core.EnvPassphrase, "correct-horse")
	t.Setenv(core.EnvNewPassphrase, "battery-staple")
	_, _, err = run(t, "", "vault", "rewrap")
	require.NoError(t, err)

	t.Setenv(core.EnvPassphrase, "battery-staple")
	_, _, err = run(t, "", "vault", "unlock")
	require.NoError(t, err)
	again, _, err := run(t, "", "vault", "key")
	require.NoError(t, err)
	assert.Equal(t, key, again)

	_, _, err = run(t, "", "vault", "forget")
	require.Error(t, err)
	_, _, err = run(t, "", "vault", "forget", "--force")
	require.NoError(t, err)
	out, _, err = run(t, "", "vault", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not initialized")
}

func TestBackupCommands(t *testing.T) {
	dataDir := setupTestEnvironment(t)

	_, stderr, err := run(t, "", "backup", "create")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: database file not found")

	out, _, err := run(t, "", "backup", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No backups")

	dbPath := filepath.Join(dataDir, config.DefaultDatabaseName)
	require.NoError(t, os.MkdirAll(dataDir, 0700))
	require.NoError(t, os.WriteFile(dbPath, []byte("v1"), 0600))

	out, _, err = run(t, "", "backup", "create", "before import!")
	require.NoError(t, err)
	assert.Contains(t, out, "Backup created")

	out, _, err = run(t, "", "backup", "list", "--json")
	require.NoError(t, err)
	var records []backup.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "beforeimport", records[0].Reason)

	require.NoError(t, os.WriteFile(dbPath, []byte("v2"), 0600))
	_, _, err = run(t, "", "backup", "restore", filepath.Base(records[0].Path))
	require.NoError(t, err)

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	_, stderr, err = run(t, "", "backup", "restore", filepath.Join(dataDir, "missing.db"))
	require.Error(t, err)
	assert.Contains(t, stderr, "Error: backup file not found")
}

func TestDatadirCommand(t *testing.T) {
	dataDir := setupTestEnvironment(t)

	out, _, err := run(t, "", "datadir")
	require.NoError(t, err)
	assert.Equal(t, dataDir+"\n", out)
}

func TestConfigCommands(t *testing.T) {
	setupTestEnvironment(t)

	_, _, err := run(t, "", "config", "init")
	require.NoError(t, err)
	_, _, err = run(t, "", "config", "init")
	require.Error(t, err)
	_, _, err = run(t, "", "config", "init", "--force")
	require.NoError(t, err)

	out, _, err := run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `service_name = "tavern-master"`)
	assert.Contains(t, out, "max_backups = 20")
}

func TestBackupRestoreBackupFirstKeepsTarget(t *testing.T) {
	dataDir := setupTestEnvironment(t)
	dbPath := filepath.Join(dataDir, config.DefaultDatabaseName)
	backups := filepath.Join(dataDir, config.DefaultBackupsDir)
	require.NoError(t, os.MkdirAll(backups, 0700))
	require.NoError(t, os.WriteFile(dbPath, []byte("current"), 0600))
	for i := 0; i < config.DefaultMaxBackups; i++ {
		name := fmt.Sprintf("20200101_0000%02d_old%02d.db", i, i)
		require.NoError(t, os.WriteFile(filepath.Join(backups, name), []byte(fmt.Sprintf("old%02d", i)), 0600))
	}
	oldest := filepath.Join(backups, "20200101_000000_old00.db")

	_, _, err := run(t, "", "backup", "restore", "--backup-first", oldest)
	require.NoError(t, err)

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "old00", string(data))
	_, err = os.Stat(oldest)
	assert.NoError(t, err)

	out, _, err := run(t, "", "backup", "list", "--json")
	require.NoError(t, err)
	var records []backup.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, config.DefaultMaxBackups)
	assert.Equal(t, "pre-restore", records[0].Reason)
}

func TestDebugReportsErrorChain(t *testing.T) {
	setupTestEnvironment(t)

	_, stderr, err := run(t, "", "--debug", "vault", "forget")
	require.Error(t, err)
	assert.Contains(t, stderr, "[debug] forgetting the vault destroys the stored bundle")
	assert.Contains(t, stderr, "[error] tavernvault: forgetting the vault destroys the stored bundle")
	assert.Contains(t, stderr, "Error: forgetting the vault destroys the stored bundle; rerun with --force")
}
