package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/tavernvault/internal/config"
	"github.com/illarion/tavernvault/internal/core"
	kerrors "github.com/illarion/tavernvault/internal/errors"
	"github.com/illarion/tavernvault/internal/keyring"
	"github.com/illarion/tavernvault/internal/logging"
)

var (
	verbose bool
	debug   bool
	Logger  logging.Logger

	// storeOverride replaces the configured credential store when set.
	storeOverride keyring.Store
)

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tavernvault",
		Short: "Local secrets, vault keys and database backups for Tavern Master",
		Long: `tavernvault manages the local security state of Tavern Master:
secrets in the OS credential store, the passphrase-protected vault data key,
text encryption and rotated backups of the application database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logging.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.ErrOrStderr(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("running %q with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	root.AddCommand(newSecretCmd())
	root.AddCommand(newTextCmd())
	root.AddCommand(newVaultCmd())
	root.AddCommand(newBackupCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newDatadirCmd())

	return root
}

// Execute runs the command tree and reports any error on stderr.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		HandleError(root, err)
	}
	return err
}

// HandleError prints err the way every command reports failures.
func HandleError(cmd *cobra.Command, err error) {
	w := cmd.ErrOrStderr()
	if debug {
		Logger.Errorf("%s: %v", cmd.CommandPath(), err)
	}
	fmt.Fprintf(w, "Error: %s\n", kerrors.Message(err))

	switch {
	case errors.Is(err, core.ErrVaultExists):
		fmt.Fprintln(w, "Use 'tavernvault vault init --force' to replace it")
	case errors.Is(err, core.ErrNoStoredVault):
		fmt.Fprintln(w, "Run 'tavernvault vault init' first")
	case errors.Is(err, kerrors.ErrNotUnlocked):
		fmt.Fprintln(w, "Run 'tavernvault vault unlock' first")
	case errors.Is(err, kerrors.ErrDatabaseNotFound):
		fmt.Fprintln(w, "Check 'data_dir' and 'database_name' with 'tavernvault config show'")
	}
}

// loadConfig reads the config file named by TAVERN_CONFIG or the default
// location.
func loadConfig() (*config.Config, error) {
	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	Logger.Debugf("loading config from %s", path)
	return config.Load(path)
}

// newService builds the facade from the effective configuration.
func newService() (*core.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store := storeOverride
	if store == nil {
		store, err = keyring.Open(cfg.Keyring)
		if err != nil {
			return nil, err
		}
	}
	Logger.Debugf("service %q, data dir %s, keyring %s", cfg.ServiceName, cfg.DataDir, cfg.Keyring)

	return core.New(cfg, store, Logger), nil
}

// Helper functions for testing

// SetStore makes every command use store. Pass nil to restore the
// configured store.
func SetStore(store keyring.Store) {
	storeOverride = store
}

// ResetGlobalState resets package-level flags between test runs.
func ResetGlobalState() {
	verbose = false
	debug = false
	storeOverride = nil
	Logger = logging.Logger{}
}
