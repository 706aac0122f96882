package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/tavernvault/internal/core"
	"github.com/illarion/tavernvault/internal/crypto"
)

func newVaultCmd() *cobra.Command {
	vaultCmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the passphrase-protected vault data key",
		Long: `The vault holds a random data key wrapped under a passphrase. The
wrapped bundle is kept in the state file; the unwrapped key is cached in the
OS credential store while the vault is unlocked.

Passphrases are read from TAVERN_PASSPHRASE and TAVERN_NEW_PASSPHRASE when
set, otherwise from the terminal.`,
	}

	vaultCmd.AddCommand(newVaultStatusCmd())
	vaultCmd.AddCommand(newVaultInitCmd())
	vaultCmd.AddCommand(newVaultUnlockCmd())
	vaultCmd.AddCommand(newVaultRewrapCmd())
	vaultCmd.AddCommand(newVaultKeyCmd())
	vaultCmd.AddCommand(newVaultLockCmd())
	vaultCmd.AddCommand(newVaultForgetCmd())

	return vaultCmd
}

func newVaultStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the vault is initialized and unlocked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			status, err := svc.VaultStatus()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			switch {
			case !status.Initialized:
				fmt.Fprintln(out, "Vault: "+color.YellowString("not initialized"))
				fmt.Fprintln(out, "Run 'tavernvault vault init' to create one")
				return nil
			case status.HasCachedKey:
				fmt.Fprintln(out, "Vault: "+color.GreenString("unlocked"))
			default:
				fmt.Fprintln(out, "Vault: "+color.CyanString("locked"))
			}

			if status.BundleStored {
				fmt.Fprintf(out, "Stored bundle: present (updated %s)\n", status.BundleUpdated.Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "Stored bundle: none")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")
	return cmd
}

func newVaultInitCmd() *cobra.Command {
	var (
		force       bool
		printBundle bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new data key wrapped under a passphrase",
		Long: `Creates a new random data key, caches it and stores its wrapped bundle.
An existing bundle is only replaced with --force; data encrypted under the old
key is then unrecoverable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			passphrase, err := getNewPassphrase(cmd, core.EnvPassphrase, "Enter passphrase: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(passphrase)

			stop := startSpinner(cmd, "Deriving key...")
			bundle, err := svc.VaultInitialize(passphrase, force)
			stop()
			if err != nil {
				return err
			}

			success(cmd, "Vault initialized")
			if printBundle {
				fmt.Fprintln(cmd.OutOrStdout(), bundle)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing vault")
	cmd.Flags().BoolVar(&printBundle, "print-bundle", false, "print the wrapped bundle")
	return cmd
}

func newVaultUnlockCmd() *cobra.Command {
	var bundle string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unwrap the data key and cache it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			passphrase, err := getPassphrase(cmd, core.EnvPassphrase, "Enter passphrase: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(passphrase)

			stop := startSpinner(cmd, "Deriving key...")
			err = svc.VaultUnlock(passphrase, bundle)
			stop()
			if err != nil {
				return err
			}

			success(cmd, "Vault unlocked")
			return nil
		},
	}

	cmd.Flags().StringVar(&bundle, "bundle", "", "wrapped bundle to unlock instead of the stored one")
	return cmd
}

func newVaultRewrapCmd() *cobra.Command {
	var bundle string

	cmd := &cobra.Command{
		Use:     "rewrap",
		Aliases: []string{"passwd"},
		Short:   "Change the vault passphrase",
		Long: `Re-wraps the data key under a new passphrase. The data key itself does
not change. With --bundle the given bundle is re-wrapped and printed; the
stored bundle is left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			oldPassphrase, err := getPassphrase(cmd, core.EnvPassphrase, "Enter current passphrase: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(oldPassphrase)

			newPassphrase, err := getNewPassphrase(cmd, core.EnvNewPassphrase, "Enter new passphrase: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(newPassphrase)

			stop := startSpinner(cmd, "Re-wrapping data key...")
			rewrapped, err := svc.VaultRewrap(oldPassphrase, newPassphrase, bundle)
			stop()
			if err != nil {
				return err
			}

			if bundle != "" {
				fmt.Fprintln(cmd.OutOrStdout(), rewrapped)
				return nil
			}
			success(cmd, "Passphrase changed")
			return nil
		},
	}

	cmd.Flags().StringVar(&bundle, "bundle", "", "re-wrap this bundle and print the result")
	return cmd
}

func newVaultKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key",
		Short: "Print the cached data key (base64)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			key, err := svc.VaultGetDataKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newVaultLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Remove the cached data key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.VaultLock(); err != nil {
				return err
			}
			success(cmd, "Vault locked")
			return nil
		},
	}
}

func newVaultForgetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Lock the vault and delete the stored bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return Logger.ErrorfAndReturn("forgetting the vault destroys the stored bundle; rerun with --force")
			}
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.VaultForget(); err != nil {
				return err
			}
			success(cmd, "Vault forgotten")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion of the stored bundle")
	return cmd
}
