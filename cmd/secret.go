package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/tavernvault/internal/core"
	"github.com/illarion/tavernvault/internal/crypto"
	kerrors "github.com/illarion/tavernvault/internal/errors"
)

func newSecretCmd() *cobra.Command {
	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Store and read named secrets in the OS credential store",
	}

	secretCmd.AddCommand(&cobra.Command{
		Use:   "set <name> [value]",
		Short: "Store a secret, replacing any previous value",
		Long: `Stores a secret under <name>. Without [value] the value is read from
the terminal without echo.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			var value string
			if len(args) == 2 {
				value = args[1]
			} else {
				raw, err := core.ReadPassphrase(cmd.ErrOrStderr(), "Value: ")
				if err != nil {
					return err
				}
				value = string(raw)
				crypto.ClearBytes(raw)
			}

			if err := svc.SetSecret(args[0], value); err != nil {
				return err
			}
			success(cmd, "Stored %s", args[0])
			return nil
		},
	})

	secretCmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			value, found, err := svc.GetSecret(args[0])
			if err != nil {
				return err
			}
			if !found {
				return kerrors.New(kerrors.KindNotFound, "secret get", fmt.Sprintf("secret %q not found", args[0]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	secretCmd.AddCommand(&cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a secret; deleting a missing secret succeeds",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.DeleteSecret(args[0]); err != nil {
				return err
			}
			success(cmd, "Deleted %s", args[0])
			return nil
		},
	})

	return secretCmd
}
