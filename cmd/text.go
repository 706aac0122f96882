package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTextCmd() *cobra.Command {
	textCmd := &cobra.Command{
		Use:   "text",
		Short: "Encrypt and decrypt short texts with the local text key",
		Long: `Encrypts text with a key kept in the OS credential store. The key is
created on first use; if it is lost, earlier ciphertexts cannot be decrypted.`,
	}

	textCmd.AddCommand(&cobra.Command{
		Use:   "encrypt [text]",
		Short: "Encrypt text (or stdin) and print the base64 payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			svc, err := newService()
			if err != nil {
				return err
			}

			payload, err := svc.EncryptText(plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	})

	textCmd.AddCommand(&cobra.Command{
		Use:   "decrypt [payload]",
		Short: "Decrypt a base64 payload (or stdin) and print the text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			svc, err := newService()
			if err != nil {
				return err
			}

			plaintext, err := svc.DecryptText(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		},
	})

	return textCmd
}
