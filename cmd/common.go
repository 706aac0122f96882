package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/illarion/tavernvault/internal/core"
)

// getPassphrase reads the passphrase from env when set, otherwise prompts.
// The caller is responsible for calling crypto.ClearBytes on the result.
func getPassphrase(cmd *cobra.Command, env, prompt string) ([]byte, error) {
	if passphrase := core.PassphraseFromEnv(env); passphrase != nil {
		Logger.Debugf("passphrase taken from %s", env)
		return passphrase, nil
	}

	passphrase, err := core.ReadPassphrase(cmd.ErrOrStderr(), prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// getNewPassphrase is getPassphrase with confirmation when prompting.
func getNewPassphrase(cmd *cobra.Command, env, prompt string) ([]byte, error) {
	if passphrase := core.PassphraseFromEnv(env); passphrase != nil {
		Logger.Debugf("passphrase taken from %s", env)
		return passphrase, nil
	}
	return core.ReadPassphraseConfirm(cmd.ErrOrStderr(), prompt)
}

// argOrStdin returns args[0], or all of stdin without its trailing
// newline when no argument is given.
func argOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), color.GreenString("✓")+" "+format+"\n", args...)
}
