package cmd

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// startSpinner shows a spinner on stderr while slow work (key derivation)
// runs. It stays off in verbose or debug mode and when stderr is not a
// terminal. The returned function stops it.
func startSpinner(cmd *cobra.Command, message string) func() {
	if verbose || debug {
		Logger.Infof("%s", message)
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}
	s.Start()

	return s.Stop
}
