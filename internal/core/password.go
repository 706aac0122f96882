package core

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/illarion/tavernvault/internal/crypto"
)

const (
	EnvPassphrase    = "TAVERN_PASSPHRASE"
	EnvNewPassphrase = "TAVERN_NEW_PASSPHRASE"
)

// ReadPassphrase reads a passphrase from the terminal without echoing.
// The prompt goes to w.
func ReadPassphrase(w io.Writer, prompt string) ([]byte, error) {
	fmt.Fprint(w, prompt)

	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return passphrase, nil
}

// ReadPassphraseConfirm reads a passphrase twice and ensures they match
func ReadPassphraseConfirm(w io.Writer, prompt string) ([]byte, error) {
	first, err := ReadPassphrase(w, prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(first)

	second, err := ReadPassphrase(w, "Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		return nil, fmt.Errorf("passphrases do not match")
	}

	// Return a copy; both reads are cleared on return
	result := make([]byte, len(first))
	copy(result, first)
	return result, nil
}

// PassphraseFromEnv returns a copy of the named environment variable, or
// nil when it is unset or empty.
func PassphraseFromEnv(name string) []byte {
	passphrase := os.Getenv(name)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}
