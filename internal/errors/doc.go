// Package errors defines the closed set of failure kinds returned by
// tavernvault's internal packages.
//
// Every failure that crosses a package boundary carries exactly one Kind.
// Callers branch on kinds with errors.Is against the sentinel values, or
// extract the kind with KindOf:
//
//	bundle, err := v.Initialize(passphrase)
//	if errors.Is(err, kerrors.ErrWeakPassphrase) {
//	    // re-prompt
//	}
//
// Message renders an error for the command boundary. Authentication
// failures render only their fixed message; the underlying cause is
// never shown.
package errors
