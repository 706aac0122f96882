// Package logging provides the levelled console logger used by the
// tavernvault commands.
//
// Info output requires --verbose, debug output requires --debug. Warnings
// and errors always go to stderr. Secrets are never passed to the logger.
package logging
