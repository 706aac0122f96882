package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindStoreUnavailable
	KindNotFound
	KindInvalidEncoding
	KindInvalidPayload
	KindInvalidBundle
	KindAuthenticationFailed
	KindWeakPassphrase
	KindNotUnlocked
	KindDatabaseNotFound
	KindBackupNotFound
	KindFilesystem
)

var kindMessages = map[Kind]string{
	KindUnknown:              "unknown error",
	KindStoreUnavailable:     "credential store unavailable",
	KindNotFound:             "not found",
	KindInvalidEncoding:      "invalid encoding",
	KindInvalidPayload:       "payload too short",
	KindInvalidBundle:        "invalid wrapped bundle",
	KindAuthenticationFailed: "authentication failed",
	KindWeakPassphrase:       "passphrase must be at least 8 characters",
	KindNotUnlocked:          "vault not unlocked",
	KindDatabaseNotFound:     "database file not found",
	KindBackupNotFound:       "backup file not found",
	KindFilesystem:           "filesystem error",
}

// String returns the default human-readable message for the kind.
func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidEncoding      = &Error{Kind: KindInvalidEncoding}
	ErrInvalidPayload       = &Error{Kind: KindInvalidPayload}
	ErrInvalidBundle        = &Error{Kind: KindInvalidBundle}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrWeakPassphrase       = &Error{Kind: KindWeakPassphrase}
	ErrNotUnlocked          = &Error{Kind: KindNotUnlocked}
	ErrDatabaseNotFound     = &Error{Kind: KindDatabaseNotFound}
	ErrBackupNotFound       = &Error{Kind: KindBackupNotFound}
	ErrFilesystem           = &Error{Kind: KindFilesystem}
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "vault unlock".
	Op string
	// Msg overrides the kind's default message.
	Msg string
	Err error
}

// E builds an *Error of the given kind wrapping err.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds an *Error of the given kind with a custom message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func (e *Error) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

func (e *Error) Error() string {
	msg := e.message()
	if e.Err != nil && e.Kind != KindAuthenticationFailed {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message renders err for display at the command boundary.
// Only kinds whose cause is environmental (store, filesystem, encoding)
// include that cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindStoreUnavailable, KindFilesystem, KindInvalidEncoding:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.message(), e.Err)
		}
	}
	return e.message()
}
