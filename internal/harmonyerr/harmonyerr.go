// Package harmonyerr defines the error kinds surfaced by the Harmony core,
// per the error handling design: invariant violations and corrupt state are
// fatal, transport failures abort the operation cleanly, and merge
// conflicts are returned as data rather than raised.
package harmonyerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories the core can produce.
type Kind int

const (
	// NotARepository: command invoked outside any .harmony tree.
	NotARepository Kind = iota
	// AlreadyInitialized: init with an existing .harmony.
	AlreadyInitialized
	// RemoteUnreachable: transport cannot open the remote.
	RemoteUnreachable
	// ProtocolMismatch: URI unrecognized by any registered transport.
	ProtocolMismatch
	// CorruptState: a state file fails to parse or violates a data model invariant.
	CorruptState
	// IOFailure: underlying filesystem or network error during fetch/scan.
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case NotARepository:
		return "not a repository"
	case AlreadyInitialized:
		return "already initialized"
	case RemoteUnreachable:
		return "remote unreachable"
	case ProtocolMismatch:
		return "protocol mismatch"
	case CorruptState:
		return "corrupt state"
	case IOFailure:
		return "io failure"
	default:
		return "unknown error"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// errors.As without string-matching messages.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(k Kind, msg string) error {
	return &Error{Kind: k, Msg: msg}
}

// Wrap constructs an *Error of the given kind, wrapping cause.
func Wrap(k Kind, msg string, cause error) error {
	return &Error{Kind: k, Msg: msg, Cause: cause}
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, k Kind) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind == k
	}
	return false
}
