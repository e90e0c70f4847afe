package cli

import (
	"errors"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/repo"
	"git.wyat.me/zwagit/store"
)

// Exit codes are stable; scripts match on them.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitUsage              = 2
	ExitInvalidKind        = 3
	ExitMalformedObject    = 4
	ExitInvalidIdentifier  = 5
	ExitObjectNotFound     = 6
	ExitStorageUnavailable = 7
	ExitNotRepository      = 8
)

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func ExitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage):
		return ExitUsage
	case errors.Is(err, object.ErrInvalidKind):
		return ExitInvalidKind
	case errors.Is(err, object.ErrMalformedObject):
		return ExitMalformedObject
	case errors.Is(err, store.ErrInvalidIdentifier):
		return ExitInvalidIdentifier
	case errors.Is(err, store.ErrObjectNotFound):
		return ExitObjectNotFound
	case errors.Is(err, store.ErrStorageUnavailable):
		return ExitStorageUnavailable
	case errors.Is(err, repo.ErrNotInitialized):
		return ExitNotRepository
	default:
		return ExitFailure
	}
}
