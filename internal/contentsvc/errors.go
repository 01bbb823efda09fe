package contentsvc

import "errors"

// Error kinds from spec.md §7. Callers pattern-match with errors.Is.
var (
	ErrUnknownMedia        = errors.New("contentsvc: unknown media item")
	ErrUnknownUnit         = errors.New("contentsvc: unknown unit")
	ErrUnknownSelection    = errors.New("contentsvc: unknown selection")
	ErrInvalidPostReference = errors.New("contentsvc: invalid post reference")

	ErrUnknownToken     = errors.New("contentsvc: unknown rollback token")
	ErrAlreadyRolledBack = errors.New("contentsvc: already rolled back")
	ErrRollbackExpired  = errors.New("contentsvc: rollback expired")
	ErrStale            = errors.New("contentsvc: stale rollback")
)
