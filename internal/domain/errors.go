package domain

import "errors"

// Command failure taxonomy. Commands wrap these with the server-provided
// message when one exists, so callers classify with errors.Is and display
// err.Error() as-is.
var (
	ErrValidation       = errors.New("invalid input")
	ErrDuplicateRequest = errors.New("a pending join request already exists")
	ErrAlreadyMember    = errors.New("user is already a participant")
	ErrConflict         = errors.New("state has changed, action no longer applies")
	ErrForbidden        = errors.New("operation not allowed")
	ErrNotFound         = errors.New("not found")
	ErrNetwork          = errors.New("remote store unreachable")
)
