package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrVaultUnavailable = errors.New("vault unavailable")
	ErrSearchDisabled   = errors.New("search disabled")
)
