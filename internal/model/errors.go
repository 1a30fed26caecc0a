package model

import "errors"

// Sentinel errors returned by the tracking engine and attendance ledger.
// Callers classify failures with errors.Is; none of these abort the process.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrQuotaExceeded   = errors.New("quota exceeded")
)
