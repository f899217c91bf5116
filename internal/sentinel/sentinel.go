package sentinel

import "errors"

// Sentinel dependency errors. Stores and other leaf dependencies return these
// (optionally wrapped) so services can translate them into domain errors
// exactly once.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyExists  = errors.New("already exists")
	ErrRestricted     = errors.New("restricted by existing relation")
	ErrStatusMismatch = errors.New("status mismatch")
	ErrUnavailable    = errors.New("unavailable")
)
