package model

import (
	"errors"
	"fmt"
)

// ErrBusy indicates a consolidation run is already in flight. New run
// requests are rejected, not queued.
var ErrBusy = errors.New("consolidation run already in progress")

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ValidationError is malformed caller input. It is surfaced immediately
// and never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// ConfigurationError is an operator-level misconfiguration, fatal until
// corrected (for example an empty domain registry at startup).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ConflictError is a lost race on an approval decision. The caller must
// re-fetch the unit and retry.
type ConflictError struct {
	UnitID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unit %s is no longer flagged: decision conflict", e.UnitID)
}

// TransientStoreError wraps a storage failure that is safe to retry later.
// Consolidation aborts the whole batch on one of these; the next scheduled
// run picks the window up again.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// IsConflict reports whether err is an approval decision conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is caller input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports whether err is a retryable storage failure.
func IsTransient(err error) bool {
	var te *TransientStoreError
	return errors.As(err, &te)
}
