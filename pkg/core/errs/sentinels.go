// Package errs contains the sentinel errors shared by the store adapters and the core services.
package errs

import "errors"

// Ledger and workflow failures.
var (
	// ErrAlreadyClockedIn indicates the worker already has an open shift.
	ErrAlreadyClockedIn = errors.New("already clocked in")

	// ErrNotOpen indicates the shift has already been closed.
	ErrNotOpen = errors.New("shift is not open")

	// ErrInvalidTransition indicates a status change the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNotArchivable indicates a delete attempted before the terminal state.
	ErrNotArchivable = errors.New("not archivable")

	// ErrNotAssignedToSite indicates the worker is not assigned to the requested site.
	ErrNotAssignedToSite = errors.New("not assigned to site")

	// ErrUnknownEntity indicates the requested record does not exist.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrStoreUnavailable indicates the record store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Access and input failures.
var (
	ErrForbidden              = errors.New("forbidden")
	ErrPasswordChangeRequired = errors.New("password change required")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidInput           = errors.New("invalid input")
	ErrSiteInactive           = errors.New("site is not active")

	// ErrConflict indicates a uniqueness violation reported by the store.
	ErrConflict = errors.New("conflict")
)
