package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnrecognized      = errors.New("unrecognized file type")
	ErrEmptyName         = errors.New("install name cannot be empty")
	ErrUnsafeName        = errors.New("unsafe install name")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDestinationExists = errors.New("destination already exists")
	ErrIoFailure         = errors.New("i/o failure")
	ErrMalformedArchive  = errors.New("malformed archive")
	ErrUnsafeEntryPath   = errors.New("unsafe archive entry path")
	ErrNotFound          = errors.New("not found")
	ErrRootUnreadable    = errors.New("mods root unreadable")
	ErrWatchSetupFailed  = errors.New("file watcher setup failed")
	ErrNoPendingInstall  = errors.New("no pending install")
)

// stageError is the shared shape of every typed engine error.
// Reason is one of the sentinels above; Err is the underlying cause, if any.
type stageError struct {
	Reason error
	Path   string
	Err    error
}

func (e stageError) message(stage string) string {
	msg := stage + ": " + e.Reason.Error()
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e stageError) unwrap() []error {
	errs := []error{e.Reason}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ClassificationError is returned when a dropped file cannot be classified
type ClassificationError struct{ stageError }

func (e *ClassificationError) Error() string   { return e.message("classify") }
func (e *ClassificationError) Unwrap() []error { return e.unwrap() }

// PlanRejection is returned when an install request cannot be planned
type PlanRejection struct{ stageError }

func (e *PlanRejection) Error() string   { return e.message("plan rejected") }
func (e *PlanRejection) Unwrap() []error { return e.unwrap() }

// InstallError is returned when executing a plan fails
type InstallError struct{ stageError }

func (e *InstallError) Error() string   { return e.message("install failed") }
func (e *InstallError) Unwrap() []error { return e.unwrap() }

// UninstallError is returned when removing a mod fails
type UninstallError struct{ stageError }

func (e *UninstallError) Error() string   { return e.message("uninstall failed") }
func (e *UninstallError) Unwrap() []error { return e.unwrap() }

// ScanError is returned when the mods root cannot be listed
type ScanError struct{ stageError }

func (e *ScanError) Error() string   { return e.message("scan failed") }
func (e *ScanError) Unwrap() []error { return e.unwrap() }

// WatchError is returned when filesystem watching cannot be established
type WatchError struct{ stageError }

func (e *WatchError) Error() string   { return e.message("watch") }
func (e *WatchError) Unwrap() []error { return e.unwrap() }

// NewClassificationError creates a ClassificationError
func NewClassificationError(reason error, path string, err error) *ClassificationError {
	return &ClassificationError{stageError{Reason: reason, Path: path, Err: err}}
}

// NewPlanRejection creates a PlanRejection
func NewPlanRejection(reason error, path string, err error) *PlanRejection {
	return &PlanRejection{stageError{Reason: reason, Path: path, Err: err}}
}

// NewInstallError creates an InstallError
func NewInstallError(reason error, path string, err error) *InstallError {
	return &InstallError{stageError{Reason: reason, Path: path, Err: err}}
}

// NewUninstallError creates an UninstallError
func NewUninstallError(reason error, path string, err error) *UninstallError {
	return &UninstallError{stageError{Reason: reason, Path: path, Err: err}}
}

// NewScanError creates a ScanError
func NewScanError(reason error, path string, err error) *ScanError {
	return &ScanError{stageError{Reason: reason, Path: path, Err: err}}
}

// NewWatchError creates a WatchError
func NewWatchError(reason error, path string, err error) *WatchError {
	return &WatchError{stageError{Reason: reason, Path: path, Err: err}}
}

// Reason extracts the sentinel reason from any engine error, or nil
func Reason(err error) error {
	for _, sentinel := range []error{
		ErrUnrecognized, ErrEmptyName, ErrUnsafeName, ErrUnknownCategory,
		ErrDestinationExists, ErrMalformedArchive, ErrUnsafeEntryPath,
		ErrNotFound, ErrRootUnreadable, ErrWatchSetupFailed, ErrNoPendingInstall,
		ErrIoFailure, ErrInvalidConfig,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

// UserMessage renders an engine error as a short message for the UI layer
func UserMessage(err error) string {
	switch Reason(err) {
	case ErrDestinationExists:
		return fmt.Sprintf("%v. Choose another install name or uninstall the existing mod first.", err)
	case ErrUnsafeName:
		return fmt.Sprintf("%v. Names cannot contain path separators or '..'.", err)
	case ErrWatchSetupFailed:
		return fmt.Sprintf("%v. Use Refresh manually.", err)
	default:
		return err.Error()
	}
}
