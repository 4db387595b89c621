package models

import "errors"

// Failure taxonomy for a sync run. Callers distinguish classes with
// errors.Is: auth-stage errors require user action, ErrSourceUnavailable
// and ErrExportWriteFailed are retryable by re-running.
var (
	ErrUnauthenticated    = errors.New("no credential available, authentication required")
	ErrAuthExpired        = errors.New("device authorization expired")
	ErrAuthDenied         = errors.New("device authorization denied by user")
	ErrAuthRefreshFailed  = errors.New("token refresh rejected, re-authentication required")
	ErrSourceUnavailable  = errors.New("source service unavailable")
	ErrExportWriteFailed  = errors.New("export file write failed")
	ErrSyncAlreadyRunning = errors.New("a sync run is already in progress")
)
