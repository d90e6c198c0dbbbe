package shared

import "errors"

var (
	// ErrNotConnected indicates the session holds no OAuth token set.
	ErrNotConnected = errors.New("not connected to xero")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
