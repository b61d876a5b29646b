package soffice

import "errors"

// ErrBinaryNotFound means the configured path does not resolve to a usable
// LibreOffice executable. Every Check failure wraps it, so callers can map
// any unusable binary onto one condition.
var ErrBinaryNotFound = errors.New("libreoffice binary not found")

// ConvError describes one failed conversion attempt. Reason is the short
// diagnostic recorded in batch summaries; for timeouts it is exactly
// "timeout".
type ConvError struct {
	Reason   string
	ExitCode int
	Stderr   string
}

func (e *ConvError) Error() string {
	return e.Reason
}
