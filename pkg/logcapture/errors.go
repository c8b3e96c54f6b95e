package logcapture

import "errors"

var (
	// ErrNoMatchingLog is returned by AssertContains when nothing matched.
	ErrNoMatchingLog = errors.New("no log found")
	// ErrErrorLogs is returned by AssertNoErrors when error records were captured.
	ErrErrorLogs = errors.New("error logs captured")
)
