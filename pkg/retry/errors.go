package retry

import "errors"

var (
	// ErrAttemptsExhausted is returned by Until when no result was accepted.
	ErrAttemptsExhausted = errors.New("failed to achieve success condition")
	// ErrInvalidPollSpec is returned by Until for a spec without attempts.
	ErrInvalidPollSpec = errors.New("invalid poll spec")
)
