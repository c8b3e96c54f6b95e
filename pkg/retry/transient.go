package retry

import (
	"context"
	"errors"
	"regexp"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// httpStatusCodePattern matches 500-504 as whole words so ports like ":5000" do not count.
var httpStatusCodePattern = regexp.MustCompile(`\b50[0-4]\b`)

// transientMessages are substrings of network failures worth another attempt.
var transientMessages = []string{
	"Internal Server Error", "Bad Gateway",
	"Service Unavailable", "Gateway Timeout",
	"connection reset by peer", "connection refused",
	"i/o timeout", "TLS handshake timeout",
	"unexpected EOF", "no such host",
}

// IsTransient reports whether err looks like a temporary API server or network
// failure. Use it with WithRetryIf. Cancellation is never transient.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err):
		return true
	}

	message := err.Error()

	for _, pattern := range transientMessages {
		if strings.Contains(message, pattern) {
			return true
		}
	}

	return httpStatusCodePattern.MatchString(message)
}
