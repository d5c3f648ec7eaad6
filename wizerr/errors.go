// Package wizerr defines the closed set of failure kinds surfaced by the
// wizgo core. All other failures are internal and are retried or swallowed
// before they escape a package boundary.
package wizerr

import (
	"errors"
	"fmt"
)

// Error is the common root every wizgo error wraps, so callers can catch
// broadly with errors.Is(err, wizerr.Error).
var Error = errors.New("wizgo error")

// InvalidParameter is returned when PilotBuilder is given an out-of-domain
// scene, or a wrong-type or too-short tuple for rgbw/rgbww. Non-retryable.
var InvalidParameter = wrap("invalid parameter")

// ConnectionError is returned on UDP transport failure (socket error event,
// connection loss). Retried within the retry schedule.
var ConnectionError = wrap("connection error")

// TimeoutError is returned when the retry schedule is exhausted with no
// response.
var TimeoutError = wrap("timeout")

// CommandError is returned when a device response contains an "error"
// field. Surfaced immediately, no retry.
var CommandError = wrap("command error")

// NotKnownBulb is reserved for callers that wish to distinguish unknown
// module names; the detector itself never returns it — it falls back to RGB
// defaults.
var NotKnownBulb = wrap("not a known bulb type")

func wrap(msg string) error {
	return fmt.Errorf("%s: %w", msg, Error)
}

// Newf builds an error that chains from kind (one of the sentinels above)
// and formats a message around it, e.g. wizerr.Newf(wizerr.InvalidParameter,
// "unknown scene %q", name).
func Newf(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// Wrap chains cause under kind, used by the retry client to surface the
// last recorded cause under wizerr.TimeoutError.
func Wrap(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Retryable reports whether err is a transient failure the retry client
// should back off and reattempt. Only timeouts and connection failures are
// retryable; InvalidParameter and CommandError are terminal.
func Retryable(err error) bool {
	return errors.Is(err, TimeoutError) || errors.Is(err, ConnectionError)
}

