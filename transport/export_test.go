package transport

import "time"

// NewClientWithDelays exposes newClientWithDelays to transport_test so
// retry-schedule tests can drive Client.Send end to end (backoff timing,
// error classification, exhaustion wrapping) without waiting out the
// production schedule's real delays and per-attempt timeout cap.
func NewClientWithDelays(delays []time.Duration, attemptCap time.Duration) (*Client, error) {
	return newClientWithDelays(delays, attemptCap)
}
