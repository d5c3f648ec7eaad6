package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wizgo/wizgo/wizerr"
)

// RetryDelays is the progressive backoff schedule applied between attempts:
// no wait before the first attempt, then increasingly long pauses.
var RetryDelays = []time.Duration{
	0,
	500 * time.Millisecond,
	1500 * time.Millisecond,
	3 * time.Second,
	6 * time.Second,
}

// TotalTimeout is the overall timeout of a Send. Each attempt waits at most
// the smaller of TotalTimeout and the per-attempt cap; the backoff waits and
// attempts taken together are not bounded by it.
const TotalTimeout = 11 * time.Second

// perAttemptCap is the maximum time budget for a single SendOnce call.
const perAttemptCap = 3 * time.Second

// Client wraps a Conn with retry-with-backoff and response classification.
// One Client owns one underlying Conn and must not be shared across
// goroutines without external synchronization, matching the single pending
// response slot on Conn.
type Client struct {
	conn       *Conn
	delays     []time.Duration
	attemptCap time.Duration
	stats      *stats
}

// NewClient opens a fresh underlying connection using the production retry
// schedule and per-attempt timeout cap.
func NewClient() (*Client, error) {
	return newClientWithDelays(RetryDelays, perAttemptCap)
}

// newClientWithDelays opens a fresh connection with a caller-supplied retry
// schedule and per-attempt timeout cap, so tests can drive the full
// backoff/classification/exhaustion path through Send itself without waiting
// out the production schedule.
func newClientWithDelays(delays []time.Duration, attemptCap time.Duration) (*Client, error) {
	conn, err := NewConn()
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, delays: delays, attemptCap: attemptCap, stats: newStats()}, nil
}

// Send transmits message to ip, retrying on timeout or connection failure
// per RetryDelays, and returns the decoded response. A device-reported
// error is terminal: it is surfaced immediately as CommandError without
// further retries. Exhausting every attempt returns TimeoutError wrapping
// the last transient failure.
func (c *Client) Send(ctx context.Context, ip string, message Message) (Envelope, error) {
	payload, err := encode(message)
	if err != nil {
		return Envelope{}, wizerr.Wrap(wizerr.InvalidParameter, err)
	}

	start := time.Now()
	var lastErr error
	for attempt, delay := range c.delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return Envelope{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptTimeout := minDuration(TotalTimeout, c.attemptCap)
		env, sendErr := c.conn.SendOnce(ctx, ip, payload, attemptTimeout)
		if sendErr != nil {
			if wizerr.Retryable(sendErr) {
				lastErr = sendErr
				slog.Debug("retrying after transient failure", "ip", ip, "attempt", attempt, "err", sendErr)
				continue
			}
			return Envelope{}, sendErr
		}

		if env.HasError() {
			return Envelope{}, wizerr.Newf(wizerr.CommandError, "device %s returned error: %v", ip, env.Error)
		}
		c.stats.sample(message.Method, time.Since(start))
		return env, nil
	}

	return Envelope{}, wizerr.Wrap(wizerr.TimeoutError, fmt.Errorf("no response from %s after %d attempts: %w", ip, len(c.delays), lastErr))
}

// SendNoReply transmits message to ip without awaiting a response.
func (c *Client) SendNoReply(ip string, message Message) error {
	payload, err := encode(message)
	if err != nil {
		return wizerr.Wrap(wizerr.InvalidParameter, err)
	}
	return c.conn.SendNoReply(ip, payload)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
