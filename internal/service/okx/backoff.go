package okx

import (
	"math/rand"
	"time"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFactor   = 0.1
	maxReconnects  = 10

	pingInterval = 20 * time.Second
	writeTimeout = 10 * time.Second
)

// backoff yields exponentially growing reconnect delays with jitter.
// Not safe for concurrent use; each stream owns one.
type backoff struct {
	current  time.Duration
	attempts int
}

func newBackoff() *backoff {
	return &backoff{current: initialBackoff}
}

// next returns the delay before the next attempt, or false once the attempt
// budget is spent. The jitter spreads reconnects so parallel streams do not
// hammer the endpoint in lockstep.
func (b *backoff) next() (time.Duration, bool) {
	if b.attempts >= maxReconnects {
		return 0, false
	}
	b.attempts++
	jitter := (rand.Float64()*2 - 1) * jitterFactor * float64(b.current)
	delay := b.current + time.Duration(jitter)
	b.current = time.Duration(float64(b.current) * backoffFactor)
	if b.current > maxBackoff {
		b.current = maxBackoff
	}
	if delay < 0 {
		delay = 0
	}
	return delay, true
}

// reset restores the initial state after a successful connection.
func (b *backoff) reset() {
	b.current = initialBackoff
	b.attempts = 0
}
