package ingest

import (
	"math/rand"
	"time"
)

// BackoffPolicy computes the delay before a failed chunk is retried.
type BackoffPolicy struct {
	// Base is the delay after the first failure.
	Base time.Duration

	// Max caps the delay regardless of attempt count.
	Max time.Duration

	// Jitter spreads delays by up to ±10% so retries from many chunks
	// do not land on the same tick. Off by default to keep tests exact.
	Jitter bool
}

// Delay returns the backoff for the given attempt count, doubling from
// Base and capped at Max. Attempt 1 is the first failure.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Max {
			delay = p.Max
			break
		}
	}
	if delay > p.Max {
		delay = p.Max
	}

	if p.Jitter {
		if span := int64(delay) / 5; span > 0 {
			delay += time.Duration(rand.Int63n(span) - span/2)
		}
	}

	return delay
}
