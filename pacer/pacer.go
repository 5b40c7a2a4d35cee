// Package pacer makes retrying external operations easy. Attempts are
// bounded and separated by a fixed delay.
package pacer

import (
	"time"
)

// Paced is a function called by Call. It returns true if it would like
// to be retried, and an error.
type Paced func() (bool, error)

// Pacer retries an operation a bounded number of times.
type Pacer struct {
	attempts int
	sleep    time.Duration
	timer    func(time.Duration) // swappable for tests
}

// New returns a Pacer which makes up to attempts calls, sleeping for
// sleep between failed ones.
func New(attempts int, sleep time.Duration) *Pacer {
	if attempts < 1 {
		attempts = 1
	}
	return &Pacer{
		attempts: attempts,
		sleep:    sleep,
		timer:    time.Sleep,
	}
}

// SetTimer overrides the inter-attempt sleep function. Used by tests.
func (p *Pacer) SetTimer(timer func(time.Duration)) *Pacer {
	p.timer = timer
	return p
}

// Attempts returns the configured attempt bound.
func (p *Pacer) Attempts() int {
	return p.attempts
}

// Call invokes fn until it succeeds, declines a retry, or the attempt
// bound is reached. The bound counts invocations of fn, so a function
// which fails every time is called exactly Attempts() times.
func (p *Pacer) Call(fn Paced) error {
	var (
		retry bool
		err   error
	)
	for i := 0; i < p.attempts; i++ {
		if i > 0 {
			p.timer(p.sleep)
		}
		retry, err = fn()
		if err == nil || !retry {
			return err
		}
	}
	return err
}
