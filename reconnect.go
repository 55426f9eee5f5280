// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReconnectPolicy supplies the backoff schedule for reconnection after a
// transport failure. It wraps backoff/v4's exponential backoff rather than
// calling backoff.Retry directly: the caller drives each attempt itself
// with Next, Wait and Reset. ClientConn does not call it.
type ReconnectPolicy struct {
	cfg     ReconnectConfig
	backoff *backoff.ExponentialBackOff
	tries   uint32
}

// NewReconnectPolicy builds a ReconnectPolicy from a ReconnectConfig.
func NewReconnectPolicy(cfg ReconnectConfig) *ReconnectPolicy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.RandomizationFactor = cfg.Jitter
	b.Multiplier = 2.0
	b.MaxElapsedTime = 0 // the policy itself enforces MaxRetries, not elapsed time
	b.Reset()

	return &ReconnectPolicy{cfg: cfg, backoff: b}
}

// Next returns the delay before the next reconnect attempt and whether one
// should be attempted at all. ok is false once MaxRetries attempts have been
// exhausted (MaxRetries == 0 means unlimited).
func (p *ReconnectPolicy) Next() (delay time.Duration, ok bool) {
	if !p.cfg.Enabled {
		return 0, false
	}
	if p.cfg.MaxRetries != 0 && p.tries >= p.cfg.MaxRetries {
		return 0, false
	}
	p.tries++
	return p.backoff.NextBackOff(), true
}

// Reset clears the attempt counter and backoff interval, called after a
// reconnect succeeds so a later failure starts from InitialBackoff again.
func (p *ReconnectPolicy) Reset() {
	p.tries = 0
	p.backoff.Reset()
}

// Attempts reports how many reconnect attempts have been made since the
// last Reset.
func (p *ReconnectPolicy) Attempts() uint32 {
	return p.tries
}

// Wait blocks for the policy's next backoff interval or until ctx is
// cancelled, whichever comes first. It returns ok=false immediately,
// without waiting, when the policy has no further attempts to offer.
func (p *ReconnectPolicy) Wait(ctx context.Context) (ok bool, err error) {
	delay, ok := p.Next()
	if !ok {
		return false, nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
