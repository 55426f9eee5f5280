// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"testing"
	"time"
)

func TestReconnectPolicyDisabled(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{Enabled: false})
	if _, ok := p.Next(); ok {
		t.Fatal("expected no attempts when reconnection is disabled")
	}
}

func TestReconnectPolicyRespectsMaxRetries(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{
		Enabled:        true,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Jitter:         0,
	})

	for i := 0; i < 3; i++ {
		if _, ok := p.Next(); !ok {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
	}
	if _, ok := p.Next(); ok {
		t.Fatal("expected attempts to be exhausted after MaxRetries")
	}
	if got := p.Attempts(); got != 3 {
		t.Fatalf("got %d attempts, want 3", got)
	}
}

func TestReconnectPolicyUnlimitedRetries(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{
		Enabled:        true,
		MaxRetries:     0,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})

	for i := 0; i < 50; i++ {
		if _, ok := p.Next(); !ok {
			t.Fatalf("expected unlimited attempts, failed at %d", i)
		}
	}
}

func TestReconnectPolicyReset(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{
		Enabled:        true,
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})

	if _, ok := p.Next(); !ok {
		t.Fatal("expected first attempt to be allowed")
	}
	if _, ok := p.Next(); ok {
		t.Fatal("expected attempts exhausted before reset")
	}

	p.Reset()
	if got := p.Attempts(); got != 0 {
		t.Fatalf("got %d attempts after reset, want 0", got)
	}
	if _, ok := p.Next(); !ok {
		t.Fatal("expected an attempt to be allowed again after reset")
	}
}

func TestReconnectPolicyWaitHonorsContextCancellation(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{
		Enabled:        true,
		MaxRetries:     1,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := p.Wait(ctx)
	if ok || err == nil {
		t.Fatal("expected Wait to return false with an error when context is already cancelled")
	}
}

func TestReconnectPolicyWaitReturnsFalseWhenExhausted(t *testing.T) {
	p := NewReconnectPolicy(ReconnectConfig{Enabled: false})

	ok, err := p.Wait(context.Background())
	if ok || err != nil {
		t.Fatalf("expected (false, nil) when disabled, got (%v, %v)", ok, err)
	}
}
