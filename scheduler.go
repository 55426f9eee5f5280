// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"sync"
	"time"
)

// updateWatchdogInterval is the quiet period after which the scheduler
// assumes an outstanding request was dropped (by the server or the
// network) and issues a replacement, per SPEC_FULL.md's Update Scheduler
// component.
const updateWatchdogInterval = 2 * time.Second

// UpdateScheduler owns the outstanding_incremental flag and the watchdog
// timer that keep exactly one FramebufferUpdateRequest in flight at a
// time. Bootstrap sends the mandatory double non-incremental request RFB
// servers expect at startup; after that, RequestIncremental and
// OnUpdateReceived pace a single steady incremental stream, and the
// watchdog re-requests only if the server goes quiet for longer than
// updateWatchdogInterval, so a slow or lossy link is nudged without ever
// being flooded.
type UpdateScheduler struct {
	mu          sync.Mutex
	outstanding bool
	stopped     bool
	timer       *time.Timer

	request func(incremental bool, x, y, width, height uint16) error
	bounds  func() (width, height uint16)
}

// NewUpdateScheduler builds a scheduler that sends requests via request and
// reads the current framebuffer dimensions via bounds (so a resize picked
// up between watchdog firings is reflected without the caller threading
// fresh dimensions through).
func NewUpdateScheduler(
	request func(incremental bool, x, y, width, height uint16) error,
	bounds func() (width, height uint16),
) *UpdateScheduler {
	return &UpdateScheduler{request: request, bounds: bounds}
}

// Bootstrap runs the connection's startup sequence: apply the negotiated
// encodings and pixel format, then issue the two non-incremental
// FramebufferUpdateRequests RFB servers expect before they will start
// sending incremental updates, then arm the watchdog.
func (s *UpdateScheduler) Bootstrap(setEncodings, setPixelFormat func() error) error {
	if setEncodings != nil {
		if err := setEncodings(); err != nil {
			return err
		}
	}
	if setPixelFormat != nil {
		if err := setPixelFormat(); err != nil {
			return err
		}
	}

	width, height := s.bounds()
	for i := 0; i < 2; i++ {
		if err := s.sendRequest(false, 0, 0, width, height); err != nil {
			return err
		}
	}

	s.startWatchdog()
	return nil
}

// RequestIncremental asks for an incremental update covering the given
// rectangle. It is a no-op if a request is already outstanding, which is
// how the scheduler guarantees only one update is ever in flight.
func (s *UpdateScheduler) RequestIncremental(x, y, width, height uint16) error {
	s.mu.Lock()
	if s.outstanding || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.outstanding = true
	s.mu.Unlock()

	return s.sendLocked(true, x, y, width, height)
}

// OnUpdateReceived clears the outstanding flag and resets the watchdog,
// called once per FramebufferUpdate message the coordinator finishes
// processing.
func (s *UpdateScheduler) OnUpdateReceived() {
	s.mu.Lock()
	s.outstanding = false
	stopped := s.stopped
	timer := s.timer
	s.mu.Unlock()

	if !stopped && timer != nil {
		timer.Reset(updateWatchdogInterval)
	}
}

// Stop disarms the watchdog. Idempotent, safe to call during teardown even
// if Bootstrap never ran.
func (s *UpdateScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *UpdateScheduler) startWatchdog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.timer = time.AfterFunc(updateWatchdogInterval, s.onWatchdog)
}

// onWatchdog fires exactly one incremental request per expiry, whether or
// not a request is already outstanding: a request left unanswered for
// updateWatchdogInterval is treated as dropped and replaced.
func (s *UpdateScheduler) onWatchdog() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.outstanding = true
	s.mu.Unlock()

	width, height := s.bounds()
	_ = s.sendLocked(true, 0, 0, width, height)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped && s.timer != nil {
		s.timer.Reset(updateWatchdogInterval)
	}
}

// sendRequest issues a request without touching the outstanding flag,
// used only by Bootstrap's double non-incremental kickoff which precedes
// any steady-state incremental tracking.
func (s *UpdateScheduler) sendRequest(incremental bool, x, y, width, height uint16) error {
	return s.request(incremental, x, y, width, height)
}

// sendLocked issues a request on behalf of a caller that has already set
// the outstanding flag; the name reflects that invariant, not that it
// holds the mutex while sending (it deliberately does not, since request
// performs network I/O).
func (s *UpdateScheduler) sendLocked(incremental bool, x, y, width, height uint16) error {
	return s.request(incremental, x, y, width, height)
}
