// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package vnc implements an RFB/VNC client engine: connection and handshake
// state machine, a pluggable rectangle-decoder pipeline backed by a single
// owned PixelBuffer, content-addressed session and persistent caches, and an
// update scheduler with flow control and a stall watchdog.
//
// # Basic Usage
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	conn, err := net.Dial("tcp", "localhost:5900")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	events := make(chan vnc.Event, 16)
//	cfg := &vnc.ClientConfig{
//		Auth:    []vnc.ClientAuth{vnc.NewPasswordAuth(password)},
//		EventCh: events,
//	}
//
//	client, err := vnc.ClientWithContext(ctx, conn, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// # Event Handling
//
//	for ev := range events {
//		switch e := ev.(type) {
//		case vnc.FramebufferUpdatedEvent:
//			// e.Damage lists the rectangles decoded into the pixel buffer
//		case vnc.BellEvent:
//		case vnc.ServerCutTextEvent:
//			// e.Text holds the transcoded clipboard text
//		}
//	}
//
// # Input Events
//
//	client.KeyEvent(0x0061, true)  // 'a' key down
//	client.KeyEvent(0x0061, false) // 'a' key up
//	client.PointerEvent(vnc.ButtonLeft, 100, 100)
//	client.PointerEvent(0, 100, 100)
//
// # Error Handling
//
//	if vnc.IsVNCError(err, vnc.ErrAuth) {
//		log.Printf("authentication failed: %v", err)
//	}
package vnc
