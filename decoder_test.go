// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"testing"
)

func truecolor24() PixelFormat {
	return PixelFormat{
		BPP: 24, Depth: 24, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 16, GreenShift: 8, BlueShift: 0,
	}
}

func TestRawDecoder_Decode(t *testing.T) {
	spf := truecolor24()
	// 2x1 rectangle: red pixel then green pixel, packed as 24bpp truecolor.
	wire := []byte{0xFF, 0x00, 0x00, 0x00, 0xFF, 0x00}
	in := NewInputStream(bytes.NewReader(wire))
	dest := NewPixelBuffer(4, 4)

	rect := RectangleHeader{X: 1, Y: 1, Width: 2, Height: 1, EncodingType: 0}
	d := &rawDecoder{}
	if d.EncodingID() != 0 {
		t.Fatalf("EncodingID() = %d, want 0", d.EncodingID())
	}
	if err := d.Decode(in, rect, spf, dest); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	r, g, b, err := dest.Pixel(1, 1)
	if err != nil || r != 0xFF || g != 0 || b != 0 {
		t.Fatalf("Pixel(1,1) = (%d,%d,%d,%v), want (255,0,0,nil)", r, g, b, err)
	}
	r, g, b, err = dest.Pixel(2, 1)
	if err != nil || r != 0 || g != 0xFF || b != 0 {
		t.Fatalf("Pixel(2,1) = (%d,%d,%d,%v), want (0,255,0,nil)", r, g, b, err)
	}
}

func TestCopyRectDecoder_Decode(t *testing.T) {
	dest := NewPixelBuffer(8, 8)
	if err := dest.FillRect(0, 0, 2, 2, 10, 20, 30); err != nil {
		t.Fatalf("FillRect() error = %v", err)
	}

	// CopyRect body is just the 4-byte source coordinate pair.
	wire := []byte{0x00, 0x00, 0x00, 0x00}
	in := NewInputStream(bytes.NewReader(wire))
	rect := RectangleHeader{X: 4, Y: 4, Width: 2, Height: 2, EncodingType: 1}

	d := &copyRectDecoder{}
	if d.EncodingID() != 1 {
		t.Fatalf("EncodingID() = %d, want 1", d.EncodingID())
	}
	if err := d.Decode(in, rect, truecolor24(), dest); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	r, g, b, err := dest.Pixel(4, 4)
	if err != nil || r != 10 || g != 20 || b != 30 {
		t.Fatalf("Pixel(4,4) = (%d,%d,%d,%v), want (10,20,30,nil)", r, g, b, err)
	}
}

func TestDecoderRegistry_SeedsCoreEncodings(t *testing.T) {
	reg := NewDecoderRegistry(nil)

	for _, id := range []int32{0, 1, 2, 5, 7, 16} {
		if _, ok := reg.Lookup(id); !ok {
			t.Errorf("Lookup(%d) = not found, want a registered decoder", id)
		}
	}
}

func TestDecoderRegistry_CacheDecodersOnlyWhenConfigured(t *testing.T) {
	reg := NewDecoderRegistry(nil)
	if _, ok := reg.Lookup(EncodingCachedRect); ok {
		t.Error("Lookup(EncodingCachedRect) found a decoder with no SessionCache configured")
	}

	cfg := &ClientConfig{SessionCache: NewSessionCache(1024 * 1024)}
	reg = NewDecoderRegistry(cfg)
	if _, ok := reg.Lookup(EncodingCachedRect); !ok {
		t.Error("Lookup(EncodingCachedRect) = not found, want a registered decoder once SessionCache is configured")
	}
	if _, ok := reg.Lookup(EncodingCachedRectInit); !ok {
		t.Error("Lookup(EncodingCachedRectInit) = not found, want a registered decoder once SessionCache is configured")
	}
}

func TestDecoderRegistry_Decode_UnsupportedEncoding(t *testing.T) {
	reg := NewDecoderRegistry(nil)
	in := NewInputStream(bytes.NewReader(nil))
	rect := RectangleHeader{Width: 1, Height: 1, EncodingType: 9999}

	err := reg.Decode(in, rect, truecolor24(), NewPixelBuffer(4, 4))
	if !IsVNCError(err, ErrUnsupportedEncoding) {
		t.Fatalf("Decode() error = %v, want ErrUnsupportedEncoding", err)
	}
}

func TestReadCursorRect_HiddenCursor(t *testing.T) {
	in := NewInputStream(bytes.NewReader(nil))
	ev, err := readCursorRect(in, RectangleHeader{Width: 0, Height: 0}, truecolor24(), nil)
	if err != nil {
		t.Fatalf("readCursorRect() error = %v", err)
	}
	if ev.Width != 0 || ev.Height != 0 || ev.PixelData != nil {
		t.Fatalf("readCursorRect() = %+v, want a zero-value hidden-cursor event", ev)
	}
}

func TestReadCursorRect_DecodesShapeAndMask(t *testing.T) {
	// 2x1 cursor: two truecolor pixels, then ceil(2/8)*1 = 1 mask byte.
	wire := []byte{0xFF, 0x00, 0x00, 0x00, 0xFF, 0x00, 0b11000000}
	in := NewInputStream(bytes.NewReader(wire))
	rect := RectangleHeader{X: 1, Y: 2, Width: 2, Height: 1}

	ev, err := readCursorRect(in, rect, truecolor24(), nil)
	if err != nil {
		t.Fatalf("readCursorRect() error = %v", err)
	}
	if ev.Width != 2 || ev.Height != 1 || ev.HotspotX != 1 || ev.HotspotY != 2 {
		t.Fatalf("readCursorRect() = %+v, want width=2 height=1 hotspot=(1,2)", ev)
	}
	if len(ev.PixelData) != 6 || len(ev.MaskData) != 1 {
		t.Fatalf("readCursorRect() pixel/mask lengths = %d/%d, want 6/1", len(ev.PixelData), len(ev.MaskData))
	}
}
