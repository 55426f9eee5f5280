// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"fmt"
	"io"
)

// Real-pixel encoding identifiers, named for readability at SetEncodings
// call sites; each also appears as the literal return value of its
// decoder's EncodingID method.
const (
	EncodingRaw      int32 = 0
	EncodingCopyRect int32 = 1
	EncodingRRE      int32 = 2
	EncodingHextile  int32 = 5
	EncodingTight    int32 = 7
	EncodingZRLE     int32 = 16
)

// Decoder decodes a single rectangle's wire-format body directly into dest,
// at the location and size given by rect. Implementations never buffer a
// transient Color slice: they read from in and blit straight into dest, so
// a single owned PixelBuffer is the only place pixel state lives.
type Decoder interface {
	EncodingID() int32
	Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error
}

// DecoderRegistry maps an encoding type to the Decoder that handles it.
// Pseudo-encodings (id < 0) are never registered here: DesktopSize (-223)
// and LastRect (-224) are special-cased directly by the rectangle loop in
// the session coordinator, since they carry no pixel payload of their own.
type DecoderRegistry struct {
	decoders map[int32]Decoder
}

// NewDecoderRegistry builds a registry seeded with every real-pixel encoding
// this engine supports, plus the session-cache decoders when cfg.SessionCache
// is set and the persistent-cache decoders when cfg.PersistentCache is set.
func NewDecoderRegistry(cfg *ClientConfig) *DecoderRegistry {
	reg := &DecoderRegistry{decoders: make(map[int32]Decoder)}

	reg.Register(&rawDecoder{})
	reg.Register(&copyRectDecoder{})
	reg.Register(&rreDecoder{})
	reg.Register(&hextileDecoder{})
	reg.Register(newTightDecoder())
	reg.Register(newZRLEDecoder())

	if cfg != nil && cfg.SessionCache != nil {
		reg.Register(&cachedRectInitDecoder{cache: cfg.SessionCache, registry: reg})
		reg.Register(&cachedRectDecoder{cache: cfg.SessionCache})
	}
	if cfg != nil && cfg.PersistentCache != nil {
		reg.Register(&persistentCachedRectInitDecoder{cache: cfg.PersistentCache, registry: reg})
		reg.Register(&persistentCachedRectDecoder{cache: cfg.PersistentCache})
	}

	return reg
}

// Register adds or replaces the decoder for its own EncodingID.
func (r *DecoderRegistry) Register(d Decoder) {
	r.decoders[d.EncodingID()] = d
}

// Lookup returns the decoder for encodingType, if any.
func (r *DecoderRegistry) Lookup(encodingType int32) (Decoder, bool) {
	d, ok := r.decoders[encodingType]
	return d, ok
}

// Decode dispatches rect to the registered decoder, or returns
// ErrUnsupportedEncoding if none is registered for rect.EncodingType.
func (r *DecoderRegistry) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	d, ok := r.decoders[rect.EncodingType]
	if !ok {
		return unsupportedEncodingError("DecoderRegistry.Decode",
			fmt.Sprintf("no decoder registered for encoding %d", rect.EncodingType), rect.EncodingType, nil)
	}
	return d.Decode(in, rect, spf, dest)
}

// SupportedEncodings returns the EncodingType identifiers this registry can
// decode, used to populate the SetEncodings message.
func (r *DecoderRegistry) SupportedEncodings() []int32 {
	ids := make([]int32, 0, len(r.decoders))
	for id := range r.decoders {
		ids = append(ids, id)
	}
	return ids
}

// readRGBPixel reads a single pixel in spf's wire format from in and
// returns it as 8-bit RGB, resolving indexed pixels through cm.
func readRGBPixel(in *InputStream, spf PixelFormat, cm *ColorMap) (r, g, b byte, err error) {
	conv, convErr := NewPixelFormatConverter(&spf)
	if convErr != nil {
		return 0, 0, 0, protocolError("readRGBPixel", "invalid pixel format", convErr)
	}
	raw, err := conv.ReadPixel(in.Reader())
	if err != nil {
		return 0, 0, 0, protocolError("readRGBPixel", "failed to read pixel", err)
	}
	if spf.TrueColor {
		r, g, b = conv.ExtractRGB(raw)
		return r, g, b, nil
	}
	if cm == nil {
		return 0, 0, 0, nil
	}
	color := cm.Get(uint8(raw)) // #nosec G115 - indexed formats are BPP<=8
	fc := NewColorFormatConverter()
	r, g, b = fc.ColorToRGB8(color)
	return r, g, b, nil
}

// readRGBPixelN reads a single pixel packed into exactly n bytes (as ZRLE's
// CPIXEL does, which may be narrower than spf.BPP/8) and returns it as
// 8-bit RGB, scaling each channel from spf's Max/Shift pair.
func readRGBPixelN(r io.Reader, spf PixelFormat, cm *ColorMap, n int) (rb, gb, bb byte, err error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, 0, 0, err
	}

	var raw uint32
	for _, b := range buf {
		raw = raw<<8 | uint32(b)
	}

	if !spf.TrueColor {
		if cm == nil {
			return 0, 0, 0, nil
		}
		color := cm.Get(uint8(raw)) // #nosec G115 - indexed formats are BPP<=8
		fc := NewColorFormatConverter()
		rb, gb, bb = fc.ColorToRGB8(color)
		return rb, gb, bb, nil
	}

	scale := func(v uint32, max uint16) byte {
		if max == 0 {
			return 0
		}
		return byte((v * 255) / uint32(max))
	}
	rv := (raw >> spf.RedShift) & uint32(spf.RedMax)
	gv := (raw >> spf.GreenShift) & uint32(spf.GreenMax)
	bv := (raw >> spf.BlueShift) & uint32(spf.BlueMax)
	return scale(rv, spf.RedMax), scale(gv, spf.GreenMax), scale(bv, spf.BlueMax), nil
}

// bytesReaderOf wraps a byte slice already read from the wire for
// consumption by a zlib.Reader.
func bytesReaderOf(b []byte) io.Reader {
	return bytes.NewReader(b)
}
