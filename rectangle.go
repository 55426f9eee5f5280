// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// Pseudo-encoding identifiers handled inline by the session coordinator's
// rectangle loop rather than through the DecoderRegistry: none of the three
// carry ordinary pixel payloads, so there is no Decoder to register them
// with.
const (
	pseudoEncodingDesktopSize = -223
	pseudoEncodingLastRect    = -224
	pseudoEncodingCursor      = -239
)

// RectangleHeader is the 12-byte, big-endian rectangle header that precedes
// every rectangle's encoded body in a FramebufferUpdate message: x, y,
// width, height (uint16 each) followed by a signed 32-bit encoding type.
type RectangleHeader struct {
	X, Y, Width, Height uint16
	EncodingType        int32
}

// ReadRectangleHeader reads the 12-byte rectangle header.
func ReadRectangleHeader(in *InputStream) (RectangleHeader, error) {
	var rh RectangleHeader
	var err error

	if rh.X, err = in.ReadU16(); err != nil {
		return rh, protocolError("ReadRectangleHeader", "failed to read x", err)
	}
	if rh.Y, err = in.ReadU16(); err != nil {
		return rh, protocolError("ReadRectangleHeader", "failed to read y", err)
	}
	if rh.Width, err = in.ReadU16(); err != nil {
		return rh, protocolError("ReadRectangleHeader", "failed to read width", err)
	}
	if rh.Height, err = in.ReadU16(); err != nil {
		return rh, protocolError("ReadRectangleHeader", "failed to read height", err)
	}
	if rh.EncodingType, err = in.ReadI32(); err != nil {
		return rh, protocolError("ReadRectangleHeader", "failed to read encoding type", err)
	}
	return rh, nil
}

// WriteRectangleHeader writes the 12-byte rectangle header.
func WriteRectangleHeader(out *OutputStream, rh RectangleHeader) error {
	if err := out.WriteU16(rh.X); err != nil {
		return err
	}
	if err := out.WriteU16(rh.Y); err != nil {
		return err
	}
	if err := out.WriteU16(rh.Width); err != nil {
		return err
	}
	if err := out.WriteU16(rh.Height); err != nil {
		return err
	}
	return out.WriteI32(rh.EncodingType)
}

// withinFramebuffer reports whether the rectangle lies entirely within a
// width x height framebuffer, guarding against malicious or corrupt servers
// advertising rectangles that would otherwise overrun the pixel buffer.
func (rh RectangleHeader) withinFramebuffer(fbWidth, fbHeight uint16) bool {
	if rh.Width == 0 || rh.Height == 0 {
		return true // zero-area rectangles are degenerate but harmless
	}
	if int(rh.X)+int(rh.Width) > int(fbWidth) {
		return false
	}
	if int(rh.Y)+int(rh.Height) > int(fbHeight) {
		return false
	}
	return true
}
