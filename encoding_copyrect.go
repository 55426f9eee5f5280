// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// copyRectDecoder implements the CopyRect encoding, RFC 6143 Section
// 7.7.2: the rectangle's pixel data already lives in dest at a different
// location and is simply shifted into place, so only the 4-byte source
// coordinate pair crosses the wire.
type copyRectDecoder struct{}

func (*copyRectDecoder) EncodingID() int32 { return 1 }

func (*copyRectDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	srcX, err := in.ReadU16()
	if err != nil {
		return encodingError("copyRectDecoder.Decode", "failed to read source x", err)
	}
	srcY, err := in.ReadU16()
	if err != nil {
		return encodingError("copyRectDecoder.Decode", "failed to read source y", err)
	}

	return dest.CopyRect(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), int(srcX), int(srcY))
}
