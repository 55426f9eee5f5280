// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "fmt"

// rreDecoder implements RRE (Rise-and-Run-length Encoding), RFC 6143
// Section 7.7.3: a background color filling the whole rectangle, overlaid
// by a list of solid-color subrectangles.
type rreDecoder struct{}

func (*rreDecoder) EncodingID() int32 { return 2 }

const maxRRESubrects = 1000000

func (*rreDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	numSubrects, err := in.ReadU32()
	if err != nil {
		return encodingError("rreDecoder.Decode", "failed to read number of subrectangles", err)
	}
	if numSubrects > maxRRESubrects {
		return encodingError("rreDecoder.Decode",
			fmt.Sprintf("too many subrectangles: %d (max %d)", numSubrects, maxRRESubrects), nil)
	}

	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}

	bgR, bgG, bgB, err := readRGBPixel(in, spf, cm)
	if err != nil {
		return encodingError("rreDecoder.Decode", "failed to read background color", err)
	}
	if err := dest.FillRect(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), bgR, bgG, bgB); err != nil {
		return encodingError("rreDecoder.Decode", "failed to fill background", err)
	}

	for i := uint32(0); i < numSubrects; i++ {
		r, g, b, err := readRGBPixel(in, spf, cm)
		if err != nil {
			return encodingError("rreDecoder.Decode", "failed to read subrectangle color", err)
		}
		x, err := in.ReadU16()
		if err != nil {
			return encodingError("rreDecoder.Decode", "failed to read subrectangle x", err)
		}
		y, err := in.ReadU16()
		if err != nil {
			return encodingError("rreDecoder.Decode", "failed to read subrectangle y", err)
		}
		width, err := in.ReadU16()
		if err != nil {
			return encodingError("rreDecoder.Decode", "failed to read subrectangle width", err)
		}
		height, err := in.ReadU16()
		if err != nil {
			return encodingError("rreDecoder.Decode", "failed to read subrectangle height", err)
		}
		if int(x)+int(width) > int(rect.Width) || int(y)+int(height) > int(rect.Height) {
			return encodingError("rreDecoder.Decode", "subrectangle extends beyond parent rectangle", nil)
		}
		if width == 0 || height == 0 {
			continue
		}
		if err := dest.FillRect(int(rect.X)+int(x), int(rect.Y)+int(y), int(width), int(height), r, g, b); err != nil {
			return encodingError("rreDecoder.Decode", "failed to fill subrectangle", err)
		}
	}

	return nil
}
