// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// rawDecoder implements the Raw encoding, RFC 6143 Section 7.7.1:
// width*height pixels in the negotiated PixelFormat, left-to-right,
// top-to-bottom, with no compression.
type rawDecoder struct{}

func (*rawDecoder) EncodingID() int32 { return 0 }

func (*rawDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	width, height := int(rect.Width), int(rect.Height)
	rgb := make([]byte, width*height*bytesPerRGB888)

	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, err := readRGBPixel(in, spf, cm)
			if err != nil {
				return encodingError("rawDecoder.Decode", "failed to read pixel data", err)
			}
			off := (y*width + x) * bytesPerRGB888
			rgb[off], rgb[off+1], rgb[off+2] = r, g, b
		}
	}

	return dest.WriteRect(int(rect.X), int(rect.Y), width, height, rgb, width)
}
