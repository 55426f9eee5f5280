// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// readCursorRect decodes a Cursor pseudo-rectangle (encoding -239) body.
// Unlike the real-pixel encodings, a cursor rectangle carries no damage to
// the framebuffer itself - its X/Y give the hotspot, not a position - so
// the session coordinator special-cases it inline rather than routing it
// through the DecoderRegistry, the same way it handles DesktopSize and
// LastRect. Pixel data is resolved through readRGBPixel one pixel at a
// time so indexed pixel formats are converted via the same color map path
// every other decoder uses.
func readCursorRect(in *InputStream, rect RectangleHeader, spf PixelFormat, cm *ColorMap) (*CursorUpdatedEvent, error) {
	if rect.Width == 0 && rect.Height == 0 {
		return &CursorUpdatedEvent{}, nil
	}
	if rect.Width > 256 || rect.Height > 256 {
		return nil, encodingError("readCursorRect", "cursor dimensions too large", nil)
	}

	pixelCount := int(rect.Width) * int(rect.Height)
	pixels := make([]byte, pixelCount*bytesPerRGB888)
	off := 0
	for i := 0; i < pixelCount; i++ {
		r, g, b, err := readRGBPixel(in, spf, cm)
		if err != nil {
			return nil, encodingError("readCursorRect", "failed to read cursor pixel data", err)
		}
		pixels[off] = r
		pixels[off+1] = g
		pixels[off+2] = b
		off += bytesPerRGB888
	}

	maskSize := calculateMaskDataSize(rect.Width, rect.Height)
	mask, err := in.ReadN(maskSize)
	if err != nil {
		return nil, encodingError("readCursorRect", "failed to read cursor mask data", err)
	}

	return &CursorUpdatedEvent{
		Width:     rect.Width,
		Height:    rect.Height,
		HotspotX:  rect.X,
		HotspotY:  rect.Y,
		PixelData: pixels,
		MaskData:  mask,
	}, nil
}
