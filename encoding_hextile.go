// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

// Hextile encoding constants as defined in RFC 6143 Section 7.7.4.
const (
	HextileRaw                 = 1
	HextileBackgroundSpecified = 2
	HextileForegroundSpecified = 4
	HextileAnySubrects         = 8
	HextileSubrectsColoured    = 16

	HextileTileSize    = 16
	MaxSubrectsPerTile = 255
)

// hextileDecoder implements Hextile, RFC 6143 Section 7.7.4: the rectangle
// is divided into 16x16 tiles (smaller at the right/bottom edge), each
// encoded as raw pixels or as a background fill overlaid by colored
// subrectangles, with background/foreground colors persisting from the
// previous tile when not re-specified.
type hextileDecoder struct{}

func (*hextileDecoder) EncodingID() int32 { return 5 }

func (*hextileDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	tilesX := (rect.Width + HextileTileSize - 1) / HextileTileSize
	tilesY := (rect.Height + HextileTileSize - 1) / HextileTileSize

	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}

	var bgR, bgG, bgB, fgR, fgG, fgB byte

	for tileY := uint16(0); tileY < tilesY; tileY++ {
		for tileX := uint16(0); tileX < tilesX; tileX++ {
			tileWidth := uint16(HextileTileSize)
			tileHeight := uint16(HextileTileSize)
			if tileX*HextileTileSize+HextileTileSize > rect.Width {
				tileWidth = rect.Width - tileX*HextileTileSize
			}
			if tileY*HextileTileSize+HextileTileSize > rect.Height {
				tileHeight = rect.Height - tileY*HextileTileSize
			}

			originX := int(rect.X) + int(tileX)*HextileTileSize
			originY := int(rect.Y) + int(tileY)*HextileTileSize

			subencoding, err := in.ReadU8()
			if err != nil {
				return encodingError("hextileDecoder.Decode", "failed to read tile subencoding", err)
			}

			if subencoding&HextileRaw != 0 {
				rgb := make([]byte, int(tileWidth)*int(tileHeight)*bytesPerRGB888)
				for i := 0; i < int(tileWidth)*int(tileHeight); i++ {
					r, g, b, err := readRGBPixel(in, spf, cm)
					if err != nil {
						return encodingError("hextileDecoder.Decode", "failed to read raw tile pixel", err)
					}
					rgb[i*3], rgb[i*3+1], rgb[i*3+2] = r, g, b
				}
				if err := dest.WriteRect(originX, originY, int(tileWidth), int(tileHeight), rgb, int(tileWidth)); err != nil {
					return encodingError("hextileDecoder.Decode", "failed to blit raw tile", err)
				}
				continue
			}

			if subencoding&HextileBackgroundSpecified != 0 {
				bgR, bgG, bgB, err = readRGBPixel(in, spf, cm)
				if err != nil {
					return encodingError("hextileDecoder.Decode", "failed to read background color", err)
				}
			}
			if err := dest.FillRect(originX, originY, int(tileWidth), int(tileHeight), bgR, bgG, bgB); err != nil {
				return encodingError("hextileDecoder.Decode", "failed to fill tile background", err)
			}

			if subencoding&HextileForegroundSpecified != 0 {
				fgR, fgG, fgB, err = readRGBPixel(in, spf, cm)
				if err != nil {
					return encodingError("hextileDecoder.Decode", "failed to read foreground color", err)
				}
			}

			if subencoding&HextileAnySubrects == 0 {
				continue
			}

			numSubrects, err := in.ReadU8()
			if err != nil {
				return encodingError("hextileDecoder.Decode", "failed to read subrectangle count", err)
			}

			colored := subencoding&HextileSubrectsColoured != 0
			for i := uint8(0); i < numSubrects; i++ {
				r, g, b := fgR, fgG, fgB
				if colored {
					r, g, b, err = readRGBPixel(in, spf, cm)
					if err != nil {
						return encodingError("hextileDecoder.Decode", "failed to read subrectangle color", err)
					}
				}

				xyData, err := in.ReadU8()
				if err != nil {
					return encodingError("hextileDecoder.Decode", "failed to read subrectangle position", err)
				}
				whData, err := in.ReadU8()
				if err != nil {
					return encodingError("hextileDecoder.Decode", "failed to read subrectangle dimensions", err)
				}

				sx := (xyData >> 4) & 0x0F
				sy := xyData & 0x0F
				sw := ((whData >> 4) & 0x0F) + 1
				sh := (whData & 0x0F) + 1

				if uint16(sx)+uint16(sw) > tileWidth || uint16(sy)+uint16(sh) > tileHeight {
					return encodingError("hextileDecoder.Decode", "subrectangle extends outside tile bounds", nil)
				}

				if err := dest.FillRect(originX+int(sx), originY+int(sy), int(sw), int(sh), r, g, b); err != nil {
					return encodingError("hextileDecoder.Decode", "failed to fill subrectangle", err)
				}
			}
		}
	}

	return nil
}
