// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// zrle tile sub-encoding identifiers, RFC 6143 Section 7.7.6.
const (
	zrleSubRaw           = 0
	zrleSubSolid         = 1
	zrleSubPackedPalette = 2 // 2..16
	zrleSubRLE           = 128
	zrleSubPRLE          = 130 // 130..255

	zrleTileSize = 64
)

// zrleDecoder implements ZRLE (Zlib Run-Length Encoding): the rectangle is
// carried as a zlib-compressed stream of 64x64 tiles, each using one of
// five sub-encodings (raw, solid, packed palette, plain RLE, palette RLE).
// The zlib stream is persistent for the lifetime of the connection, per RFC
// 6143 Section 7.7.6, so the decoder keeps one io.ReadCloser across Decode
// calls and appends each rectangle's compressed bytes to its input; the
// stream is never reset.
type zrleDecoder struct {
	zr  io.ReadCloser
	src *bytes.Buffer
}

func newZRLEDecoder() *zrleDecoder {
	return &zrleDecoder{}
}

func (*zrleDecoder) EncodingID() int32 { return 16 }

// cPixelSize returns the number of bytes ZRLE packs each pixel into on the
// wire: when the true-color format exactly fills 32 bits but only uses 24 of
// them, ZRLE drops the padding byte and sends 3-byte CPIXELs.
func cPixelSize(spf PixelFormat) int {
	if spf.TrueColor && spf.BPP == 32 && spf.Depth <= 24 {
		return 3
	}
	return int(spf.BPP) / 8
}

func (d *zrleDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	length, err := in.ReadU32()
	if err != nil {
		return encodingError("zrleDecoder.Decode", "failed to read zlib data length", err)
	}
	raw, err := in.ReadN(int(length))
	if err != nil {
		return encodingError("zrleDecoder.Decode", "failed to read zlib data", err)
	}

	if d.zr == nil {
		d.src = bytes.NewBuffer(append([]byte(nil), raw...))
		zr, err := zlib.NewReader(d.src)
		if err != nil {
			return encodingError("zrleDecoder.Decode", "failed to initialize zlib stream", err)
		}
		d.zr = zr
	} else {
		d.src.Write(raw)
	}

	cpSize := cPixelSize(spf)
	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}

	for tileY := 0; tileY < int(rect.Height); tileY += zrleTileSize {
		tileH := zrleTileSize
		if tileY+tileH > int(rect.Height) {
			tileH = int(rect.Height) - tileY
		}
		for tileX := 0; tileX < int(rect.Width); tileX += zrleTileSize {
			tileW := zrleTileSize
			if tileX+tileW > int(rect.Width) {
				tileW = int(rect.Width) - tileX
			}
			if err := d.decodeTile(d.zr, rect, tileX, tileY, tileW, tileH, cpSize, spf, cm, dest); err != nil {
				return err
			}
		}
	}

	return nil
}

func (d *zrleDecoder) decodeTile(zr io.Reader, rect RectangleHeader, tx, ty, tw, th, cpSize int, spf PixelFormat, cm *ColorMap, dest *PixelBuffer) error {
	subByte := make([]byte, 1)
	if _, err := io.ReadFull(zr, subByte); err != nil {
		return encodingError("zrleDecoder.decodeTile", "failed to read sub-encoding type", err)
	}
	sub := subByte[0]

	originX := int(rect.X) + tx
	originY := int(rect.Y) + ty

	readCPixel := func() (r, g, b byte, err error) {
		return readRGBPixelN(zr, spf, cm, cpSize)
	}

	switch {
	case sub == zrleSubRaw:
		rgb := make([]byte, tw*th*bytesPerRGB888)
		for i := 0; i < tw*th; i++ {
			r, g, b, err := readCPixel()
			if err != nil {
				return encodingError("zrleDecoder.decodeTile", "failed to read raw pixel", err)
			}
			rgb[i*3], rgb[i*3+1], rgb[i*3+2] = r, g, b
		}
		return dest.WriteRect(originX, originY, tw, th, rgb, tw)

	case sub == zrleSubSolid:
		r, g, b, err := readCPixel()
		if err != nil {
			return encodingError("zrleDecoder.decodeTile", "failed to read solid pixel", err)
		}
		return dest.FillRect(originX, originY, tw, th, r, g, b)

	case sub >= 2 && sub <= 16:
		return d.decodePackedPalette(zr, int(sub), tw, th, cpSize, spf, cm, originX, originY, dest)

	case sub == zrleSubRLE:
		return d.decodePlainRLE(zr, tw, th, cpSize, spf, cm, originX, originY, dest)

	case sub >= 130:
		return d.decodePaletteRLE(zr, int(sub)-128, tw, th, cpSize, spf, cm, originX, originY, dest)

	default:
		return unsupportedEncodingError("zrleDecoder.decodeTile", fmt.Sprintf("unknown ZRLE sub-encoding %d", sub), 16, nil)
	}
}

func (d *zrleDecoder) decodePackedPalette(zr io.Reader, paletteSize, tw, th, cpSize int, spf PixelFormat, cm *ColorMap, ox, oy int, dest *PixelBuffer) error {
	palette := make([][3]byte, paletteSize)
	for i := range palette {
		r, g, b, err := readRGBPixelN(zr, spf, cm, cpSize)
		if err != nil {
			return encodingError("zrleDecoder.decodePackedPalette", "failed to read palette entry", err)
		}
		palette[i] = [3]byte{r, g, b}
	}

	bitsPerIndex := 1
	switch {
	case paletteSize > 4:
		bitsPerIndex = 4
	case paletteSize > 2:
		bitsPerIndex = 2
	}
	rowBytes := (tw*bitsPerIndex + 7) / 8

	rgb := make([]byte, tw*th*bytesPerRGB888)
	rowBuf := make([]byte, rowBytes)
	for y := 0; y < th; y++ {
		if _, err := io.ReadFull(zr, rowBuf); err != nil {
			return encodingError("zrleDecoder.decodePackedPalette", "failed to read packed row", err)
		}
		var bitPos int
		for x := 0; x < tw; x++ {
			byteIdx := bitPos / 8
			shift := 8 - bitsPerIndex - (bitPos % 8)
			mask := byte((1 << uint(bitsPerIndex)) - 1)
			idx := (rowBuf[byteIdx] >> uint(shift)) & mask
			if int(idx) >= len(palette) {
				return encodingError("zrleDecoder.decodePackedPalette", "palette index out of range", nil)
			}
			px := palette[idx]
			off := (y*tw + x) * 3
			rgb[off], rgb[off+1], rgb[off+2] = px[0], px[1], px[2]
			bitPos += bitsPerIndex
		}
	}
	return dest.WriteRect(ox, oy, tw, th, rgb, tw)
}

func (d *zrleDecoder) decodePlainRLE(zr io.Reader, tw, th, cpSize int, spf PixelFormat, cm *ColorMap, ox, oy int, dest *PixelBuffer) error {
	rgb := make([]byte, tw*th*bytesPerRGB888)
	total := tw * th
	written := 0
	for written < total {
		r, g, b, err := readRGBPixelN(zr, spf, cm, cpSize)
		if err != nil {
			return encodingError("zrleDecoder.decodePlainRLE", "failed to read run pixel", err)
		}
		runLen, err := readZRLERunLength(zr)
		if err != nil {
			return encodingError("zrleDecoder.decodePlainRLE", "failed to read run length", err)
		}
		for i := 0; i < runLen && written < total; i++ {
			off := written * 3
			rgb[off], rgb[off+1], rgb[off+2] = r, g, b
			written++
		}
	}
	return dest.WriteRect(ox, oy, tw, th, rgb, tw)
}

func (d *zrleDecoder) decodePaletteRLE(zr io.Reader, paletteSize, tw, th, cpSize int, spf PixelFormat, cm *ColorMap, ox, oy int, dest *PixelBuffer) error {
	palette := make([][3]byte, paletteSize)
	for i := range palette {
		r, g, b, err := readRGBPixelN(zr, spf, cm, cpSize)
		if err != nil {
			return encodingError("zrleDecoder.decodePaletteRLE", "failed to read palette entry", err)
		}
		palette[i] = [3]byte{r, g, b}
	}

	rgb := make([]byte, tw*th*bytesPerRGB888)
	total := tw * th
	written := 0
	idxByte := make([]byte, 1)
	for written < total {
		if _, err := io.ReadFull(zr, idxByte); err != nil {
			return encodingError("zrleDecoder.decodePaletteRLE", "failed to read palette index", err)
		}
		idx := idxByte[0]
		runLen := 1
		if idx >= 128 {
			idx -= 128
			var err error
			runLen, err = readZRLERunLength(zr)
			if err != nil {
				return encodingError("zrleDecoder.decodePaletteRLE", "failed to read run length", err)
			}
		}
		if int(idx) >= len(palette) {
			return encodingError("zrleDecoder.decodePaletteRLE", "palette index out of range", nil)
		}
		px := palette[idx]
		for i := 0; i < runLen && written < total; i++ {
			off := written * 3
			rgb[off], rgb[off+1], rgb[off+2] = px[0], px[1], px[2]
			written++
		}
	}
	return dest.WriteRect(ox, oy, tw, th, rgb, tw)
}

// readZRLERunLength decodes a ZRLE run length: a sequence of 255-valued
// bytes followed by a terminating byte < 255, length = sum + 1.
func readZRLERunLength(zr io.Reader) (int, error) {
	length := 1
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(zr, b); err != nil {
			return 0, err
		}
		length += int(b[0])
		if b[0] != 255 {
			return length, nil
		}
	}
}
