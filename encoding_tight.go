// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

// Tight compression-control filter identifiers, RFC 6143 Section 7.7.6 /
// the TightVNC protocol extension.
const (
	tightFilterCopy     = 0
	tightFilterPalette  = 1
	tightFilterGradient = 2
	tightFilterJPEG     = 8

	tightFillByte = 0x80
)

// tightDecoder implements the Tight encoding: a compression-control byte
// selects stream resets and one of copy/palette/gradient/JPEG filters, with
// up to four independent persistent zlib streams (one per basic-compression
// filter) that are only torn down when the server explicitly signals a
// stream reset. JPEG payloads are decoded via image/jpeg rather than
// rejected outright, since a modern client has no reason to refuse them.
type tightDecoder struct {
	zlibs [4]io.ReadCloser
}

func newTightDecoder() *tightDecoder {
	return &tightDecoder{}
}

func (*tightDecoder) EncodingID() int32 { return 7 }

func (d *tightDecoder) Decode(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	subencoding, err := in.ReadU8()
	if err != nil {
		return encodingError("tightDecoder.Decode", "failed to read compression-control byte", err)
	}

	for i := 0; i < 4; i++ {
		if (subencoding>>uint(i))&1 != 0 && d.zlibs[i] != nil {
			_ = d.zlibs[i].Close()
			d.zlibs[i] = nil
		}
	}

	if subencoding == tightFillByte {
		return d.decodeFill(in, rect, spf, dest)
	}

	filterID := (subencoding >> 4) & 0x0F
	switch filterID {
	case tightFilterJPEG:
		return d.decodeJPEG(in, rect, dest)
	case tightFilterCopy:
		return d.decodeCopy(in, rect, spf, dest)
	case tightFilterPalette:
		return d.decodePalette(in, rect, spf, dest)
	case tightFilterGradient:
		return d.decodeGradient(in, rect, spf, dest)
	default:
		return unsupportedEncodingError("tightDecoder.Decode", fmt.Sprintf("unsupported tight filter id %d", filterID), 7, nil)
	}
}

func (d *tightDecoder) decodeFill(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}
	r, g, b, err := readRGBPixel(in, spf, cm)
	if err != nil {
		return encodingError("tightDecoder.decodeFill", "failed to read fill pixel", err)
	}
	return dest.FillRect(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), r, g, b)
}

func (d *tightDecoder) readCompactLength(in *InputStream) (int, error) {
	length := 0
	for i := 0; i < 3; i++ {
		part, err := in.ReadU8()
		if err != nil {
			return 0, err
		}
		length |= int(part&0x7F) << (uint(i) * 7)
		if part&0x80 == 0 {
			break
		}
	}
	return length, nil
}

func (d *tightDecoder) readCompressedData(in *InputStream, stream int) ([]byte, error) {
	length, err := d.readCompactLength(in)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	compressed, err := in.ReadN(length)
	if err != nil {
		return nil, err
	}

	if d.zlibs[stream] == nil {
		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, err
		}
		d.zlibs[stream] = zr
	} else if resetter, ok := d.zlibs[stream].(zlib.Resetter); ok {
		if err := resetter.Reset(bytes.NewReader(compressed), nil); err != nil {
			return nil, err
		}
	}

	return io.ReadAll(d.zlibs[stream])
}

func (d *tightDecoder) decodeCopy(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	bpp := int(spf.BPP) / 8
	want := int(rect.Width) * int(rect.Height) * bpp

	var raw []byte
	if want < 12 {
		// Small rectangles are sent uncompressed.
		var err error
		raw, err = in.ReadN(want)
		if err != nil {
			return encodingError("tightDecoder.decodeCopy", "failed to read uncompressed pixel data", err)
		}
	} else {
		var err error
		raw, err = d.readCompressedData(in, 0)
		if err != nil {
			return encodingError("tightDecoder.decodeCopy", "failed to read compressed pixel data", err)
		}
	}
	if len(raw) != want {
		return encodingError("tightDecoder.decodeCopy", "decompressed data size mismatch", nil)
	}

	return writeRawPixelBytes(raw, spf, rect, dest)
}

func (d *tightDecoder) decodePalette(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	paletteSizeMinus1, err := in.ReadU8()
	if err != nil {
		return encodingError("tightDecoder.decodePalette", "failed to read palette size", err)
	}
	paletteSize := int(paletteSizeMinus1) + 1

	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}
	palette := make([][3]byte, paletteSize)
	for i := range palette {
		r, g, b, err := readRGBPixel(in, spf, cm)
		if err != nil {
			return encodingError("tightDecoder.decodePalette", "failed to read palette entry", err)
		}
		palette[i] = [3]byte{r, g, b}
	}

	totalPixels := int(rect.Width) * int(rect.Height)
	var indexBytes []byte
	if paletteSize <= 2 {
		rowBytes := (int(rect.Width) + 7) / 8
		want := rowBytes * int(rect.Height)
		if want < 12 {
			indexBytes, err = in.ReadN(want)
		} else {
			indexBytes, err = d.readCompressedData(in, 1)
		}
	} else {
		if totalPixels < 12 {
			indexBytes, err = in.ReadN(totalPixels)
		} else {
			indexBytes, err = d.readCompressedData(in, 1)
		}
	}
	if err != nil {
		return encodingError("tightDecoder.decodePalette", "failed to read palette indices", err)
	}

	rgb := make([]byte, totalPixels*bytesPerRGB888)
	if paletteSize <= 2 {
		written := 0
		for _, byteVal := range indexBytes {
			for bit := 7; bit >= 0 && written < totalPixels; bit-- {
				idx := (byteVal >> uint(bit)) & 1
				px := palette[idx]
				off := written * 3
				rgb[off], rgb[off+1], rgb[off+2] = px[0], px[1], px[2]
				written++
			}
		}
	} else {
		for i, idx := range indexBytes {
			if int(idx) >= len(palette) {
				return encodingError("tightDecoder.decodePalette", "palette index out of range", nil)
			}
			px := palette[idx]
			off := i * 3
			rgb[off], rgb[off+1], rgb[off+2] = px[0], px[1], px[2]
		}
	}

	return dest.WriteRect(int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height), rgb, int(rect.Width))
}

func (d *tightDecoder) decodeGradient(in *InputStream, rect RectangleHeader, spf PixelFormat, dest *PixelBuffer) error {
	width, height := int(rect.Width), int(rect.Height)

	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}

	correction, err := d.readCompressedData(in, 2)
	if err != nil {
		return encodingError("tightDecoder.decodeGradient", "failed to read correction data", err)
	}
	cr := bytes.NewReader(correction)

	rgb := make([]byte, width*height*bytesPerRGB888)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var p1, p2, p3 [3]byte
			if x > 0 {
				off := (y*width + (x - 1)) * 3
				copy(p1[:], rgb[off:off+3])
			}
			if y > 0 {
				off := ((y-1)*width + x) * 3
				copy(p2[:], rgb[off:off+3])
			}
			if x > 0 && y > 0 {
				off := ((y-1)*width + (x - 1)) * 3
				copy(p3[:], rgb[off:off+3])
			}
			off := (y*width + x) * 3
			for c := 0; c < 3; c++ {
				pred := int(p1[c]) + int(p2[c]) - int(p3[c])
				if pred < 0 {
					pred = 0
				} else if pred > 255 {
					pred = 255
				}
				cb, err := cr.ReadByte()
				if err != nil {
					return encodingError("tightDecoder.decodeGradient", "failed to read correction byte", err)
				}
				rgb[off+c] = byte(pred) + cb
			}
		}
	}
	_ = cm

	return dest.WriteRect(int(rect.X), int(rect.Y), width, height, rgb, width)
}

func (d *tightDecoder) decodeJPEG(in *InputStream, rect RectangleHeader, dest *PixelBuffer) error {
	length, err := d.readCompactLength(in)
	if err != nil {
		return encodingError("tightDecoder.decodeJPEG", "failed to read JPEG payload length", err)
	}
	payload, err := in.ReadN(length)
	if err != nil {
		return encodingError("tightDecoder.decodeJPEG", "failed to read JPEG payload", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		return encodingError("tightDecoder.decodeJPEG", "failed to decode JPEG payload", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rgb := make([]byte, width*height*bytesPerRGB888)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := colorAt(img, bounds.Min.X+x, bounds.Min.Y+y)
			off := (y*width + x) * 3
			rgb[off], rgb[off+1], rgb[off+2] = r, g, b
		}
	}

	return dest.WriteRect(int(rect.X), int(rect.Y), width, height, rgb, width)
}

func colorAt(img image.Image, x, y int) (r, g, b, a byte) {
	cr, cg, cb, ca := img.At(x, y).RGBA()
	return byte(cr >> 8), byte(cg >> 8), byte(cb >> 8), byte(ca >> 8)
}

// writeRawPixelBytes interprets raw as width*height pixels in spf's wire
// format and blits them into dest, used by the Tight copy filter which
// hands back a flat decompressed byte slice rather than a stream.
func writeRawPixelBytes(raw []byte, spf PixelFormat, rect RectangleHeader, dest *PixelBuffer) error {
	width, height := int(rect.Width), int(rect.Height)
	in := NewInputStream(bytes.NewReader(raw))
	var cm *ColorMap
	if !spf.TrueColor {
		cm = NewColorMap()
	}
	rgb := make([]byte, width*height*bytesPerRGB888)
	for i := 0; i < width*height; i++ {
		r, g, b, err := readRGBPixel(in, spf, cm)
		if err != nil {
			return err
		}
		rgb[i*3], rgb[i*3+1], rgb[i*3+2] = r, g, b
	}
	return dest.WriteRect(int(rect.X), int(rect.Y), width, height, rgb, width)
}
