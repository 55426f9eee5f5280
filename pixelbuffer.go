// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import "sync"

// PixelBuffer is the single owned destination for every decoder in the
// registry. Pixels are stored as packed RGB888 triples; every exported
// signature expresses stride as a pixel count, never a byte count — mixing
// the two is the classic framebuffer bug this type exists to make
// impossible. A sync.RWMutex guards the buffer so a GUI peer can read it
// concurrently with the read loop's decode-and-blit path, mirroring the
// way ClientConn already protects its own state.
type PixelBuffer struct {
	mu sync.RWMutex

	width, height int
	stride        int // in pixels, always >= width
	pixels        []byte
}

const bytesPerRGB888 = 3

// NewPixelBuffer allocates a buffer of the given dimensions with stride
// equal to width.
func NewPixelBuffer(width, height int) *PixelBuffer {
	pb := &PixelBuffer{}
	pb.resizeLocked(width, height)
	return pb
}

// Resize reallocates the buffer for new dimensions, discarding prior pixel
// content. Used when the server sends a DesktopSize pseudo-rectangle.
func (pb *PixelBuffer) Resize(width, height int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.resizeLocked(width, height)
}

func (pb *PixelBuffer) resizeLocked(width, height int) {
	pb.width = width
	pb.height = height
	pb.stride = width
	pb.pixels = make([]byte, width*height*bytesPerRGB888)
}

// Dimensions returns the current width and height.
func (pb *PixelBuffer) Dimensions() (width, height int) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.width, pb.height
}

// Stride returns the row stride in pixels (never bytes).
func (pb *PixelBuffer) Stride() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.stride
}

func (pb *PixelBuffer) offsetLocked(x, y int) int {
	return (y*pb.stride + x) * bytesPerRGB888
}

// WriteRect copies an RGB888-packed rectangle (rowStridePixels is the
// stride, in pixels, of src) into the buffer at (x, y). Used by decoders
// that have already assembled a contiguous rectangle of pixels, e.g. Raw
// and the cache-reference decoders.
func (pb *PixelBuffer) WriteRect(x, y, width, height int, src []byte, rowStridePixels int) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if x < 0 || y < 0 || x+width > pb.width || y+height > pb.height {
		return protocolError("PixelBuffer.WriteRect", "rectangle exceeds framebuffer bounds", nil)
	}
	rowBytes := width * bytesPerRGB888
	srcRowBytes := rowStridePixels * bytesPerRGB888
	if len(src) < (height-1)*srcRowBytes+rowBytes {
		return protocolError("PixelBuffer.WriteRect", "source buffer shorter than rectangle requires", nil)
	}

	for row := 0; row < height; row++ {
		dstOff := pb.offsetLocked(x, y+row)
		srcOff := row * srcRowBytes
		copy(pb.pixels[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
	return nil
}

// FillRect fills a rectangle with a single RGB888 color, used by the
// Hextile/RRE background fills and the ZRLE Solid sub-encoding.
func (pb *PixelBuffer) FillRect(x, y, width, height int, r, g, b byte) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if x < 0 || y < 0 || x+width > pb.width || y+height > pb.height {
		return protocolError("PixelBuffer.FillRect", "rectangle exceeds framebuffer bounds", nil)
	}
	for row := 0; row < height; row++ {
		off := pb.offsetLocked(x, y+row)
		for col := 0; col < width; col++ {
			pb.pixels[off] = r
			pb.pixels[off+1] = g
			pb.pixels[off+2] = b
			off += bytesPerRGB888
		}
	}
	return nil
}

// CopyRect copies a rectangle already present in the buffer from (srcX,
// srcY) to (x, y), handling overlapping source/destination regions
// correctly (the CopyRect encoding permits the source and destination
// rectangles to overlap).
func (pb *PixelBuffer) CopyRect(x, y, width, height, srcX, srcY int) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if x < 0 || y < 0 || x+width > pb.width || y+height > pb.height {
		return protocolError("PixelBuffer.CopyRect", "destination rectangle exceeds framebuffer bounds", nil)
	}
	if srcX < 0 || srcY < 0 || srcX+width > pb.width || srcY+height > pb.height {
		return protocolError("PixelBuffer.CopyRect", "source rectangle exceeds framebuffer bounds", nil)
	}

	rowBytes := width * bytesPerRGB888
	// When the destination is below the source, copy bottom-to-top so an
	// overlapping shift downward does not clobber rows it still needs to read.
	if y > srcY {
		for row := height - 1; row >= 0; row-- {
			dstOff := pb.offsetLocked(x, y+row)
			srcOff := pb.offsetLocked(srcX, srcY+row)
			copy(pb.pixels[dstOff:dstOff+rowBytes], pb.pixels[srcOff:srcOff+rowBytes])
		}
		return nil
	}
	for row := 0; row < height; row++ {
		dstOff := pb.offsetLocked(x, y+row)
		srcOff := pb.offsetLocked(srcX, srcY+row)
		copy(pb.pixels[dstOff:dstOff+rowBytes], pb.pixels[srcOff:srcOff+rowBytes])
	}
	return nil
}

// Snapshot copies out an RGB888 rectangle for content-addressed caching
// (session or persistent). The returned slice is tightly packed with
// stride == width, independent of the buffer's own stride.
func (pb *PixelBuffer) Snapshot(x, y, width, height int) ([]byte, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	if x < 0 || y < 0 || x+width > pb.width || y+height > pb.height {
		return nil, protocolError("PixelBuffer.Snapshot", "rectangle exceeds framebuffer bounds", nil)
	}
	out := make([]byte, width*height*bytesPerRGB888)
	rowBytes := width * bytesPerRGB888
	for row := 0; row < height; row++ {
		srcOff := pb.offsetLocked(x, y+row)
		copy(out[row*rowBytes:(row+1)*rowBytes], pb.pixels[srcOff:srcOff+rowBytes])
	}
	return out, nil
}

// Pixel reads a single RGB888 pixel.
func (pb *PixelBuffer) Pixel(x, y int) (r, g, b byte, err error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	if x < 0 || y < 0 || x >= pb.width || y >= pb.height {
		return 0, 0, 0, protocolError("PixelBuffer.Pixel", "coordinate out of bounds", nil)
	}
	off := pb.offsetLocked(x, y)
	return pb.pixels[off], pb.pixels[off+1], pb.pixels[off+2], nil
}

// Bytes returns a copy of the whole RGB888 buffer, tightly packed with a
// stride of width*3 bytes, for read-only GUI consumption (e.g. to feed
// image/draw). The copy is taken under the read lock and does not alias
// internal storage, so later writes to the buffer do not change it.
func (pb *PixelBuffer) Bytes() []byte {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	out := make([]byte, len(pb.pixels))
	copy(out, pb.pixels)
	return out
}
