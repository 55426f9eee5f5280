// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"bufio"
	"encoding/binary"
	"io"
)

// InputStream wraps an io.Reader in a bufio.Reader-backed pull buffer. All
// multi-byte values are big-endian, per RFB wire format. InputStream never
// special-cases how many bytes arrive per underlying Read: bufio.Reader and
// io.ReadFull already tolerate arbitrary fragmentation, so a server that
// drips one byte at a time behaves identically to one that delivers whole
// messages.
type InputStream struct {
	r *bufio.Reader
}

// NewInputStream wraps r, reusing it directly if it is already a
// *bufio.Reader with adequate buffering.
func NewInputStream(r io.Reader) *InputStream {
	if br, ok := r.(*bufio.Reader); ok {
		return &InputStream{r: br}
	}
	return &InputStream{r: bufio.NewReaderSize(r, 32*1024)}
}

// ReadU8 reads a single byte.
func (in *InputStream) ReadU8() (uint8, error) {
	return in.r.ReadByte()
}

// ReadU16 reads a big-endian uint16.
func (in *InputStream) ReadU16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(in.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadU32 reads a big-endian uint32.
func (in *InputStream) ReadU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(in.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadI32 reads a big-endian int32.
func (in *InputStream) ReadI32() (int32, error) {
	u, err := in.ReadU32()
	return int32(u), err // #nosec G115 - reinterpreting bit pattern, not truncating
}

// ReadBytes fills buf entirely from the stream.
func (in *InputStream) ReadBytes(buf []byte) error {
	_, err := io.ReadFull(in.r, buf)
	return err
}

// ReadN allocates and fills a new n-byte buffer from the stream. Decoders
// that need a freshly-owned slice (e.g. to hand to zlib or image/jpeg) use
// this instead of ReadBytes, which fills a caller-supplied buffer.
func (in *InputStream) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := in.ReadBytes(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Skip discards n bytes.
func (in *InputStream) Skip(n int) error {
	_, err := io.CopyN(io.Discard, in.r, int64(n))
	return err
}

// Available returns the number of bytes currently buffered without a
// further underlying read.
func (in *InputStream) Available() int {
	return in.r.Buffered()
}

// Reader exposes the underlying buffered reader for decoders that need to
// hand it to a library (e.g. compress/zlib, image/jpeg) directly.
func (in *InputStream) Reader() io.Reader {
	return in.r
}

// OutputStream wraps an io.Writer in a bufio.Writer-backed push buffer.
// Writers never flush implicitly; callers flush once per logical message.
type OutputStream struct {
	w *bufio.Writer
}

// NewOutputStream wraps w.
func NewOutputStream(w io.Writer) *OutputStream {
	return &OutputStream{w: bufio.NewWriterSize(w, 4*1024)}
}

// WriteU8 writes a single byte.
func (out *OutputStream) WriteU8(v uint8) error {
	return out.w.WriteByte(v)
}

// WriteU16 writes a big-endian uint16.
func (out *OutputStream) WriteU16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := out.w.Write(buf[:])
	return err
}

// WriteU32 writes a big-endian uint32.
func (out *OutputStream) WriteU32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := out.w.Write(buf[:])
	return err
}

// WriteI32 writes a big-endian int32.
func (out *OutputStream) WriteI32(v int32) error {
	return out.WriteU32(uint32(v)) // #nosec G115 - reinterpreting bit pattern, not truncating
}

// WriteBytes writes buf verbatim.
func (out *OutputStream) WriteBytes(buf []byte) error {
	_, err := out.w.Write(buf)
	return err
}

// Flush pushes any buffered bytes to the underlying writer. The Write
// methods never flush on their own; the client message senders in client.go
// write to the connection directly and do not use OutputStream.
func (out *OutputStream) Flush() error {
	return out.w.Flush()
}
