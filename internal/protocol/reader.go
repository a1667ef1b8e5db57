package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader decodes frames from a byte stream. It performs one blocking read
// at a time and never reads ahead of the frame it is decoding beyond what
// the underlying bufio.Reader buffers.
type Reader struct {
	r        *bufio.Reader
	maxChunk uint32
	lenBuf   [LengthSize]byte
}

type ReaderOption func(*Reader)

// WithMaxChunkBytes rejects AUDIO frames declaring more than n payload
// bytes. Zero disables the check.
func WithMaxChunkBytes(n uint32) ReaderOption {
	return func(r *Reader) { r.maxChunk = n }
}

func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{r: bufio.NewReader(r)}
	for _, o := range opts {
		o(rd)
	}
	return rd
}

// Next returns the next frame. A stream that ends anywhere, including in the
// middle of a length prefix or payload, yields io.EOF. Unrecognized tags are
// returned as KindUnknown frames with a nil error; deciding what to do with
// them is up to the caller.
func (r *Reader) Next() (Frame, error) {
	tag, err := r.r.ReadByte()
	if err != nil {
		return Frame{}, eof(err)
	}

	f := Frame{Kind: kindOf(tag), Tag: tag}
	if f.Kind != KindAudio {
		return f, nil
	}

	if _, err := io.ReadFull(r.r, r.lenBuf[:]); err != nil {
		return Frame{}, eof(err)
	}
	n := binary.LittleEndian.Uint32(r.lenBuf[:])
	if r.maxChunk > 0 && n > r.maxChunk {
		return Frame{}, fmt.Errorf("%w: declared %d bytes, limit %d", ErrChunkTooLarge, n, r.maxChunk)
	}

	// Grow with the data actually received instead of trusting the declared
	// length for the allocation.
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.r, int64(n))
	if err != nil && !errors.Is(err, io.EOF) {
		return Frame{}, fmt.Errorf("protocol: read audio payload: %w", err)
	}
	if copied < int64(n) {
		return Frame{}, io.EOF
	}
	f.Payload = buf.Bytes()
	return f, nil
}

// eof maps short reads onto io.EOF and wraps everything else.
func eof(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return fmt.Errorf("protocol: read: %w", err)
}
