package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer encodes frames onto a byte stream.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Start() error {
	_, err := w.w.Write([]byte{TagStart})
	return err
}

func (w *Writer) End() error {
	_, err := w.w.Write([]byte{TagEnd})
	return err
}

// Audio writes one AUDIO frame carrying p.
func (w *Writer) Audio(p []byte) error {
	if uint64(len(p)) > math.MaxUint32 {
		return fmt.Errorf("protocol: audio chunk of %d bytes does not fit a u32 length", len(p))
	}
	var hdr [1 + LengthSize]byte
	hdr[0] = TagAudio
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(p)))
	if _, err := w.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.w.Write(p)
	return err
}

// Session writes a complete START, AUDIO..., END sequence, one AUDIO frame
// per chunk.
func (w *Writer) Session(chunks ...[]byte) error {
	if err := w.Start(); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := w.Audio(c); err != nil {
			return err
		}
	}
	return w.End()
}
