// Package protocol implements the framed command stream spoken on the
// service's input: a one-byte tag, optionally followed by a little-endian
// u32 length and that many bytes of s16le PCM.
package protocol

import (
	"errors"
	"fmt"
)

const (
	TagStart byte = 0x01
	TagAudio byte = 0x02
	TagEnd   byte = 0x03

	// LengthSize is the size of the AUDIO payload length prefix.
	LengthSize = 4
)

var (
	// ErrChunkTooLarge is returned when an AUDIO frame declares a payload
	// above the reader's configured limit.
	ErrChunkTooLarge = errors.New("protocol: audio chunk exceeds limit")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindAudio
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindAudio:
		return "audio"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Frame is one decoded unit of the command stream. Payload is only set for
// KindAudio; Tag always carries the raw leading byte.
type Frame struct {
	Kind    Kind
	Tag     byte
	Payload []byte
}

func kindOf(tag byte) Kind {
	switch tag {
	case TagStart:
		return KindStart
	case TagAudio:
		return KindAudio
	case TagEnd:
		return KindEnd
	default:
		return KindUnknown
	}
}

func (f Frame) String() string {
	switch f.Kind {
	case KindAudio:
		return fmt.Sprintf("Frame{audio, %d bytes}", len(f.Payload))
	case KindUnknown:
		return fmt.Sprintf("Frame{unknown(0x%02x)}", f.Tag)
	default:
		return fmt.Sprintf("Frame{%s}", f.Kind)
	}
}
