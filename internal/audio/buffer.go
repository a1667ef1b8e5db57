package audio

// Accumulator collects the raw PCM bytes of one session. It enforces no size
// limit; callers decide how much audio a session may hold.
type Accumulator struct {
	buf []byte
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append copies p onto the end of the session buffer.
func (a *Accumulator) Append(p []byte) {
	a.buf = append(a.buf, p...)
}

func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Finalize hands the accumulated bytes to the caller and leaves the
// accumulator empty. The returned slice is not referenced again.
func (a *Accumulator) Finalize() []byte {
	out := a.buf
	a.buf = nil
	return out
}
