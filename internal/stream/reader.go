package stream

import (
	"context"
	"io"

	"github.com/mgrone/stream1090/internal/dsp"
)

// Source produces one chunk of working magnitudes per call. EOF is checked
// before every chunk; both methods run on the demod thread.
type Source interface {
	// ReadMagnitude fills out with len(out) fresh magnitude samples.
	ReadMagnitude(out []float32)
	// EOF reports that no further chunk will arrive.
	EOF() bool
}

// StdinSource reads raw samples synchronously from a byte stream, typically
// stdin. A short read at the end of the stream zero-fills the remainder of
// the block so stale register content cannot re-emit, then flags EOF.
type StdinSource struct {
	ctx context.Context
	r   io.Reader
	fe  *dsp.Frontend
	buf []byte
	eof bool
}

// NewStdinSource creates a synchronous source producing chunkSamples
// magnitudes per read.
func NewStdinSource(ctx context.Context, r io.Reader, fe *dsp.Frontend, chunkSamples, bytesPerMagnitude int) *StdinSource {
	return &StdinSource{
		ctx: ctx,
		r:   r,
		fe:  fe,
		buf: make([]byte, chunkSamples*bytesPerMagnitude),
	}
}

// ReadMagnitude reads one raw chunk and converts it.
func (s *StdinSource) ReadMagnitude(out []float32) {
	n, err := io.ReadFull(s.r, s.buf)
	if err != nil {
		for i := n; i < len(s.buf); i++ {
			s.buf[i] = 0
		}
		s.eof = true
	}
	s.fe.ProcessBlock(s.buf, out)
}

// EOF reports end of input or a requested shutdown.
func (s *StdinSource) EOF() bool {
	return s.eof || s.ctx.Err() != nil
}

// RingSource drains a ring buffer fed by a device callback thread. One ring
// block is exactly one chunk of raw bytes.
type RingSource struct {
	reader *Reader
	fe     *dsp.Frontend
}

// NewRingSource creates the consuming side of the device pipeline.
func NewRingSource(ring *RingBuffer, fe *dsp.Frontend) *RingSource {
	return &RingSource{
		reader: NewReader(ring),
		fe:     fe,
	}
}

// ReadMagnitude converts the next committed block.
func (s *RingSource) ReadMagnitude(out []float32) {
	s.reader.Process(func(block []byte) {
		s.fe.ProcessBlock(block, out)
	})
}

// EOF blocks for the next block; true once the ring shut down and drained.
func (s *RingSource) EOF() bool {
	return s.reader.EOF()
}
