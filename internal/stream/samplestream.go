package stream

import (
	"github.com/mgrone/stream1090/internal/demod"
	"github.com/mgrone/stream1090/internal/dsp"
	"github.com/mgrone/stream1090/internal/output"
	"github.com/mgrone/stream1090/internal/rate"
)

// SampleStream is the demod thread's main loop: it pulls magnitude chunks
// from a Source, resamples them to the working rate, slices them into N
// phase-shifted Manchester bit streams and feeds the demod core one slot at
// a time.
//
// Both buffers keep a small overlap at the front between chunks: one sample
// of magnitudes for the resampler lookahead, and half a symbol of working
// samples so the slicer's second half-symbol read never runs off the end.
type SampleStream struct {
	cfg  rate.Config
	res  *dsp.Resampler
	core *demod.Core
	out  *output.Writer

	magBuf    []float32
	sampleBuf []float32
	bits      []uint32
}

// NewSampleStream allocates the buffers for one run.
func NewSampleStream(cfg rate.Config, res *dsp.Resampler, core *demod.Core, out *output.Writer) *SampleStream {
	return &SampleStream{
		cfg:       cfg,
		res:       res,
		core:      core,
		out:       out,
		magBuf:    make([]float32, cfg.InputBufferSize+1),
		sampleBuf: make([]float32, cfg.SampleBufferSize+cfg.SampleBlockSize),
		bits:      make([]uint32, cfg.NumStreams),
	}
}

// Run consumes the source until EOF or shutdown. The output writer is
// flushed at every chunk boundary.
func (s *SampleStream) Run(src Source) {
	n := s.cfg.NumStreams
	half := s.cfg.SampleBlockSize

	for !src.EOF() {
		// fresh magnitudes land after the one-sample overlap
		src.ReadMagnitude(s.magBuf[1:])

		// fresh working samples land after the half-symbol overlap
		s.res.Resample(s.magBuf, s.sampleBuf[half:], s.cfg.ChunkSize)

		// slice N phase streams: stream j compares half-symbol chips one
		// half-symbol apart, offset by j samples
		for i := 0; i < s.cfg.SampleBufferSize; i += n {
			for j := 0; j < n; j++ {
				if s.sampleBuf[i+j] > s.sampleBuf[i+j+half] {
					s.bits[j] = 1
				} else {
					s.bits[j] = 0
				}
			}
			s.core.ShiftIn(s.bits)
		}

		// carry the overlaps into the next chunk
		s.magBuf[0] = s.magBuf[s.cfg.InputBufferSize]
		copy(s.sampleBuf[:half], s.sampleBuf[s.cfg.SampleBufferSize:])

		s.out.Flush()
	}
	s.out.Flush()
}
