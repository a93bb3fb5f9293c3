package dsp

import "github.com/mgrone/stream1090/internal/rate"

// Resampler is the linear-interpolation upsampler between the input rate and
// the working rate. Each block consumes P input samples and produces Q
// output samples; the coefficients are fixed per output position, so
// everything is precomputed at construction.
//
// The caller keeps one input sample of overlap between chunks so the
// in[k+1] read of the last block stays in bounds.
type Resampler struct {
	p int
	q int

	offset []int
	first  []float32
	second []float32
	scale  float32

	passthrough bool
	halfRate    bool
}

// NewResampler builds the kernel for a rate configuration.
func NewResampler(cfg rate.Config) *Resampler {
	r := &Resampler{
		p:           cfg.P,
		q:           cfg.Q,
		passthrough: cfg.Passthrough(),
		halfRate:    cfg.P == 1 && cfg.Q == 2,
		scale:       1.0 / float32(cfg.Q),
	}
	r.offset = make([]int, cfg.Q)
	r.first = make([]float32, cfg.Q)
	r.second = make([]float32, cfg.Q)
	for j := 0; j < cfg.Q; j++ {
		off := j * cfg.P
		r.offset[j] = off / cfg.Q
		r.first[j] = float32(cfg.Q - off%cfg.Q)
		r.second[j] = float32(off % cfg.Q)
	}
	return r
}

// Resample converts numBlocks blocks of P input samples into numBlocks
// blocks of Q output samples. in must hold numBlocks*P+1 samples (one sample
// of lookahead), out numBlocks*Q.
func (r *Resampler) Resample(in, out []float32, numBlocks int) {
	if r.passthrough {
		copy(out[:numBlocks*r.q], in[:numBlocks*r.p])
		return
	}
	if r.halfRate {
		resampleHalfRate(in, out, numBlocks)
		return
	}
	for b := 0; b < numBlocks; b++ {
		for j := 0; j < r.q; j++ {
			k := r.offset[j]
			out[j] = (r.first[j]*in[k] + r.second[j]*in[k+1]) * r.scale
		}
		in = in[r.p:]
		out = out[r.q:]
	}
}

// resampleHalfRate is the hand-specialized 1:2 kernel (6->12, 10->20 style
// doublings). Numerically identical to the generic formula.
func resampleHalfRate(in, out []float32, numBlocks int) {
	for b := 0; b < numBlocks; b++ {
		out[0] = in[0]
		out[1] = (in[0] + in[1]) * 0.5
		in = in[1:]
		out = out[2:]
	}
}
