package dsp

import (
	"fmt"
	"strings"
)

// DefaultDCAlpha is the smoothing factor of the DC removal stage. The
// airspy raw mode carries a large DC component; 0.005 settles it within a
// few thousand samples without eating the pulses.
const DefaultDCAlpha = 0.005

// DCRemoval subtracts a per-channel exponential moving average from the
// samples. State persists across blocks.
type DCRemoval struct {
	alpha float32
	avgI  float32
	avgQ  float32
}

// NewDCRemoval creates a DC removal stage with the given smoothing factor.
func NewDCRemoval(alpha float32) *DCRemoval {
	return &DCRemoval{alpha: alpha}
}

// Apply removes the running average from one I/Q pair.
func (d *DCRemoval) Apply(i, q float32) (float32, float32) {
	di := i - d.avgI
	dq := q - d.avgQ
	d.avgI += di * d.alpha
	d.avgQ += dq * d.alpha
	return di, dq
}

// ApplyReal removes the running average from a single real sample, for the
// real-valued raw input where I and Q are not yet paired.
func (d *DCRemoval) ApplyReal(v float32) float32 {
	dv := v - d.avgI
	d.avgI += dv * d.alpha
	return dv
}

func (d *DCRemoval) String() string {
	return fmt.Sprintf("[DCRemoval] alpha: %g", d.alpha)
}

// FlipSigns negates every second sample, shifting the spectrum by Fs/2.
// Used with real-valued raw input to recenter the band. The toggle persists
// across blocks.
type FlipSigns struct {
	flip bool
}

// NewFlipSigns creates a sign-flip stage.
func NewFlipSigns() *FlipSigns {
	return &FlipSigns{}
}

// Apply flips one I/Q pair on alternating calls.
func (f *FlipSigns) Apply(i, q float32) (float32, float32) {
	if f.flip {
		i, q = -i, -q
	}
	f.flip = !f.flip
	return i, q
}

// ApplyReal flips a single real sample on alternating calls.
func (f *FlipSigns) ApplyReal(v float32) float32 {
	if f.flip {
		v = -v
	}
	f.flip = !f.flip
	return v
}

func (f *FlipSigns) String() string {
	return "[FlipSigns] enabled"
}

// firChannel is one FIR delay line. The line is circular with a power-of-two
// length so the index wrap is a mask.
type firChannel struct {
	taps      []float32
	delay     []float32
	mask      int
	pos       int
	symmetric bool
}

func newFIRChannel(taps []float32) *firChannel {
	n := 1
	for n < len(taps) {
		n <<= 1
	}
	symmetric := true
	for i := 0; i < len(taps)/2; i++ {
		if taps[i] != taps[len(taps)-1-i] {
			symmetric = false
			break
		}
	}
	return &firChannel{
		taps:      taps,
		delay:     make([]float32, n),
		mask:      n - 1,
		symmetric: symmetric,
	}
}

func (f *firChannel) filter(x float32) float32 {
	f.delay[f.pos&f.mask] = x
	f.pos++

	newest := f.pos - 1
	var acc float32
	n := len(f.taps)
	if f.symmetric {
		// fold the symmetric halves; odd length adds the center tap alone
		half := n / 2
		for i := 0; i < half; i++ {
			acc += f.taps[i] * (f.delay[(newest-i)&f.mask] + f.delay[(newest-(n-1-i))&f.mask])
		}
		if n%2 == 1 {
			acc += f.taps[half] * f.delay[(newest-half)&f.mask]
		}
		return acc
	}
	for i := 0; i < n; i++ {
		acc += f.taps[i] * f.delay[(newest-i)&f.mask]
	}
	return acc
}

// IQLowPass runs the same FIR over the I and Q channels independently.
type IQLowPass struct {
	i *firChannel
	q *firChannel
}

// NewIQLowPass creates the filter pair from one tap set.
func NewIQLowPass(taps []float32) *IQLowPass {
	return &IQLowPass{
		i: newFIRChannel(taps),
		q: newFIRChannel(taps),
	}
}

// Apply filters one I/Q pair.
func (lp *IQLowPass) Apply(i, q float32) (float32, float32) {
	return lp.i.filter(i), lp.q.filter(q)
}

func (lp *IQLowPass) String() string {
	return fmt.Sprintf("[IQLowPass] taps: %d", len(lp.i.taps))
}

// Pipeline runs the configured per-sample stages in order and finishes with
// the magnitude. All stages are optional; the zero pipeline is a plain
// magnitude computation.
type Pipeline struct {
	dc   *DCRemoval
	flip *FlipSigns
	fir  *IQLowPass
}

// NewPipeline assembles a pipeline from optional stages; pass nil to skip
// a stage.
func NewPipeline(dc *DCRemoval, flip *FlipSigns, fir *IQLowPass) *Pipeline {
	return &Pipeline{dc: dc, flip: flip, fir: fir}
}

// Empty reports whether no stage is configured, enabling the fast magnitude
// paths.
func (p *Pipeline) Empty() bool {
	return p.dc == nil && p.flip == nil && p.fir == nil
}

// Process runs one I/Q pair through the stages and returns its magnitude.
func (p *Pipeline) Process(i, q float32) float32 {
	if p.dc != nil {
		i, q = p.dc.Apply(i, q)
	}
	if p.flip != nil {
		i, q = p.flip.Apply(i, q)
	}
	if p.fir != nil {
		i, q = p.fir.Apply(i, q)
	}
	return Magnitude(i, q)
}

// ProcessReal runs a single real-valued sample through the DC and flip
// stages. The caller pairs consecutive results into I/Q before the FIR and
// magnitude; see the real-raw front end.
func (p *Pipeline) ProcessReal(v float32) float32 {
	if p.dc != nil {
		v = p.dc.ApplyReal(v)
	}
	if p.flip != nil {
		v = p.flip.ApplyReal(v)
	}
	return v
}

// FilterPair applies only the FIR stage to a pair, if configured.
func (p *Pipeline) FilterPair(i, q float32) (float32, float32) {
	if p.fir != nil {
		return p.fir.Apply(i, q)
	}
	return i, q
}

func (p *Pipeline) String() string {
	var parts []string
	if p.dc != nil {
		parts = append(parts, p.dc.String())
	}
	if p.flip != nil {
		parts = append(parts, p.flip.String())
	}
	if p.fir != nil {
		parts = append(parts, p.fir.String())
	}
	if len(parts) == 0 {
		return "[Pipeline] passthrough"
	}
	return strings.Join(parts, " ")
}
