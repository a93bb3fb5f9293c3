package dsp

import (
	"encoding/binary"
	"math"

	"github.com/mgrone/stream1090/internal/rate"
)

// Frontend converts a block of raw source bytes into float32 magnitudes,
// running the configured pipeline stages per sample. One magnitude per I/Q
// pair (or per raw float for the magnitude format).
type Frontend struct {
	format rate.Format
	pipe   *Pipeline
}

// NewFrontend builds a front end for a raw format. pipe may be the empty
// pipeline; the uint8 path then uses the magnitude LUT directly.
func NewFrontend(format rate.Format, pipe *Pipeline) *Frontend {
	return &Frontend{format: format, pipe: pipe}
}

// Pipeline exposes the stage chain, mainly for the startup log.
func (f *Frontend) Pipeline() *Pipeline {
	return f.pipe
}

// ProcessBlock fills out with one magnitude per format-sized raw unit.
// len(raw) must be len(out) * format.BytesPerMagnitude().
func (f *Frontend) ProcessBlock(raw []byte, out []float32) {
	switch f.format {
	case rate.IQUint8:
		f.processUint8(raw, out)
	case rate.IQUint16:
		f.processUint16(raw, out)
	case rate.IQFloat32:
		f.processFloat32(raw, out)
	case rate.MagFloat32:
		f.processMagFloat32(raw, out)
	case rate.IQUint16RealRaw:
		f.processRealRaw(raw, out)
	}
}

func (f *Frontend) processUint8(raw []byte, out []float32) {
	if f.pipe.Empty() {
		for n := range out {
			out[n] = MagnitudeUint8(raw[2*n], raw[2*n+1])
		}
		return
	}
	for n := range out {
		i := ConvertUint8(raw[2*n])
		q := ConvertUint8(raw[2*n+1])
		out[n] = f.pipe.Process(i, q)
	}
}

func (f *Frontend) processUint16(raw []byte, out []float32) {
	for n := range out {
		i := ConvertUint16(binary.LittleEndian.Uint16(raw[4*n:]))
		q := ConvertUint16(binary.LittleEndian.Uint16(raw[4*n+2:]))
		if f.pipe.Empty() {
			out[n] = Magnitude(i, q)
			continue
		}
		out[n] = f.pipe.Process(i, q)
	}
}

func (f *Frontend) processFloat32(raw []byte, out []float32) {
	for n := range out {
		i := math.Float32frombits(binary.LittleEndian.Uint32(raw[8*n:]))
		q := math.Float32frombits(binary.LittleEndian.Uint32(raw[8*n+4:]))
		if f.pipe.Empty() {
			out[n] = Magnitude(i, q)
			continue
		}
		out[n] = f.pipe.Process(i, q)
	}
}

func (f *Frontend) processMagFloat32(raw []byte, out []float32) {
	for n := range out {
		out[n] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*n:]))
	}
}

// processRealRaw handles the real-valued raw stream at twice the nominal
// rate. Each real sample runs through DC removal and the Fs/2 sign flip,
// then consecutive samples pair up as I/Q for the optional FIR and the
// magnitude.
func (f *Frontend) processRealRaw(raw []byte, out []float32) {
	for n := range out {
		v0 := ConvertUint16(binary.LittleEndian.Uint16(raw[4*n:]))
		v1 := ConvertUint16(binary.LittleEndian.Uint16(raw[4*n+2:]))
		i := f.pipe.ProcessReal(v0)
		q := f.pipe.ProcessReal(v1)
		i, q = f.pipe.FilterPair(i, q)
		out[n] = Magnitude(i, q)
	}
}
