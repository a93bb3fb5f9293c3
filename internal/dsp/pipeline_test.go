package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMagnitudeLUTMatchesDirectComputation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		i := rapid.Uint8().Draw(rt, "i")
		q := rapid.Uint8().Draw(rt, "q")
		want := Magnitude(ConvertUint8(i), ConvertUint8(q))
		assert.InDelta(t, want, MagnitudeUint8(i, q), 1e-5)
	})
}

func TestConvertUint8Range(t *testing.T) {
	assert.InDelta(t, -1.0, ConvertUint8(0), 1e-6)
	assert.InDelta(t, 1.0, ConvertUint8(255), 1e-6)
	assert.InDelta(t, 0.0, ConvertUint8(127)+ConvertUint8(128), 1e-6)
}

func TestConvertUint16Range(t *testing.T) {
	assert.InDelta(t, -1.0, ConvertUint16(0), 1e-6)
	assert.InDelta(t, 1.0, ConvertUint16(4095), 1e-6)
}

func TestDCRemovalConvergesOnOffset(t *testing.T) {
	dc := NewDCRemoval(DefaultDCAlpha)

	var i, q float32
	for n := 0; n < 20000; n++ {
		i, q = dc.Apply(0.25, -0.5)
	}
	assert.InDelta(t, 0.0, i, 1e-3, "constant offset must be removed")
	assert.InDelta(t, 0.0, q, 1e-3)
}

func TestDCRemovalStatePersists(t *testing.T) {
	dc := NewDCRemoval(0.5)
	dc.Apply(1.0, 1.0)
	i2, _ := dc.Apply(1.0, 1.0)
	// the second sample sees the average seeded by the first
	assert.InDelta(t, 0.5, i2, 1e-6)
}

func TestFlipSignsAlternates(t *testing.T) {
	f := NewFlipSigns()

	i0, q0 := f.Apply(1, 2)
	i1, q1 := f.Apply(1, 2)
	i2, _ := f.Apply(1, 2)

	assert.Equal(t, float32(1), i0)
	assert.Equal(t, float32(2), q0)
	assert.Equal(t, float32(-1), i1)
	assert.Equal(t, float32(-2), q1)
	assert.Equal(t, float32(1), i2)
}

// firDirect is the textbook convolution the folded implementation must
// match.
func firDirect(taps, history []float32) float32 {
	var acc float32
	for i, tap := range taps {
		acc += tap * history[len(history)-1-i]
	}
	return acc
}

func TestFIRSymmetricFoldMatchesDirectConvolution(t *testing.T) {
	taps, err := BuiltinTaps(6000000)
	require.NoError(t, err)
	ch := newFIRChannel(taps)
	require.True(t, ch.symmetric)

	rapid.Check(t, func(rt *rapid.T) {
		ch := newFIRChannel(taps)
		n := rapid.IntRange(len(taps), 128).Draw(rt, "n")

		history := make([]float32, 0, n)
		var got float32
		for k := 0; k < n; k++ {
			x := float32(rapid.Float64Range(-1, 1).Draw(rt, "x"))
			history = append(history, x)
			got = ch.filter(x)
		}
		assert.InDelta(t, firDirect(taps, history), got, 1e-4)
	})
}

func TestFIRAsymmetricTaps(t *testing.T) {
	taps := []float32{0.5, 0.25, 0.125}
	ch := newFIRChannel(taps)
	require.False(t, ch.symmetric)

	ch.filter(1)
	ch.filter(0)
	got := ch.filter(0)
	assert.InDelta(t, 0.125, got, 1e-6)
}

func TestPipelineEmpty(t *testing.T) {
	p := NewPipeline(nil, nil, nil)
	assert.True(t, p.Empty())
	assert.InDelta(t, math.Sqrt(2), float64(p.Process(1, 1)), 1e-6)

	full := NewPipeline(NewDCRemoval(DefaultDCAlpha), NewFlipSigns(), nil)
	assert.False(t, full.Empty())
}

func TestPipelineStageOrder(t *testing.T) {
	// with alpha 1 the DC stage subtracts the previous sample, so a repeated
	// sample is swallowed entirely and the flip stage must see zeros
	// regardless of its own state
	p := NewPipeline(NewDCRemoval(1.0), NewFlipSigns(), nil)
	p.Process(0.5, 0.5)
	assert.InDelta(t, 0.0, p.Process(0.5, 0.5), 1e-6)
}

func TestProcessRealAppliesFlip(t *testing.T) {
	p := NewPipeline(nil, NewFlipSigns(), nil)
	assert.Equal(t, float32(1), p.ProcessReal(1))
	assert.Equal(t, float32(-1), p.ProcessReal(1))
	assert.Equal(t, float32(1), p.ProcessReal(1))
}
