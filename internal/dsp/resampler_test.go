package dsp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mgrone/stream1090/internal/rate"
)

// resampleReference evaluates the interpolation formula the slow way.
func resampleReference(in []float32, p, q, numBlocks int) []float32 {
	out := make([]float32, numBlocks*q)
	for b := 0; b < numBlocks; b++ {
		for j := 0; j < q; j++ {
			off := j * p
			k := off / q
			c1 := float32(q - off%q)
			c2 := float32(off % q)
			out[b*q+j] = (c1*in[b*p+k] + c2*in[b*p+k+1]) / float32(q)
		}
	}
	return out
}

func TestResamplerMatchesReference(t *testing.T) {
	for _, cfg := range rate.Supported() {
		if cfg.Passthrough() {
			continue
		}
		cfg := cfg
		name := fmt.Sprintf("%d_to_%d", cfg.InputRate/1000000, cfg.OutputRate/1000000)
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				numBlocks := rapid.IntRange(1, 16).Draw(rt, "blocks")
				in := make([]float32, numBlocks*cfg.P+1)
				for i := range in {
					in[i] = float32(rapid.Float64Range(0, 2).Draw(rt, "sample"))
				}

				out := make([]float32, numBlocks*cfg.Q)
				NewResampler(cfg).Resample(in, out, numBlocks)

				want := resampleReference(in, cfg.P, cfg.Q, numBlocks)
				for i := range want {
					assert.InDelta(t, want[i], out[i], 1e-5)
				}
			})
		})
	}
}

func TestResamplerPassthrough(t *testing.T) {
	cfg, err := rate.Lookup(rate.Rate6_0MHz, rate.Rate6_0MHz)
	require.NoError(t, err)

	in := []float32{1, 2, 3, 4, 5}
	out := make([]float32, 4)
	NewResampler(cfg).Resample(in, out, 4)
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestResamplerHalfRateKernel(t *testing.T) {
	cfg, err := rate.Lookup(rate.Rate6_0MHz, rate.Rate12_0MHz)
	require.NoError(t, err)

	in := []float32{0, 2, 4, 8}
	out := make([]float32, 6)
	NewResampler(cfg).Resample(in, out, 3)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 6}, out)
}

func TestResamplerPreservesConstantSignal(t *testing.T) {
	// linear interpolation of a constant is the constant
	for _, cfg := range rate.Supported() {
		in := make([]float32, 4*cfg.P+1)
		for i := range in {
			in[i] = 0.5
		}
		out := make([]float32, 4*cfg.Q)
		NewResampler(cfg).Resample(in, out, 4)
		for i, v := range out {
			assert.InDelta(t, 0.5, v, 1e-6, "cfg %d->%d idx %d", cfg.InputRate, cfg.OutputRate, i)
		}
	}
}
