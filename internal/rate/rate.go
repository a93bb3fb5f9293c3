package rate

import (
	"fmt"
	"strconv"
	"strings"
)

// Common sample rates in Hz.
const (
	Rate1_0MHz  = 1000000
	Rate2_4MHz  = 2400000
	Rate6_0MHz  = 6000000
	Rate8_0MHz  = 8000000
	Rate10_0MHz = 10000000
	Rate12_0MHz = 12000000
	Rate24_0MHz = 24000000
)

// Format identifies the raw sample format delivered by the source.
type Format int

const (
	// IQUint8 is interleaved unsigned 8-bit I/Q centered at 127.5 (rtl_sdr).
	IQUint8 Format = iota
	// IQUint16 is interleaved little-endian unsigned 16-bit I/Q with 12 bits
	// used, centered at 2047.5 (airspy_rx sample format 4).
	IQUint16
	// IQFloat32 is interleaved little-endian float32 I/Q.
	IQFloat32
	// MagFloat32 is a float32 magnitude stream that bypasses the I/Q stages.
	MagFloat32
	// IQUint16RealRaw is a single real-valued uint16 stream at twice the
	// nominal rate (airspy raw mode). Needs DC removal and the Fs/2 flip.
	IQUint16RealRaw
)

// BytesPerMagnitude returns the number of raw input bytes that produce one
// magnitude sample in this format.
func (f Format) BytesPerMagnitude() int {
	switch f {
	case IQUint8:
		return 2
	case IQUint16, IQUint16RealRaw:
		return 4
	case IQFloat32:
		return 8
	case MagFloat32:
		return 4
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case IQUint8:
		return "iq-uint8"
	case IQUint16:
		return "iq-uint16"
	case IQFloat32:
		return "iq-float32"
	case MagFloat32:
		return "mag-float32"
	case IQUint16RealRaw:
		return "iq-uint16-real-raw"
	}
	return "unknown"
}

// ParseFormat maps a --format flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "iq-uint8":
		return IQUint8, nil
	case "iq-uint16":
		return IQUint16, nil
	case "iq-float32":
		return IQFloat32, nil
	case "mag-float32":
		return MagFloat32, nil
	case "iq-uint16-real-raw":
		return IQUint16RealRaw, nil
	}
	return 0, fmt.Errorf("unknown raw format %q", s)
}

// numBlocksPerChunk controls how many resampler blocks are processed per
// read. Larger values trade latency for fewer read calls.
const numBlocksPerChunk = 256

// Config describes one supported (input rate, working rate) pair together
// with all sizes derived from it. The working rate is always a whole, even
// multiple of 1 MHz, so NumStreams is even and each Manchester half-symbol
// spans NumStreams/2 samples.
type Config struct {
	InputRate  int // Hz, rate of the raw source
	OutputRate int // Hz, working rate after resampling

	// P:Q is InputRate:OutputRate in lowest terms. Each resampler block
	// consumes P input samples and produces Q output samples.
	P int
	Q int

	// NumStreams is the number of parallel half-symbol phase streams,
	// OutputRate / 1 MHz.
	NumStreams int

	// SampleBlockSize is half a symbol at the working rate (NumStreams/2).
	// It is also the overlap kept in the resampled buffer between chunks.
	SampleBlockSize int

	// ChunkSize is the number of resampler blocks per processing chunk.
	ChunkSize int

	// InputBufferSize is the number of fresh magnitude samples per chunk.
	InputBufferSize int

	// SampleBufferSize is the number of fresh working-rate samples per chunk.
	SampleBufferSize int

	// DefaultFormat is the raw format assumed for this input rate when the
	// user does not override it.
	DefaultFormat Format
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func newConfig(inputRate, outputRate int, format Format) Config {
	g := gcd(inputRate, outputRate)
	n := outputRate / Rate1_0MHz
	chunk := numBlocksPerChunk * (n / 2)
	return Config{
		InputRate:        inputRate,
		OutputRate:       outputRate,
		P:                inputRate / g,
		Q:                outputRate / g,
		NumStreams:       n,
		SampleBlockSize:  n / 2,
		ChunkSize:        chunk,
		InputBufferSize:  (inputRate / g) * chunk,
		SampleBufferSize: (outputRate / g) * chunk,
		DefaultFormat:    format,
	}
}

// Passthrough reports whether the resampler is a no-op for this pair.
func (c Config) Passthrough() bool {
	return c.InputRate == c.OutputRate
}

// To12MHz rescales a working-rate slot counter to the 12 MHz MLAT tick.
// Integer math only; t*N == slot*12 + r with 0 <= r < N.
func (c Config) To12MHz(slot uint64) uint64 {
	return slot * 12 / uint64(c.NumStreams)
}

// supported is the closed set of rate pairs the demodulator handles,
// ordered by input rate then output rate. The first entry for an input
// rate is its default pair.
var supported = []Config{
	newConfig(Rate2_4MHz, Rate8_0MHz, IQUint8),
	newConfig(Rate6_0MHz, Rate6_0MHz, IQUint16),
	newConfig(Rate6_0MHz, Rate12_0MHz, IQUint16),
	newConfig(Rate6_0MHz, Rate24_0MHz, IQUint16),
	newConfig(Rate10_0MHz, Rate10_0MHz, IQUint16),
	newConfig(Rate10_0MHz, Rate24_0MHz, IQUint16),
}

// Supported returns the closed list of valid rate pairs.
func Supported() []Config {
	out := make([]Config, len(supported))
	copy(out, supported)
	return out
}

// Lookup finds the configuration for an exact (input, output) pair.
func Lookup(inputRate, outputRate int) (Config, error) {
	for _, c := range supported {
		if c.InputRate == inputRate && c.OutputRate == outputRate {
			return c, nil
		}
	}
	return Config{}, fmt.Errorf("unsupported rate combination: %.1f MHz -> %.1f MHz",
		float64(inputRate)/1e6, float64(outputRate)/1e6)
}

// DefaultOutputRate returns the preferred working rate for an input rate.
func DefaultOutputRate(inputRate int) (int, error) {
	for _, c := range supported {
		if c.InputRate == inputRate {
			return c.OutputRate, nil
		}
	}
	return 0, fmt.Errorf("no working rate for input rate %.1f MHz", float64(inputRate)/1e6)
}

// ParseMHz parses a sample rate given in MHz, accepting forms like "2.4",
// "2.4M" or "8".
func ParseMHz(s string) (int, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(s, "M"), "m")
	mhz, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sample rate %q", s)
	}
	return int(mhz*1e6 + 0.5), nil
}
