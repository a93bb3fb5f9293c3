package demod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// shiftFrame feeds the low numBits bits of frame into every stream of regs,
// oldest bit first, followed by extra zero slots.
func shiftFrame(regs Registers, numStreams int, frame Bits128, numBits, extraZeros int) {
	bits := make([]uint32, numStreams)
	push := func(b uint32) {
		for j := range bits {
			bits[j] = b
		}
		regs.ShiftIn(bits)
	}
	for i := numBits - 1; i >= 0; i-- {
		var b uint32
		if frame.Get(i) {
			b = 1
		}
		push(b)
	}
	for i := 0; i < extraZeros; i++ {
		push(0)
	}
}

func TestRightAlignedRecoversLongFrame(t *testing.T) {
	frame := parseFrame(t, "8D4840D6202CC371C32CE0576098")
	regs := NewRightAligned(8)
	shiftFrame(regs, 8, frame, 112, 0)

	assert.Equal(t, frame, regs.FrameLong(0))
	assert.Equal(t, uint32(0), regs.CRC112(0))
	assert.Equal(t, uint8(17), regs.DF112(0))
}

func TestRightAlignedRecoversShortFrame(t *testing.T) {
	frame := Bits128{Lo: 0x5D4840D6000000}
	frame.XorLo(uint64(Checksum(frame, 56)))

	regs := NewRightAligned(4)
	shiftFrame(regs, 4, frame, 56, 0)

	assert.Equal(t, frame.Lo, regs.FrameShort(0))
	assert.Equal(t, uint32(0), regs.CRC56(0))
	assert.Equal(t, uint8(11), regs.DF56(0))
}

// The running residues must track the sliding window exactly: at any slot,
// CRC56/CRC112 equal the one-shot checksum of the current window.
func TestRunningCRCTracksWindow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		regs := NewRightAligned(1)
		n := rapid.IntRange(112, 400).Draw(rt, "n")
		bits := rapid.SliceOfN(rapid.Uint32Range(0, 1), n, n).Draw(rt, "bits")

		for _, b := range bits {
			regs.ShiftIn([]uint32{b})
		}

		long := regs.FrameLong(0)
		short := Bits128{Lo: regs.FrameShort(0)}
		assert.Equal(t, Checksum(long, 112), regs.CRC112(0))
		assert.Equal(t, Checksum(short, 56), regs.CRC56(0))
		assert.Equal(t, LongDF(long), regs.DF112(0))
		assert.Equal(t, ShortDF(short.Lo), regs.DF56(0))
	})
}

// The left-aligned layout sees the same message once it has marched up to
// the top of the register: 16 extra slots for the long window, 72 for the
// short one. The recovered frames and residues must agree with the
// right-aligned layout.
func TestLeftAlignedAgreesWithRightAligned(t *testing.T) {
	frame := parseFrame(t, "8D4840D6202CC371C32CE0576098")

	left := NewLeftAligned(2)
	shiftFrame(left, 2, frame, 112, 16)

	assert.Equal(t, frame, left.FrameLong(0))
	assert.Equal(t, uint32(0), left.CRC112(0))
	assert.Equal(t, uint8(17), left.DF112(0))
}

func TestLeftAlignedShortWindow(t *testing.T) {
	frame := Bits128{Lo: 0x5D4840D6000000}
	frame.XorLo(uint64(Checksum(frame, 56)))

	left := NewLeftAligned(2)
	shiftFrame(left, 2, frame, 56, 72)

	assert.Equal(t, frame.Lo, left.FrameShort(0))
	assert.Equal(t, uint32(0), left.CRC56(0))
	assert.Equal(t, uint8(11), left.DF56(0))
}

func TestLeftAlignedRunningCRCTracksWindow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		regs := NewLeftAligned(1)
		n := rapid.IntRange(128, 400).Draw(rt, "n")
		bits := rapid.SliceOfN(rapid.Uint32Range(0, 1), n, n).Draw(rt, "bits")

		for _, b := range bits {
			regs.ShiftIn([]uint32{b})
		}

		assert.Equal(t, Checksum(regs.FrameLong(0), 112), regs.CRC112(0))
		assert.Equal(t, Checksum(Bits128{Lo: regs.FrameShort(0)}, 56), regs.CRC56(0))
	})
}

func TestMLATOffsets(t *testing.T) {
	right := NewRightAligned(1)
	assert.Equal(t, uint64((112-56)*12), right.MLATOffsetShort())
	assert.Equal(t, uint64(0), right.MLATOffsetLong())

	left := NewLeftAligned(1)
	assert.Equal(t, uint64(0), left.MLATOffsetShort())
	assert.Equal(t, uint64(0), left.MLATOffsetLong())
}

func TestStreamsAreIndependent(t *testing.T) {
	frame := parseFrame(t, "8D4840D6202CC371C32CE0576098")
	regs := NewRightAligned(2)

	// stream 0 gets the message, stream 1 gets zeros
	bits := make([]uint32, 2)
	for i := 111; i >= 0; i-- {
		bits[0] = 0
		if frame.Get(i) {
			bits[0] = 1
		}
		bits[1] = 0
		regs.ShiftIn(bits)
	}

	require.Equal(t, uint32(0), regs.CRC112(0))
	assert.Equal(t, frame, regs.FrameLong(0))
	assert.Equal(t, Bits128{}, regs.FrameLong(1))
	assert.Equal(t, uint32(0), regs.CRC112(1))
}
