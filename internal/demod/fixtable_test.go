package demod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longFamily enumerates the fix ops the long table must cover.
func longFamily() []FixOp {
	var ops []FixOp
	for i := 0; i < 112-5; i++ {
		ops = append(ops, FixOp{Pattern: 0x1, Index: uint8(i)})
	}
	for i := 0; i < 111-5; i++ {
		ops = append(ops, FixOp{Pattern: 0x3, Index: uint8(i)})
	}
	for i := 0; i < 110-5; i++ {
		ops = append(ops, FixOp{Pattern: 0x7, Index: uint8(i)})
	}
	for i := 0; i < 16; i++ {
		ops = append(ops, FixOp{Pattern: 0x81, Index: uint8(i)})
	}
	return ops
}

func shortFamily() []FixOp {
	var ops []FixOp
	for i := 0; i < 56-5; i++ {
		ops = append(ops, FixOp{Pattern: 0x1, Index: uint8(i)})
	}
	for i := 0; i < 55-5; i++ {
		ops = append(ops, FixOp{Pattern: 0x3, Index: uint8(i)})
	}
	return ops
}

// The table sizes are chosen so the op families hash perfectly: every family
// member must be retrievable by its own CRC, which also proves no two
// members collide.
func TestLongFixTableIsPerfect(t *testing.T) {
	table := NewLongFixTable()
	require.Equal(t, LongFixTableSize, table.Size())

	seen := make(map[uint32]bool)
	for _, op := range longFamily() {
		crc := op.CRC()
		assert.False(t, seen[crc], "duplicate family CRC %06X", crc)
		seen[crc] = true
		assert.Equal(t, op, table.Lookup(crc), "op %+v not retrievable", op)
	}
}

func TestShortFixTableIsPerfect(t *testing.T) {
	table := NewShortFixTable()
	require.Equal(t, ShortFixTableSize, table.Size())

	seen := make(map[uint32]bool)
	for _, op := range shortFamily() {
		crc := op.CRC()
		assert.False(t, seen[crc], "duplicate family CRC %06X", crc)
		seen[crc] = true
		assert.Equal(t, op, table.Lookup(crc), "op %+v not retrievable", op)
	}
}

func TestFixTableNonFamilyLookup(t *testing.T) {
	table := NewLongFixTable()

	family := make(map[uint32]bool)
	for _, op := range longFamily() {
		family[op.CRC()] = true
	}

	// outside the family the table answers the null op unless the residue
	// happens to share a bucket key, which exact key matching rules out
	misses := 0
	for crc := uint32(1); crc < 100000; crc++ {
		if family[crc] {
			continue
		}
		if !table.Lookup(crc).Valid() {
			misses++
		} else {
			// a valid result must mean the key matched exactly
			assert.True(t, family[crc])
		}
	}
	assert.Greater(t, misses, 90000)
}

func TestFixTableRepairsSingleBitError(t *testing.T) {
	table := NewLongFixTable()
	clean := parseFrame(t, "8D4840D6202CC371C32CE0576098")

	for _, bit := range []int{0, 7, 42, 63, 64, 100, 106} {
		broken := clean
		broken.Flip(bit)
		crc := Checksum(broken, 112)
		require.NotZero(t, crc)

		op := table.Lookup(crc)
		require.True(t, op.Valid(), "bit %d not repairable", bit)

		repaired := broken
		op.Apply(&repaired)
		assert.Equal(t, clean, repaired, "bit %d", bit)
		assert.Zero(t, Checksum(repaired, 112))
	}
}

func TestShortFixTableRepairsAdjacentTwoBitError(t *testing.T) {
	table := NewShortFixTable()
	clean := Bits128{Lo: 0x5D4840D6000000}
	// give the frame a valid parity field first
	clean.XorLo(uint64(Checksum(clean, 56)))
	require.Zero(t, Checksum(clean, 56))

	for _, bit := range []int{3, 20, 44} {
		broken := clean
		broken.Flip(bit)
		broken.Flip(bit + 1)

		op := table.Lookup(Checksum(broken, 56))
		require.True(t, op.Valid())

		repaired := broken
		op.Apply(&repaired)
		assert.Equal(t, clean, repaired)
	}
}
