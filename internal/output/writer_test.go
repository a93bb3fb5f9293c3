package output

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrone/stream1090/internal/demod"
)

func TestEmitLongASCII(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, ASCII)

	frame := demod.Bits128{Hi: 0x8D4840D6202C, Lo: 0xC371C32CE0576098}
	w.EmitLong(frame, 0x13D6)
	require.NoError(t, w.Flush())

	assert.Equal(t, "@0000000013D68D4840D6202CC371C32CE0576098;\n", buf.String())
}

func TestEmitShortASCII(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, ASCII)

	w.EmitShort(0x5D4840D6565023, 0x9E4)
	require.NoError(t, w.Flush())

	assert.Equal(t, "@0000000009E45D4840D6565023;\n", buf.String())
}

func TestEmitASCIIPadsFrames(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, ASCII)

	w.EmitLong(demod.Bits128{Lo: 0x1}, 0)
	w.EmitShort(0x2, 0)
	require.NoError(t, w.Flush())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	// '@' + 12 timestamp digits + 28 frame digits + ';'
	assert.Len(t, lines[0], 1+12+28+1)
	// '@' + 12 timestamp digits + 14 frame digits + ';'
	assert.Len(t, lines[1], 1+12+14+1)
}

func TestEmitLongMasksHighLane(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, ASCII)

	// bits above 112 must never leak into the output
	w.EmitLong(demod.Bits128{Hi: 0xFFFF8D4840D6202C, Lo: 0xC371C32CE0576098}, 0)
	require.NoError(t, w.Flush())

	assert.Equal(t, "@0000000000008D4840D6202CC371C32CE0576098;\n", buf.String())
}

func TestEmitBinaryRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Binary)
	w.wallMS = func() uint64 { return 1700000000123 }

	frame := demod.Bits128{Hi: 0x8D4840D6202C, Lo: 0xC371C32CE0576098}
	w.EmitLong(frame, 0)
	require.NoError(t, w.Flush())

	require.Len(t, buf.Bytes(), 24)
	rec := buf.Bytes()
	assert.Equal(t, uint64(0xC371C32CE0576098), binary.LittleEndian.Uint64(rec[0:]))
	assert.Equal(t, uint64(0x8D4840D6202C), binary.LittleEndian.Uint64(rec[8:]))
	assert.Equal(t, uint64(1700000000123), binary.LittleEndian.Uint64(rec[16:]))
}

func TestEmitBinaryShortRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Binary)
	w.wallMS = func() uint64 { return 42 }

	w.EmitShort(0x5D4840D6565023, 0)
	require.NoError(t, w.Flush())

	require.Len(t, buf.Bytes(), 24)
	rec := buf.Bytes()
	assert.Equal(t, uint64(0x5D4840D6565023), binary.LittleEndian.Uint64(rec[0:]))
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(rec[8:]))
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(rec[16:]))
}
