package demod

// Registers is a set of per-stream 128-bit shift registers with running
// 56- and 112-bit CRC residues and downlink-format views. One register set
// serves all N phase streams; ShiftIn advances every stream by one bit.
//
// The two implementations differ only in where the message windows sit in
// the 128-bit frame, which in turn decides the MLAT offset added to
// timestamps. The bit-level protocol is identical.
type Registers interface {
	// ShiftIn shifts bits[i] into stream i and updates CRCs and DF views.
	ShiftIn(bits []uint32)

	// CRC56 returns the residue of the 56 most recent bits of stream i.
	CRC56(i int) uint32
	// CRC112 returns the residue of the 112 most recent bits of stream i.
	CRC112(i int) uint32

	// DF56 returns the downlink format of the current short window.
	DF56(i int) uint8
	// DF112 returns the downlink format of the current long window.
	DF112(i int) uint8

	// FrameLong returns the long window aligned to the low 112 bits.
	FrameLong(i int) Bits128
	// FrameShort returns the short window aligned to the low 56 bits.
	FrameShort(i int) uint64

	// MLATOffsetShort is the 12 MHz tick offset added to short-frame
	// timestamps so they share the long-frame time base.
	MLATOffsetShort() uint64
	// MLATOffsetLong is the corresponding offset for long frames.
	MLATOffsetLong() uint64
}

// RightAligned keeps the short window in the low 56 bits of Lo and the long
// window in the low 112 bits of (Hi, Lo), so both windows end at the newest
// bit. Short and long messages are tested in parallel at every slot. This is
// the default layout.
type RightAligned struct {
	lo     []uint64
	hi     []uint64
	crc56  []uint32
	crc112 []uint32
	df56   []uint32
	df112  []uint32
}

// NewRightAligned creates a register set for numStreams phase streams.
func NewRightAligned(numStreams int) *RightAligned {
	return &RightAligned{
		lo:     make([]uint64, numStreams),
		hi:     make([]uint64, numStreams),
		crc56:  make([]uint32, numStreams),
		crc112: make([]uint32, numStreams),
		df56:   make([]uint32, numStreams),
		df112:  make([]uint32, numStreams),
	}
}

// ShiftIn advances all streams by one bit. Expiring bits are retired from
// the CRCs with the precomputed deltas before the shift, then both residues
// advance and get reduced by the polynomial.
func (r *RightAligned) ShiftIn(bits []uint32) {
	for i := range bits {
		// the bit leaving the 112-bit window
		if r.hi[i]&(1<<47) != 0 {
			r.crc112[i] ^= Delta111
		}
		// the bit leaving the 56-bit window
		if r.lo[i]&(1<<55) != 0 {
			r.crc56[i] ^= Delta55
		}

		r.hi[i] = (r.hi[i] << 1) | (r.lo[i] >> 63)
		r.lo[i] = (r.lo[i] << 1) | uint64(bits[i])

		r.crc112[i] = (r.crc112[i] << 1) | bits[i]
		r.crc56[i] = (r.crc56[i] << 1) | bits[i]

		r.df112[i] = uint32(r.hi[i]>>43) & 0x1F
		r.df56[i] = uint32(r.lo[i]>>51) & 0x1F

		if r.crc112[i] > crcMask {
			r.crc112[i] ^= Polynomial
		}
		if r.crc56[i] > crcMask {
			r.crc56[i] ^= Polynomial
		}
	}
}

func (r *RightAligned) CRC56(i int) uint32  { return r.crc56[i] }
func (r *RightAligned) CRC112(i int) uint32 { return r.crc112[i] }
func (r *RightAligned) DF56(i int) uint8    { return uint8(r.df56[i]) }
func (r *RightAligned) DF112(i int) uint8   { return uint8(r.df112[i]) }

func (r *RightAligned) FrameLong(i int) Bits128 {
	return Bits128{Hi: r.hi[i] & longHiMask, Lo: r.lo[i]}
}

func (r *RightAligned) FrameShort(i int) uint64 {
	return r.lo[i] & shortMask
}

// The short window ends 56 bit-times before the long window would, so short
// timestamps carry the difference rescaled to 12 MHz.
func (r *RightAligned) MLATOffsetShort() uint64 { return (112 - 56) * 12 }
func (r *RightAligned) MLATOffsetLong() uint64  { return 0 }

// LeftAligned keeps both windows ending at bit 127: the long window spans
// bits 16..127, the short window bits 72..127. Both windows retire from the
// same bit, and a single DF position serves short and long views. Both MLAT
// offsets are zero.
type LeftAligned struct {
	lo     []uint64
	hi     []uint64
	crc56  []uint32
	crc112 []uint32
	df     []uint32
}

// NewLeftAligned creates a left-aligned register set.
func NewLeftAligned(numStreams int) *LeftAligned {
	return &LeftAligned{
		lo:     make([]uint64, numStreams),
		hi:     make([]uint64, numStreams),
		crc56:  make([]uint32, numStreams),
		crc112: make([]uint32, numStreams),
		df:     make([]uint32, numStreams),
	}
}

// ShiftIn advances all streams by one bit. The CRCs consume the bits that
// enter their windows (bit 71 for the short window, bit 15 for the long
// one); the bit shifted out of bit 127 retires from both residues at once.
func (l *LeftAligned) ShiftIn(bits []uint32) {
	for i := range bits {
		if l.hi[i]&(1<<63) != 0 {
			l.crc56[i] ^= Delta55
			l.crc112[i] ^= Delta111
		}

		l.crc56[i] = (l.crc56[i] << 1) | uint32(l.hi[i]>>7)&1
		l.crc112[i] = (l.crc112[i] << 1) | uint32(l.lo[i]>>15)&1

		l.hi[i] = (l.hi[i] << 1) | (l.lo[i] >> 63)
		l.lo[i] = (l.lo[i] << 1) | uint64(bits[i])

		l.df[i] = uint32(l.hi[i] >> 59)

		if l.crc56[i] > crcMask {
			l.crc56[i] ^= Polynomial
		}
		if l.crc112[i] > crcMask {
			l.crc112[i] ^= Polynomial
		}
	}
}

func (l *LeftAligned) CRC56(i int) uint32  { return l.crc56[i] }
func (l *LeftAligned) CRC112(i int) uint32 { return l.crc112[i] }
func (l *LeftAligned) DF56(i int) uint8    { return uint8(l.df[i]) }
func (l *LeftAligned) DF112(i int) uint8   { return uint8(l.df[i]) }

func (l *LeftAligned) FrameLong(i int) Bits128 {
	return Bits128{
		Hi: l.hi[i] >> 16,
		Lo: (l.lo[i] >> 16) | (l.hi[i] << 48),
	}
}

func (l *LeftAligned) FrameShort(i int) uint64 {
	return l.hi[i] >> 8
}

func (l *LeftAligned) MLATOffsetShort() uint64 { return 0 }
func (l *LeftAligned) MLATOffsetLong() uint64  { return 0 }
