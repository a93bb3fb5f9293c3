package demod

import (
	"github.com/mgrone/stream1090/internal/stats"
)

// Emitter receives framed messages together with their 12 MHz detection
// timestamp. Implemented by the output writers.
type Emitter interface {
	EmitLong(frame Bits128, t12 uint64)
	EmitShort(frame uint64, t12 uint64)
}

// Options tunes demodulator behavior that is not fixed by the protocol.
type Options struct {
	// DF11TrustRewrite enables accepting a DF11 frame with a non-zero
	// residue from an already trusted sender by folding the residue back
	// into the parity field. This is the only path that accepts a frame
	// without a clean or repaired checksum; turn it off for strict framing.
	DF11TrustRewrite bool
}

// DefaultOptions matches the behavior of the reference receiver.
func DefaultOptions() Options {
	return Options{DF11TrustRewrite: true}
}

// Core decides, at every bit slot of every phase stream, whether the current
// 56- or 112-bit window is a valid Mode S message. There is no preamble
// search: the running CRC residues plus the transponder cache are the whole
// framing criterion.
type Core struct {
	regs  Registers
	n     int
	cache *Cache

	longFix  *FixTable
	shortFix *FixTable

	out  Emitter
	log  *stats.Log
	opts Options

	// state of the previously inspected stream, for phase dedup
	prevLong   Bits128
	prevShort  uint64
	prevCRC56  uint32
	prevCRC112 uint32

	// last emitted frames, for output dedup across phase streams
	prevLongSent      Bits128
	prevLongSentTime  uint64
	prevShortSent     uint64
	prevShortSentTime uint64

	// currTime counts bit slots at the working rate; it advances by one per
	// stream and by numStreams per outer sample step.
	currTime uint64
}

// NewCore wires a demod core for numStreams phase streams.
func NewCore(regs Registers, numStreams int, cache *Cache, out Emitter, log *stats.Log, opts Options) *Core {
	return &Core{
		regs:     regs,
		n:        numStreams,
		cache:    cache,
		longFix:  NewLongFixTable(),
		shortFix: NewShortFixTable(),
		out:      out,
		log:      log,
		opts:     opts,
	}
}

// CurrentSlot returns the bit-slot counter, for tests and stats.
func (c *Core) CurrentSlot() uint64 {
	return c.currTime
}

// ShiftIn advances every stream by one bit and inspects each for a freshly
// completed message. Called once per outer sample step with one new bit per
// stream; it also drives the cache aging tick.
func (c *Core) ShiftIn(bits []uint32) {
	c.regs.ShiftIn(bits)

	for i := 0; i < c.n; i++ {
		// a short message hit makes the long window meaningless
		if !c.handleStreamShort(i) {
			c.handleStreamLong(i)
		}
		c.prevLong = c.regs.FrameLong(i)
		c.prevShort = c.regs.FrameShort(i)
		c.prevCRC112 = c.regs.CRC112(i)
		c.prevCRC56 = c.regs.CRC56(i)
		c.currTime++
	}

	c.cache.Tick()
	c.log.Inc(stats.Iterations)
}

// handleStreamShort dispatches the 56-bit window of stream i by downlink
// format. Returns true if a message was emitted.
func (c *Core) handleStreamShort(i int) bool {
	crc := c.regs.CRC56(i)
	frame := c.regs.FrameShort(i)

	// neighboring phase streams latch the same content when the true phase
	// falls between two grid positions; the previous stream already dealt
	// with this window, broken or not
	if crc == c.prevCRC56 && EqualShort(frame, c.prevShort) {
		return false
	}

	switch c.regs.DF56(i) {
	case 0, 4, 5:
		return c.handleSurvShort(c.regs.DF56(i), crc, frame)
	case 11:
		return c.handleDF11(crc, frame)
	}
	return false
}

// handleStreamLong dispatches the 112-bit window of stream i.
func (c *Core) handleStreamLong(i int) bool {
	crc := c.regs.CRC112(i)
	frame := c.regs.FrameLong(i)

	if crc == c.prevCRC112 && EqualLong(frame, c.prevLong) {
		return false
	}

	switch c.regs.DF112(i) {
	case 17, 18, 19:
		return c.handleExtSquitter(c.regs.DF112(i), crc, frame)
	case 16, 20, 21:
		return c.handleAcasCommB(c.regs.DF112(i), crc, frame)
	}
	return false
}

// handleExtSquitter handles the self-checked extended squitter formats
// (DF17/18/19). The 24 parity bits embed the CRC of the preceding 88 bits
// with no address overlay, so a zero residue proves the frame.
func (c *Core) handleExtSquitter(df uint8, crc uint32, frame Bits128) bool {
	if crc == 0 {
		c.log.Inc(stats.DF17GoodMessage)
		icaoCA := LongICAOWithCA(frame)
		if e := c.cache.FindWithCA(icaoCA); e.Valid() {
			// A self-checked sighting of an address already in the cache is
			// the only way into the trusted set.
			c.cache.MarkAsTrustedSeen(e)
			c.emitLong(df, frame)
			return true
		}
		// first sighting: remember the address, hold the message back
		c.cache.InsertWithCA(icaoCA)
		return false
	}

	c.log.Inc(stats.DF17BadMessage)
	if op := c.longFix.Lookup(crc); op.Valid() {
		repaired := frame
		op.Apply(&repaired)
		// repairing and trusting a fresh address at the same time is too
		// dangerous; only trusted senders get repaired frames
		icaoCA := LongICAOWithCA(repaired)
		if e := c.cache.FindWithCA(icaoCA); e.Valid() && c.cache.IsTrusted(e) {
			c.log.Inc(stats.DF17RepairSuccess)
			c.cache.MarkAsSeen(e)
			c.emitLong(df, repaired)
			return true
		}
	}
	c.log.Inc(stats.DF17RepairFailed)
	return false
}

// handleAcasCommB handles the long address-parity formats (DF16/20/21). A
// valid frame leaves the transmitter's ICAO address as the residue, so the
// cache lookup by residue is the framing check.
func (c *Core) handleAcasCommB(df uint8, crc uint32, frame Bits128) bool {
	if crc == 0 {
		return false
	}
	e := c.cache.Find(crc)
	if !e.Valid() {
		return false
	}

	switch df {
	case 16, 20:
		if !c.cache.CheckAltitude(e, LongAltitudeCode(frame)) {
			return false
		}
	case 21:
		if !c.cache.CheckSquawk(e, LongIdentityCode(frame)) {
			return false
		}
	}

	c.log.Inc(stats.CommBGoodMessage)
	c.cache.MarkAsSeen(e)
	c.emitLong(df, frame)
	return true
}

// handleSurvShort handles the short address-parity formats (DF0/4/5).
func (c *Core) handleSurvShort(df uint8, crc uint32, frame uint64) bool {
	if crc == 0 {
		return false
	}
	e := c.cache.Find(crc)
	if !e.Valid() {
		return false
	}

	switch df {
	case 0, 4:
		if !c.cache.CheckAltitude(e, ShortAltitudeCode(frame)) {
			return false
		}
	case 5:
		if !c.cache.CheckSquawk(e, ShortIdentityCode(frame)) {
			return false
		}
	}

	c.log.Inc(stats.AcasSurvGoodMessage)
	c.cache.MarkAsSeen(e)
	c.emitShort(df, frame)
	return true
}

// handleDF11 handles all-call replies, the entry point of every address
// into the cache.
func (c *Core) handleDF11(crc uint32, frame uint64) bool {
	if crc == 0 {
		c.log.Inc(stats.DF11GoodCRC)
		return c.acceptDF11(frame, false)
	}

	if op := c.shortFix.Lookup(crc); op.Valid() {
		c.log.Inc(stats.DF11Repaired)
		// a repaired frame never inserts; a fabricated address must not
		// poison the cache
		return c.acceptDF11(op.ApplyShort(frame), true)
	}

	if c.opts.DF11TrustRewrite {
		// No repair available, but if the claimed sender is trusted, the
		// header is believable and only the parity block can be wrong.
		// Fold the residue back in and emit.
		icaoCA := ShortICAOWithCA(frame)
		if e := c.cache.FindWithCA(icaoCA); e.Valid() && c.cache.IsTrusted(e) {
			c.log.Inc(stats.DF11TrustRewrite)
			c.cache.MarkAsSeen(e)
			c.emitShort(11, frame^uint64(crc))
			return true
		}
	}
	c.log.Inc(stats.DF11RepairFailed)
	return false
}

// acceptDF11 finishes a DF11 with a clean (or repaired-to-clean) residue.
func (c *Core) acceptDF11(frame uint64, repaired bool) bool {
	icaoCA := ShortICAOWithCA(frame)
	e := c.cache.FindWithCA(icaoCA)
	if !e.Valid() {
		if !repaired {
			c.cache.InsertWithCA(icaoCA)
		}
		return false
	}
	c.cache.MarkAsSeen(e)
	c.emitShort(11, frame)
	return true
}

// emitLong sends a long frame unless an identical one already went out
// within the last numStreams slots (the same message seen by a neighboring
// phase stream).
func (c *Core) emitLong(df uint8, frame Bits128) {
	if c.currTime-c.prevLongSentTime < uint64(c.n) && EqualLong(frame, c.prevLongSent) {
		c.log.Dup(df)
		return
	}
	c.log.Sent(df)
	c.prevLongSent = frame
	c.prevLongSentTime = c.currTime
	c.out.EmitLong(frame, c.to12MHz(c.currTime)+c.regs.MLATOffsetLong())
}

// emitShort is the short-frame counterpart of emitLong.
func (c *Core) emitShort(df uint8, frame uint64) {
	if c.currTime-c.prevShortSentTime < uint64(c.n) && EqualShort(frame, c.prevShortSent) {
		c.log.Dup(df)
		return
	}
	c.log.Sent(df)
	c.prevShortSent = frame
	c.prevShortSentTime = c.currTime
	c.out.EmitShort(frame, c.to12MHz(c.currTime)+c.regs.MLATOffsetShort())
}

// to12MHz rescales the slot counter to the 12 MHz MLAT tick with integer
// math; t*n == slot*12 + r, 0 <= r < n.
func (c *Core) to12MHz(slot uint64) uint64 {
	return slot * 12 / uint64(c.n)
}
