package stream

import (
	"fmt"
	"sync"
)

// RingBuffer is a block-based single-producer single-consumer ring of raw
// sample bytes. The block, not the sample, is the unit of handoff: the
// producer commits whole blocks, the consumer drains whole blocks, and a
// consumer that sees a committed block sees every byte of it.
//
// The producer blocks only when the ring is completely full, the consumer
// only when it is empty. Shutdown wakes both sides; the consumer then
// drains the remaining committed blocks before reporting EOF.
type RingBuffer struct {
	data      []byte
	blockSize int
	numBlocks int

	mu         sync.Mutex
	cond       *sync.Cond
	fullBlocks int
	down       bool
}

// NewRingBuffer creates a ring of numBlocks blocks of blockSize bytes.
// numBlocks must be a power of two.
func NewRingBuffer(blockSize, numBlocks int) (*RingBuffer, error) {
	if numBlocks <= 0 || numBlocks&(numBlocks-1) != 0 {
		return nil, fmt.Errorf("ring buffer block count %d is not a power of two", numBlocks)
	}
	r := &RingBuffer{
		data:      make([]byte, blockSize*numBlocks),
		blockSize: blockSize,
		numBlocks: numBlocks,
	}
	r.cond = sync.NewCond(&r.mu)
	return r, nil
}

// BlockSize returns the byte size of one block.
func (r *RingBuffer) BlockSize() int {
	return r.blockSize
}

// block returns the storage of block i.
func (r *RingBuffer) block(i int) []byte {
	off := i * r.blockSize
	return r.data[off : off+r.blockSize]
}

// write copies src into the ring starting at element index startIdx,
// wrapping explicitly: the copy may split in two.
func (r *RingBuffer) write(startIdx int, src []byte) {
	first := len(r.data) - startIdx
	if first > len(src) {
		first = len(src)
	}
	copy(r.data[startIdx:], src[:first])
	if len(src) > first {
		copy(r.data, src[first:])
	}
}

// commitBlocks publishes n freshly written blocks and returns the new
// committed count.
func (r *RingBuffer) commitBlocks(n int) int {
	r.mu.Lock()
	r.fullBlocks += n
	res := r.fullBlocks
	r.mu.Unlock()
	r.cond.Signal()
	return res
}

// consumeBlocks releases n read blocks for writing and returns the new
// committed count.
func (r *RingBuffer) consumeBlocks(n int) int {
	r.mu.Lock()
	r.fullBlocks -= n
	res := r.fullBlocks
	r.mu.Unlock()
	r.cond.Signal()
	return res
}

// Shutdown signals that no more data will be written and wakes both sides.
func (r *RingBuffer) Shutdown() {
	r.mu.Lock()
	r.down = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// waitForNewBlocks blocks until at least one committed block exists or the
// ring is shut down with nothing left to drain; it returns the committed
// count, 0 meaning EOF.
func (r *RingBuffer) waitForNewBlocks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.down && r.fullBlocks == 0 {
		r.cond.Wait()
	}
	return r.fullBlocks
}

// waitForSpace blocks until at least one free block exists or the ring is
// shut down. It returns the committed count and whether shutdown hit.
func (r *RingBuffer) waitForSpace() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.down && r.numBlocks-r.fullBlocks == 0 {
		r.cond.Wait()
	}
	return r.fullBlocks, r.down
}

// Writer is the producer handle of a RingBuffer. Not safe for concurrent
// writers; the device callback is the only producer.
type Writer struct {
	ring       *RingBuffer
	writePos   int // byte index in [0, blockSize*numBlocks)
	fullBlocks int // local copy of the committed count
}

// NewWriter creates the producer handle.
func NewWriter(ring *RingBuffer) *Writer {
	return &Writer{ring: ring}
}

// Write copies p into the ring, committing each block as it fills. It
// blocks while the ring is full and returns short only on shutdown.
func (w *Writer) Write(p []byte) (int, error) {
	size := len(w.ring.data)
	written := 0

	for written < len(p) {
		used := w.fullBlocks*w.ring.blockSize + w.writePos%w.ring.blockSize
		free := size - used

		if free == 0 {
			full, down := w.ring.waitForSpace()
			if down {
				return written, nil
			}
			w.fullBlocks = full
			continue
		}

		n := len(p) - written
		if n > free {
			n = free
		}

		blockOffset := w.writePos % w.ring.blockSize
		newFull := (blockOffset + n) / w.ring.blockSize

		w.ring.write(w.writePos, p[written:written+n])
		w.writePos = (w.writePos + n) % size

		if newFull > 0 {
			w.fullBlocks = w.ring.commitBlocks(newFull)
		}
		written += n
	}
	return written, nil
}

// FinishLastBlock pads the trailing partial block with zero bytes so the
// consumer sees it. Call before Shutdown.
func (w *Writer) FinishLastBlock() {
	partial := w.writePos % w.ring.blockSize
	if partial == 0 {
		return
	}
	w.Write(make([]byte, w.ring.blockSize-partial))
}

// Shutdown signals the end of the stream.
func (w *Writer) Shutdown() {
	w.ring.Shutdown()
}

// Reader is the consumer handle of a RingBuffer.
type Reader struct {
	ring       *RingBuffer
	fullBlocks int
	readIdx    int
}

// NewReader creates the consumer handle.
func NewReader(ring *RingBuffer) *Reader {
	return &Reader{ring: ring}
}

// EOF blocks until a block is available or the stream ended; it returns
// true only when the ring shut down and every committed block is drained.
func (r *Reader) EOF() bool {
	if r.fullBlocks > 0 {
		return false
	}
	r.fullBlocks = r.ring.waitForNewBlocks()
	return r.fullBlocks == 0
}

// Process hands the next committed block to fn and releases it. Call only
// after EOF returned false.
func (r *Reader) Process(fn func(block []byte)) {
	if r.fullBlocks == 0 {
		return
	}
	fn(r.ring.block(r.readIdx))
	r.readIdx = (r.readIdx + 1) % r.ring.numBlocks
	r.fullBlocks = r.ring.consumeBlocks(1)
}
