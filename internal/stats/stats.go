package stats

import "sync/atomic"

// Event enumerates the demodulator counters. The hot path only ever
// increments; the reporting goroutine reads, so everything is atomic.
type Event int

const (
	// Iterations counts outer sample steps, one per microsecond of stream
	// time. Used to derive elapsed stream time and message rates.
	Iterations Event = iota

	DF17GoodMessage
	DF17BadMessage
	DF17RepairSuccess
	DF17RepairFailed

	CommBGoodMessage
	AcasSurvGoodMessage

	DF11GoodCRC
	DF11Repaired
	DF11RepairFailed
	DF11TrustRewrite

	numEvents
)

// maxDF bounds the per-downlink-format counters.
const maxDF = 25

// Log accumulates demodulator counters.
type Log struct {
	events [numEvents]atomic.Uint64
	sent   [maxDF]atomic.Uint64
	dups   [maxDF]atomic.Uint64
}

// NewLog creates an empty counter set.
func NewLog() *Log {
	return &Log{}
}

// Inc bumps an event counter by one.
func (l *Log) Inc(e Event) {
	l.events[e].Add(1)
}

// Add bumps an event counter by n.
func (l *Log) Add(e Event, n uint64) {
	l.events[e].Add(n)
}

// Sent records a message of downlink format df reaching the output.
func (l *Log) Sent(df uint8) {
	if df < maxDF {
		l.sent[df].Add(1)
	}
}

// Dup records a message suppressed as a phase-stream duplicate.
func (l *Log) Dup(df uint8) {
	if df < maxDF {
		l.dups[df].Add(1)
	}
}

// Count returns the current value of an event counter.
func (l *Log) Count(e Event) uint64 {
	return l.events[e].Load()
}

// SentCount returns messages sent for one downlink format.
func (l *Log) SentCount(df uint8) uint64 {
	if df >= maxDF {
		return 0
	}
	return l.sent[df].Load()
}

// DupCount returns duplicates suppressed for one downlink format.
func (l *Log) DupCount(df uint8) uint64 {
	if df >= maxDF {
		return 0
	}
	return l.dups[df].Load()
}

// Summary is a consistent-enough snapshot of the counters grouped the way
// the periodic report prints them.
type Summary struct {
	ElapsedStreamSecs float64

	ExtSquitterSent     uint64
	ExtSquitterDups     uint64
	ExtSquitterRepaired uint64

	CommBSent uint64
	CommBDups uint64

	AcasSent uint64
	AcasDups uint64

	SurvSent uint64
	SurvDups uint64

	DF11Sent     uint64
	DF11Dups     uint64
	DF11Repaired uint64

	TotalSent uint64
	TotalDups uint64

	MessagesPerSec float64
}

// Snapshot derives a Summary from the current counters.
func (l *Log) Snapshot() Summary {
	var s Summary
	s.ElapsedStreamSecs = float64(l.Count(Iterations)) / 1e6

	s.ExtSquitterSent = l.SentCount(17) + l.SentCount(18) + l.SentCount(19)
	s.ExtSquitterDups = l.DupCount(17) + l.DupCount(18) + l.DupCount(19)
	s.ExtSquitterRepaired = l.Count(DF17RepairSuccess)

	s.CommBSent = l.SentCount(20) + l.SentCount(21)
	s.CommBDups = l.DupCount(20) + l.DupCount(21)

	s.AcasSent = l.SentCount(0) + l.SentCount(16)
	s.AcasDups = l.DupCount(0) + l.DupCount(16)

	s.SurvSent = l.SentCount(4) + l.SentCount(5)
	s.SurvDups = l.DupCount(4) + l.DupCount(5)

	s.DF11Sent = l.SentCount(11)
	s.DF11Dups = l.DupCount(11)
	s.DF11Repaired = l.Count(DF11Repaired)

	for df := uint8(0); df < maxDF; df++ {
		s.TotalSent += l.SentCount(df)
		s.TotalDups += l.DupCount(df)
	}
	if s.ElapsedStreamSecs > 0 {
		s.MessagesPerSec = float64(s.TotalSent) / s.ElapsedStreamSecs
	}
	return s
}
