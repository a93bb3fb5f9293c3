package demod

// Cache is the direct-mapped table of recently heard transponders. It is
// keyed by the low 16 bits of the 27-bit address-with-CA field; a collision
// between two live addresses evicts the previous occupant, which is rare at
// airborne populations and self-heals on the next all-call reply.
//
// Entries age through Tick, which is driven once per microsecond of sample
// time and visits at most one slot per call, so every entry is aged exactly
// once per second. The TTLs therefore count seconds.
const (
	cacheBits = 16
	// CacheSize is the number of direct-mapped slots.
	CacheSize = 1 << cacheBits
	cacheMask = CacheSize - 1

	// TTLTrusted is how long an address stays trusted after a self-checked
	// extended squitter, in seconds.
	TTLTrusted = 30
	// TTLAlive is how long an address stays alive after any accepted
	// message, in seconds.
	TTLAlive = 10

	// tickModulus wraps the microsecond counter once per second.
	tickModulus = 1000000
)

// AltitudeWindow is the accepted delta on the raw 13-bit altitude field
// while a value is still unconfirmed.
const AltitudeWindow = 80

type cacheEntry struct {
	icaoCA     uint32
	ttl        uint8
	ttlTrusted uint8

	squawk      uint16
	squawkCount uint8
	altitude    uint16
	altCount    uint8
}

// Entry is a handle to a cache slot. A lookup miss returns an invalid
// handle; check Valid before use.
type Entry int32

// Valid reports whether the handle refers to a live slot.
func (e Entry) Valid() bool {
	return e >= 0
}

const invalidEntry Entry = -1

// Cache holds the transponder table plus the spread-aging cursor.
type Cache struct {
	entries []cacheEntry
	tickUS  int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make([]cacheEntry, CacheSize),
	}
}

func (c *Cache) live(i int) bool {
	return c.entries[i].ttl > 0 || c.entries[i].ttlTrusted > 0
}

// FindWithCA looks up an entry matching the full 27-bit address-with-CA.
func (c *Cache) FindWithCA(icaoCA uint32) Entry {
	i := int(icaoCA & cacheMask)
	if c.live(i) && c.entries[i].icaoCA == icaoCA {
		return Entry(i)
	}
	return invalidEntry
}

// Find looks up an entry by the 24-bit ICAO address alone, as needed for
// address-parity frames where the CA field is not transmitted.
func (c *Cache) Find(icao uint32) Entry {
	i := int(icao & cacheMask)
	if c.live(i) && c.entries[i].icaoCA&0xFFFFFF == icao {
		return Entry(i)
	}
	return invalidEntry
}

// InsertWithCA records an address as observed: alive but not trusted.
// An occupied colliding slot is overwritten.
func (c *Cache) InsertWithCA(icaoCA uint32) Entry {
	i := int(icaoCA & cacheMask)
	c.entries[i] = cacheEntry{
		icaoCA: icaoCA,
		ttl:    TTLAlive,
	}
	return Entry(i)
}

// MarkAsSeen refreshes the alive TTL of an entry.
func (c *Cache) MarkAsSeen(e Entry) {
	c.entries[e].ttl = TTLAlive
}

// MarkAsTrustedSeen promotes an entry to trusted and refreshes both TTLs.
// Only self-checked extended squitter frames reach this.
func (c *Cache) MarkAsTrustedSeen(e Entry) {
	c.entries[e].ttl = TTLAlive
	c.entries[e].ttlTrusted = TTLTrusted
}

// IsTrusted reports whether the entry's trusted TTL is still running.
func (c *Cache) IsTrusted(e Entry) bool {
	return c.entries[e].ttlTrusted > 0
}

// IsAlive reports whether the entry is still live. Trusted implies alive.
func (c *Cache) IsAlive(e Entry) bool {
	return c.live(int(e))
}

// CheckSquawk accepts a raw 13-bit identity value only when it matches the
// stored one. A changed value seeds the entry and is rejected, so a single
// spoofed reply never reaches the output.
func (c *Cache) CheckSquawk(e Entry, v uint16) bool {
	ent := &c.entries[e]
	if ent.squawk == v {
		ent.squawkCount = 1
		return true
	}
	ent.squawk = v
	ent.squawkCount = 0
	return false
}

// CheckAltitude accepts a raw 13-bit altitude value when it matches the
// confirmed one, or, while unconfirmed, when it stays within AltitudeWindow
// of the last seen value. Anything else re-seeds the entry and is rejected.
func (c *Cache) CheckAltitude(e Entry, v uint16) bool {
	ent := &c.entries[e]
	if ent.altCount > 0 && ent.altitude == v {
		return true
	}
	if ent.altCount == 0 && absDelta(ent.altitude, v) <= AltitudeWindow {
		ent.altitude = v
		ent.altCount = 1
		return true
	}
	ent.altitude = v
	ent.altCount = 0
	return false
}

func absDelta(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}

// Tick advances the aging cursor by one microsecond of sample time. The
// cursor wraps every second; while it is below the table size the matching
// slot is aged, so the work of a full sweep spreads uniformly over the
// second.
func (c *Cache) Tick() {
	i := c.tickUS
	c.tickUS++
	if c.tickUS == tickModulus {
		c.tickUS = 0
	}
	if i >= CacheSize {
		return
	}
	ent := &c.entries[i]
	if ent.ttlTrusted > 0 {
		ent.ttlTrusted--
	}
	if ent.ttl > 0 {
		ent.ttl--
	}
	if ent.ttl == 0 && ent.ttlTrusted == 0 && ent.icaoCA != 0 {
		*ent = cacheEntry{}
	}
}
