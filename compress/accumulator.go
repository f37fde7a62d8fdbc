package compress

import "sync"

// Accumulator is a stateful wrapper around Compress for streaming
// ingestion: callers Add one geohash at a time (e.g. as they arrive off a
// message bus) and periodically call Snapshot to get the current minimal
// prefix set. Snapshot is always exactly Compress(added-so-far, min, max),
// so an Accumulator cannot produce a result the pure compressor wouldn't
// also produce from the same input set. It deduplicates what is added,
// but every Snapshot recompresses the whole accumulated set.
type Accumulator struct {
	mu       sync.Mutex
	minLevel int
	maxLevel int
	seen     map[string]struct{}
}

// NewAccumulator creates an Accumulator with the given compression bounds.
func NewAccumulator(minLevel, maxLevel int) *Accumulator {
	return &Accumulator{
		minLevel: minLevel,
		maxLevel: maxLevel,
		seen:     make(map[string]struct{}),
	}
}

// Add records a geohash for the next Snapshot. It does not itself trigger
// recompression.
func (a *Accumulator) Add(hash string) {
	if hash == "" {
		return
	}
	a.mu.Lock()
	a.seen[hash] = struct{}{}
	a.mu.Unlock()
}

// Len reports how many distinct geohashes have been added so far.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}

// Snapshot compresses every geohash added so far and returns the minimal
// prefix set, per Compress's contract.
func (a *Accumulator) Snapshot() ([]string, error) {
	a.mu.Lock()
	in := make([]string, 0, len(a.seen))
	for h := range a.seen {
		in = append(in, h)
	}
	a.mu.Unlock()
	return Compress(in, a.minLevel, a.maxLevel)
}

// Reset clears the accumulated set.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.seen = make(map[string]struct{})
	a.mu.Unlock()
}
