package cover

import "sync/atomic"

// ProgressFunc is a one-way progress sink: a callback accepting values
// in [0, 1]. A nil ProgressFunc disables reporting.
type ProgressFunc func(percent float64)

// progressTracker is a CAS-guarded "last reported percent" register:
// completed-row increments and percent-milestone reports are both
// lock-free, so the result set's final merge lock (grid.go) stays the
// only synchronization point in the hot path.
type progressTracker struct {
	total     int64
	completed atomic.Int64
	lastPct   atomic.Int64
	report    ProgressFunc
}

func newProgressTracker(total int64, report ProgressFunc) *progressTracker {
	t := &progressTracker{total: total, report: report}
	t.lastPct.Store(-1)
	return t
}

// completeRow increments the shared row counter and, if a new
// integer-percent milestone was just crossed, emits it exactly once via a
// compare-and-swap loop on lastPct.
func (t *progressTracker) completeRow() {
	if t.total <= 0 {
		return
	}
	done := t.completed.Add(1)
	pct := done * 100 / t.total
	for {
		last := t.lastPct.Load()
		if pct <= last {
			return
		}
		if t.lastPct.CompareAndSwap(last, pct) {
			if t.report != nil {
				t.report(float64(pct) / 100)
			}
			return
		}
	}
}

// finish emits the final 1.0 milestone unless the row-by-row percent loop
// already reported it, so 1.0 is delivered exactly once.
func (t *progressTracker) finish() {
	if t.lastPct.Swap(100) >= 100 {
		return
	}
	if t.report != nil {
		t.report(1.0)
	}
}
