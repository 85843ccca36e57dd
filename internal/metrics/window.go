// Package metrics implements the rolling latency window and percentile
// calculation shared by every processor's MetricsComponent. No
// percentile/histogram library is available in this module's dependency
// stack (no hdrhistogram, no prometheus client), so this is built on the
// standard library's sort package — see DESIGN.md for the no-suitable-
// library justification.
package metrics

import "sort"

// Window is a fixed-capacity rolling buffer of latency samples in
// nanoseconds, with on-demand percentile computation. Not safe for
// concurrent use; callers that share a Window across goroutines must
// serialize access themselves (processor metrics are only ever touched
// from their owning loop/handler thread, per the runtime's shared-resource
// policy).
type Window struct {
	samples []int64
	cap     int
}

// NewWindow creates a Window retaining at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 256
	}
	return &Window{cap: capacity}
}

// Record appends one sample, evicting the oldest sample if the window is
// full.
func (w *Window) Record(ns int64) {
	if len(w.samples) >= w.cap {
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, ns)
}

// Percentile returns the p-th percentile (0..100) in nanoseconds, or 0 if
// the window is empty.
func (w *Window) Percentile(p float64) int64 {
	if len(w.samples) == 0 {
		return 0
	}
	sorted := make([]int64, len(w.samples))
	copy(sorted, w.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(p / 100 * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Len reports how many samples are currently retained.
func (w *Window) Len() int {
	return len(w.samples)
}

// P50 P95 P99 are convenience wrappers around the percentiles the runtime
// and API server report most often.
func (w *Window) P50() int64 { return w.Percentile(50) }
func (w *Window) P95() int64 { return w.Percentile(95) }
func (w *Window) P99() int64 { return w.Percentile(99) }
