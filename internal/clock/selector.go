package clock

import "sync"

// Selector holds the single pipeline clock for a runtime's lifetime
// (spec.md §3 invariant 6: "set at most once per runtime lifetime").
// It is installed into every source and sink that opts into clock-based
// scheduling as an immutable shared reference.
type Selector struct {
	mu     sync.Mutex
	clock  Clock
	chosen bool
	frozen bool
}

// NewSelector returns an empty Selector. Until Offer is called at least
// once, Clock falls back to a Software clock (spec.md §4.3: "if no
// processor provides one, a software clock is used").
func NewSelector() *Selector {
	return &Selector{}
}

// Offer proposes candidate as the pipeline clock. Until Clock has been
// called, a candidate replaces the current selection only if it ranks
// strictly higher (HardwareSample beats Vsync beats Software); an equal or
// lower candidate is ignored. Once Clock has handed the clock out, the
// selection is fixed and every later Offer is a no-op, so it is never
// reselected — see DESIGN.md. The compiler calls Offer from its Setup
// phase, before its Start phase hands the clock to consumers.
func (s *Selector) Offer(candidate Clock) {
	if candidate == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen || (s.chosen && Priority(candidate) <= Priority(s.clock)) {
		return
	}
	s.clock = candidate
	s.chosen = true
}

// Clock returns the selected pipeline clock, or a Software clock if none
// has been offered yet. The first call fixes the selection: later Offer
// calls no longer change it.
func (s *Selector) Clock() Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
	if !s.chosen {
		return softwareFallback
	}
	return s.clock
}

// Selected reports whether any clock, software included, has been chosen
// through Offer.
func (s *Selector) Selected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chosen
}

var softwareFallback = NewSoftware()
