package clock

import "testing"

func TestPriority_HardwareBeatsVsyncBeatsSoftware(t *testing.T) {
	hw := NewHardwareSample(0, 48000)
	vs := NewVsync(0, 60)
	sw := NewSoftware()

	if Priority(hw) <= Priority(vs) {
		t.Fatalf("Priority(hardware)=%d should exceed Priority(vsync)=%d", Priority(hw), Priority(vs))
	}
	if Priority(vs) <= Priority(sw) {
		t.Fatalf("Priority(vsync)=%d should exceed Priority(software)=%d", Priority(vs), Priority(sw))
	}
}

func TestHardwareSample_NowNSAdvancesWithSamples(t *testing.T) {
	c := NewHardwareSample(1_000_000, 1000) // 1kHz for easy math
	if got := c.NowNS(); got != 1_000_000 {
		t.Fatalf("NowNS() = %d, want 1000000 before any samples played", got)
	}

	c.AdvanceSamples(500)
	want := int64(1_000_000 + 500*1e9/1000)
	if got := c.NowNS(); got != want {
		t.Fatalf("NowNS() = %d, want %d", got, want)
	}
}

func TestVsync_NowNSAdvancesWithFrames(t *testing.T) {
	c := NewVsync(0, 60)
	c.AdvanceFrames(60)
	want := int64(1e9) // 60 frames at 60Hz == 1 second
	if got := c.NowNS(); got != want {
		t.Fatalf("NowNS() = %d, want %d", got, want)
	}
}

func TestSoftware_NowNSMonotonic(t *testing.T) {
	c := NewSoftware()
	a := c.NowNS()
	b := c.NowNS()
	if b < a {
		t.Fatalf("NowNS() went backwards: %d then %d", a, b)
	}
}

func TestSelector_FirstOfferWinsAtEqualOrLowerPriority(t *testing.T) {
	sel := NewSelector()
	sw := NewSoftware()
	sel.Offer(sw)

	if !sel.Selected() {
		t.Fatal("Selected() = false after an Offer")
	}
	if sel.Clock() != Clock(sw) {
		t.Fatal("Clock() did not return the first offered clock")
	}

	// A second software clock must not displace the first (spec.md §9: a
	// provider being replaced does not trigger reselection).
	sel.Offer(NewSoftware())
	if sel.Clock() != Clock(sw) {
		t.Fatal("a second equal-priority Offer displaced the selected clock")
	}
}

func TestSelector_HigherPriorityOfferDisplacesLower(t *testing.T) {
	sel := NewSelector()
	sw := NewSoftware()
	hw := NewHardwareSample(0, 48000)

	sel.Offer(sw)
	sel.Offer(hw)

	if sel.Clock() != Clock(hw) {
		t.Fatal("higher-priority Offer should displace a lower-priority selection")
	}
}

func TestSelector_DefaultsToSoftwareBeforeAnyOffer(t *testing.T) {
	sel := NewSelector()
	if sel.Selected() {
		t.Fatal("Selected() = true before any Offer")
	}
	if sel.Clock().Description() != "software" {
		t.Fatalf("Clock().Description() = %q, want %q", sel.Clock().Description(), "software")
	}
}
