// Package clock implements the passive time references described in
// spec.md §4.3: a monotonic now_ns(), an optional nominal rate, and a
// human description. Clocks never schedule anything themselves — source
// loops and reactive sinks read a Clock and decide what to do with it.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock is a passive, monotonic time reference.
type Clock interface {
	// NowNS returns the current time in nanoseconds on this clock's own
	// timeline. Monotonic: never decreases.
	NowNS() int64
	// RateHZ returns the clock's nominal rate, or 0 if it has none.
	RateHZ() float64
	// Description is a human-readable identification of the clock, used
	// in logs and the Tick.ClockID field.
	Description() string
}

// Software is a monotonic clock derived from time.Now(), used whenever no
// hardware clock is available (spec.md §4.3).
type Software struct {
	start time.Time
}

// NewSoftware creates a Software clock anchored to the current time.
func NewSoftware() *Software {
	return &Software{start: time.Now()}
}

func (c *Software) NowNS() int64 {
	return time.Since(c.start).Nanoseconds()
}

func (c *Software) RateHZ() float64     { return 0 }
func (c *Software) Description() string { return "software" }

// HardwareSample is the audio clock: a base timestamp plus a running
// sample count updated by the audio hardware callback thread. It is the
// canonical pipeline clock whenever audio output is present (spec.md
// §4.3's priority: hardware sample clock > vsync > software).
type HardwareSample struct {
	baseNS     int64
	sampleRate float64
	samples    atomic.Int64
}

// NewHardwareSample creates a HardwareSample clock. baseNS is the
// nanosecond timestamp corresponding to zero samples played.
func NewHardwareSample(baseNS int64, sampleRate float64) *HardwareSample {
	return &HardwareSample{baseNS: baseNS, sampleRate: sampleRate}
}

// AdvanceSamples is called by the audio hardware callback to report that n
// more samples have been played.
func (c *HardwareSample) AdvanceSamples(n int64) {
	c.samples.Add(n)
}

func (c *HardwareSample) NowNS() int64 {
	played := c.samples.Load()
	return c.baseNS + int64(float64(played)*1e9/c.sampleRate)
}

func (c *HardwareSample) RateHZ() float64     { return c.sampleRate }
func (c *HardwareSample) Description() string { return "hardware-sample-clock" }

// Vsync is the video clock: a base timestamp plus a running rendered-frame
// count updated by the display link callback. Frame-accurate rather than
// sample-accurate (spec.md §4.3).
type Vsync struct {
	baseNS      int64
	refreshHZ   float64
	framesShown atomic.Int64
}

// NewVsync creates a Vsync clock. baseNS is the nanosecond timestamp
// corresponding to zero frames rendered.
func NewVsync(baseNS int64, refreshHZ float64) *Vsync {
	return &Vsync{baseNS: baseNS, refreshHZ: refreshHZ}
}

// AdvanceFrames is called by the display link callback to report that n
// more frames have been presented.
func (c *Vsync) AdvanceFrames(n int64) {
	c.framesShown.Add(n)
}

func (c *Vsync) NowNS() int64 {
	shown := c.framesShown.Load()
	return c.baseNS + int64(float64(shown)*1e9/c.refreshHZ)
}

func (c *Vsync) RateHZ() float64     { return c.refreshHZ }
func (c *Vsync) Description() string { return "vsync-clock" }

// Priority ranks clock kinds for pipeline-clock selection: hardware sample
// clock > vsync > software (spec.md §4.3).
func Priority(c Clock) int {
	switch c.(type) {
	case *HardwareSample:
		return 2
	case *Vsync:
		return 1
	default:
		return 0
	}
}
