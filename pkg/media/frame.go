// Package media defines the frame and message kinds the core engine knows
// about structurally (spec.md §3 "Frame/Message kinds"). Their payloads stay
// opaque to the engine — the graph, links, and compiler route them without
// ever inspecting pixels or samples.
package media

import "fmt"

// PixelFormat tags the layout of a VideoFrame's backing surface.
type PixelFormat string

const (
	PixelFormatUnknown PixelFormat = ""
	PixelFormatNV12     PixelFormat = "nv12"
	PixelFormatRGBA8    PixelFormat = "rgba8"
	PixelFormatI420     PixelFormat = "i420"
)

// VideoFrame carries a handle to a GPU texture or platform surface rather
// than raw pixels — the core never decodes or re-encodes video content.
type VideoFrame struct {
	// SurfaceID identifies the GPU texture or platform surface backing this
	// frame. Its meaning is owned entirely by the producing Source.
	SurfaceID   uint64
	Width       int
	Height      int
	Format      PixelFormat
	TimestampNS int64
	FrameIndex  uint64
}

func (f VideoFrame) String() string {
	return fmt.Sprintf("VideoFrame{surface=%d %dx%d %s ts=%dns idx=%d}",
		f.SurfaceID, f.Width, f.Height, f.Format, f.TimestampNS, f.FrameIndex)
}

// AudioFrame carries N interleaved channels of f32 samples. N is a type
// parameter rather than a runtime field so that a mono source and a 5.1
// source are distinct, non-interchangeable link types at compile time —
// the Go analogue of the original's const-generic channel count.
type AudioFrame[N Channels] struct {
	Samples     []float32
	SampleRate  int
	TimestampNS int64
	FrameIndex  uint64
}

// ChannelCount returns the number of interleaved channels N represents.
func (f AudioFrame[N]) ChannelCount() int {
	var n N
	return n.Channels()
}

// FrameCount returns the number of per-channel samples in this frame.
func (f AudioFrame[N]) FrameCount() int {
	n := f.ChannelCount()
	if n == 0 {
		return 0
	}
	return len(f.Samples) / n
}

// Channels is implemented by the channel-count marker types below. It exists
// only so AudioFrame[N] can recover N's numeric value without reflection.
type Channels interface {
	Channels() int
}

// Mono, Stereo and Surround51 are the channel-count markers most processors
// in this repository use; a processor author may define additional marker
// types for other channel layouts.
type (
	Mono       struct{}
	Stereo     struct{}
	Surround51 struct{}
)

func (Mono) Channels() int       { return 1 }
func (Stereo) Channels() int     { return 2 }
func (Surround51) Channels() int { return 6 }

// Tick is the rarely-used clock fan-out message: most processors derive
// timing from the frames they already produce, but a processor can
// explicitly request a Tick source when it needs a clock signal decoupled
// from any particular frame stream.
type Tick struct {
	TimestampNS int64
	FrameNumber uint64
	ClockID     string
}
