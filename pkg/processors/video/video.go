// Package video provides synthetic stand-ins for the platform camera and
// display collaborators spec.md §1 puts out of scope: PatternSource and
// NullDisplay speak only the core VideoFrame contract (an opaque surface
// handle, never real pixels), enough to drive the pipeline-mutation
// scenario (spec.md §8 scenario 2: Camera -> Display, then Camera ->
// Grayscale -> Display) without any GPU or capture dependency.
package video

import (
	"context"
	"fmt"
	"time"

	"github.com/tatolab/streamlib/internal/clock"
	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/internal/workerpool"
	"github.com/tatolab/streamlib/pkg/media"
)

// PatternSourceType is the registry key for PatternSource.
const PatternSourceType = "streamlib.video.pattern_source"

// GrayscaleType is the registry key for Grayscale.
const GrayscaleType = "streamlib.video.grayscale"

// NullDisplayType is the registry key for NullDisplay.
const NullDisplayType = "streamlib.video.null_display"

// PatternSourceConfig configures the synthetic video source.
type PatternSourceConfig struct {
	Width          int     `mapstructure:"width"`
	Height         int     `mapstructure:"height"`
	FrameRateHZ    float64 `mapstructure:"frame_rate_hz"`
	OutputCapacity int     `mapstructure:"output_capacity"`
}

// PatternSource generates VideoFrame values carrying an incrementing
// synthetic surface handle; it never touches pixels, matching the core's
// treatment of VideoFrame as an opaque GPU texture reference.
type PatternSource struct {
	cfg     PatternSourceConfig
	output  *link.StreamOutput[media.VideoFrame]
	surface uint64
}

func FromPatternConfig(cfg PatternSourceConfig) (*PatternSource, error) {
	if cfg.Width <= 0 {
		cfg.Width = 1920
	}
	if cfg.Height <= 0 {
		cfg.Height = 1080
	}
	if cfg.FrameRateHZ <= 0 {
		cfg.FrameRateHZ = 30
	}
	if cfg.OutputCapacity <= 0 {
		cfg.OutputCapacity = 4
	}
	return &PatternSource{
		cfg:    cfg,
		output: link.NewStreamOutput[media.VideoFrame]("video_out", cfg.OutputCapacity),
	}, nil
}

func init() {
	registry.Default().Register(PatternSourceType, registry.Descriptor{
		OutputPorts:  []registry.PortSchema{{Name: "video_out", TypeName: "media.VideoFrame"}},
		ConfigSample: PatternSourceConfig{},
	}, func(raw any) (processor.Element, error) {
		cfg, ok := raw.(PatternSourceConfig)
		if !ok {
			return nil, fmt.Errorf("video: unexpected config type %T", raw)
		}
		return FromPatternConfig(cfg)
	})
}

func (s *PatternSource) Name() string                       { return "pattern_source" }
func (s *PatternSource) ElementType() processor.ElementType { return processor.ElementSource }

// Setup allocates no further resources; the output port is built at
// construction (FromPatternConfig) so a single commit can both add this
// processor and wire its port.
func (s *PatternSource) Setup(ctx context.Context) error { return nil }
func (s *PatternSource) Start(ctx context.Context) error    { return nil }
func (s *PatternSource) Stop(ctx context.Context) error     { return nil }
func (s *PatternSource) Teardown(ctx context.Context) error { return nil }
func (s *PatternSource) Shutdown(ctx context.Context) error { return nil }

func (s *PatternSource) InputPorts() []link.InputPort   { return nil }
func (s *PatternSource) OutputPorts() []link.OutputPort { return []link.OutputPort{s.output} }

func (s *PatternSource) Generate(ctx context.Context) error {
	s.surface++
	s.output.Write(media.VideoFrame{
		SurfaceID:   s.surface,
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
		Format:      media.PixelFormatRGBA8,
		TimestampNS: time.Now().UnixNano(),
		FrameIndex:  s.surface,
	})
	return nil
}

func (s *PatternSource) ClockSyncPoint() int64 {
	return int64(1e9 / s.cfg.FrameRateHZ)
}

func (s *PatternSource) ProvideClock() clock.Clock { return nil }

func (s *PatternSource) SchedulingMode() processor.SchedulingMode { return processor.ModeLoop }

// Grayscale retags a VideoFrame's pixel format without inspecting pixels —
// the core never decodes video, so "converting to grayscale" here means
// exactly what it can mean structurally: annotating the frame for a
// downstream GPU shader (explicitly out of scope per spec.md §1) to
// actually desaturate. It declares itself a CPU-bound transform
// (spec.md §5) and runs its per-frame retagging work through its own
// workerpool.Pool sized to the host's logical core count, standing in for
// the real per-pixel desaturation work a production implementation would
// offload the same way.
type Grayscale struct {
	input  *link.StreamInput[media.VideoFrame]
	output *link.StreamOutput[media.VideoFrame]
	pool   *workerpool.Pool
}

func NewGrayscale() *Grayscale {
	return &Grayscale{
		input:  link.NewStreamInput[media.VideoFrame]("video_in"),
		output: link.NewStreamOutput[media.VideoFrame]("video_out", 4),
		pool:   workerpool.New(workerpool.Config{}),
	}
}

func init() {
	registry.Default().Register(GrayscaleType, registry.Descriptor{
		InputPorts:   []registry.PortSchema{{Name: "video_in", TypeName: "media.VideoFrame"}},
		OutputPorts:  []registry.PortSchema{{Name: "video_out", TypeName: "media.VideoFrame"}},
		ConfigSample: struct{}{},
	}, func(raw any) (processor.Element, error) {
		return NewGrayscale(), nil
	})
}

func (g *Grayscale) Name() string                       { return "grayscale" }
func (g *Grayscale) ElementType() processor.ElementType { return processor.ElementTransform }

// Setup allocates no further resources; ports and the worker pool are
// built at construction (NewGrayscale) so a single commit can both add
// this processor and wire its ports.
func (g *Grayscale) Setup(ctx context.Context) error { return nil }
func (g *Grayscale) Start(ctx context.Context) error { return nil }
func (g *Grayscale) Stop(ctx context.Context) error  { return nil }
func (g *Grayscale) Teardown(ctx context.Context) error {
	if g.pool != nil {
		g.pool.Close()
	}
	return nil
}
func (g *Grayscale) Shutdown(ctx context.Context) error { return nil }

func (g *Grayscale) InputPorts() []link.InputPort   { return []link.InputPort{g.input} }
func (g *Grayscale) OutputPorts() []link.OutputPort { return []link.OutputPort{g.output} }

// Transform retags the latest frame's pixel format on a pooled goroutine,
// bounding this instance's concurrent CPU-bound work to the host's
// logical core count, then blocks for that
// single unit of work to finish before returning — Transform is still
// invoked exactly once per wakeup and must not return before its output
// is written.
func (g *Grayscale) Transform(ctx context.Context, event any) error {
	f, ok := g.input.ReadLatest()
	if !ok {
		return nil
	}

	done := make(chan error, 1)
	if err := g.pool.Submit(ctx, func(ctx context.Context) {
		f.Format = media.PixelFormatI420 // stand-in for "desaturated" tagging
		done <- nil
	}); err != nil {
		return err
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	g.output.Write(f)
	return nil
}

// NullDisplay is a reactive sink that discards frames, standing in for a
// real display surface.
type NullDisplay struct {
	input   *link.StreamInput[media.VideoFrame]
	presented uint64
}

func NewNullDisplay() *NullDisplay {
	return &NullDisplay{input: link.NewStreamInput[media.VideoFrame]("video_in")}
}

func init() {
	registry.Default().Register(NullDisplayType, registry.Descriptor{
		InputPorts:   []registry.PortSchema{{Name: "video_in", TypeName: "media.VideoFrame"}},
		ConfigSample: struct{}{},
	}, func(raw any) (processor.Element, error) {
		return NewNullDisplay(), nil
	})
}

func (d *NullDisplay) Name() string                       { return "null_display" }
func (d *NullDisplay) ElementType() processor.ElementType { return processor.ElementSink }

// Setup allocates no further resources; the input port is built at
// construction (NewNullDisplay) so a single commit can both add this
// processor and wire its port.
func (d *NullDisplay) Setup(ctx context.Context) error    { return nil }
func (d *NullDisplay) Start(ctx context.Context) error    { return nil }
func (d *NullDisplay) Stop(ctx context.Context) error     { return nil }
func (d *NullDisplay) Teardown(ctx context.Context) error { return nil }
func (d *NullDisplay) Shutdown(ctx context.Context) error { return nil }

func (d *NullDisplay) InputPorts() []link.InputPort   { return []link.InputPort{d.input} }
func (d *NullDisplay) OutputPorts() []link.OutputPort { return nil }

func (d *NullDisplay) Render(ctx context.Context, frame any) error {
	if _, ok := d.input.ReadLatest(); ok {
		d.presented++
	}
	return nil
}

func (d *NullDisplay) AcceptData(frame any) {}

func (d *NullDisplay) SchedulingMode() processor.SchedulingMode { return processor.ModeReactive }

func (d *NullDisplay) Presented() uint64 { return d.presented }
