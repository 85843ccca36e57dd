// Package audiooutput implements a reactive, clock-gated audio sink. It has
// no real hardware backing it — in place of CoreAudio/ALSA/WASAPI (the
// platform collaborators spec.md §1 puts out of scope) this sink just
// drains frames and counts the ones it renders, enough to
// exercise the Sink/reactive scheduling path and the clock-gated render
// timing described in spec.md §4.4.2.
package audiooutput

import (
	"context"
	"fmt"
	"time"

	"github.com/tatolab/streamlib/internal/clock"
	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/pkg/media"
)

// TypeName is the stable registry key for this processor.
const TypeName = "streamlib.audio.output"

// Config holds the sink's tunables.
type Config struct {
	InputCapacity int `mapstructure:"input_capacity"`
}

// Sink renders frames by presentation timestamp against a pipeline clock.
// PipelineClock is installed by the compiler's Start phase via
// SetPipelineClock — it is not a port, so the Wire phase does not touch it.
type Sink struct {
	cfg            Config
	input          *link.StreamInput[media.AudioFrame[media.Mono]]
	pipelineClock  clock.Clock
	framesRendered uint64
	framesDropped  uint64
}

// FromConfig constructs a Sink.
func FromConfig(cfg Config) (*Sink, error) {
	if cfg.InputCapacity <= 0 {
		cfg.InputCapacity = 4
	}
	return &Sink{cfg: cfg, input: link.NewStreamInput[media.AudioFrame[media.Mono]]("audio_in")}, nil
}

func init() {
	registry.Default().Register(TypeName, registry.Descriptor{
		InputPorts:   []registry.PortSchema{{Name: "audio_in", TypeName: "media.AudioFrame[media.Mono]"}},
		ConfigSample: Config{},
	}, func(raw any) (processor.Element, error) {
		cfg, ok := raw.(Config)
		if !ok {
			return nil, fmt.Errorf("audiooutput: unexpected config type %T", raw)
		}
		return FromConfig(cfg)
	})
}

// SetPipelineClock installs the clock Render uses for presentation-time
// gating. Called by the compiler's Start phase immediately before Start,
// since the pipeline clock is a cross-cutting reference rather than a port.
func (s *Sink) SetPipelineClock(c clock.Clock) { s.pipelineClock = c }

func (s *Sink) Name() string                       { return "audiooutput" }
func (s *Sink) ElementType() processor.ElementType { return processor.ElementSink }

func (s *Sink) Setup(ctx context.Context) error    { return nil }
func (s *Sink) Start(ctx context.Context) error    { return nil }
func (s *Sink) Stop(ctx context.Context) error     { return nil }
func (s *Sink) Teardown(ctx context.Context) error { return nil }
func (s *Sink) Shutdown(ctx context.Context) error { return nil }

func (s *Sink) InputPorts() []link.InputPort   { return []link.InputPort{s.input} }
func (s *Sink) OutputPorts() []link.OutputPort { return nil }

// Render sleeps until frame.TimestampNS on the pipeline clock (never
// backwards) before counting the frame as rendered.
func (s *Sink) Render(ctx context.Context, frame any) error {
	f, ok := frame.(media.AudioFrame[media.Mono])
	if !ok {
		for {
			latest, ok := s.input.ReadLatest()
			if !ok {
				break
			}
			f = latest
		}
		if f.SampleRate == 0 {
			return nil
		}
	}
	if s.pipelineClock != nil {
		target := f.TimestampNS
		now := s.pipelineClock.NowNS()
		if wait := time.Duration(target - now); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	s.framesRendered++
	return nil
}

// AcceptData is the callback-mode fast path; this sink is reactive, not
// callback-driven, so it is unused but kept to satisfy the Sink contract.
func (s *Sink) AcceptData(frame any) {}

func (s *Sink) SchedulingMode() processor.SchedulingMode { return processor.ModeReactive }

// FramesRendered reports the cumulative count, for metrics/test assertions.
func (s *Sink) FramesRendered() uint64 { return s.framesRendered }
