// Package mixer implements an N-input audio mixer transform. It is the
// reference implementation for the core's multi-input peek-before-consume
// discipline (spec.md §4.2, §4.4.3, and the regression scenario in §8
// scenario 3): HasData is checked on every input before ReadLatest is
// called on any, so a skip never discards a frame that was ready when a
// different input was not.
package mixer

import (
	"context"
	"fmt"
	"time"

	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/pkg/media"
)

// TypeName is the stable registry key for this processor.
const TypeName = "streamlib.audio.mixer"

// Config declares how many inputs to create. Each input is named
// "in_<index>", 0-based, so a 3-input mixer exposes in_0, in_1, in_2.
type Config struct {
	NumInputs      int `mapstructure:"num_inputs"`
	InputCapacity  int `mapstructure:"input_capacity"`
	OutputCapacity int `mapstructure:"output_capacity"`
}

// Transform sums same-tick samples from every input and writes the mixed
// result to a single output.
type Transform struct {
	cfg    Config
	inputs []*link.StreamInput[media.AudioFrame[media.Mono]]
	output *link.StreamOutput[media.AudioFrame[media.Mono]]
	frame  uint64
}

// FromConfig constructs a Transform with cfg.NumInputs input ports.
func FromConfig(cfg Config) (*Transform, error) {
	if cfg.NumInputs < 1 {
		cfg.NumInputs = 1
	}
	if cfg.InputCapacity <= 0 {
		cfg.InputCapacity = 4
	}
	if cfg.OutputCapacity <= 0 {
		cfg.OutputCapacity = 4
	}
	t := &Transform{cfg: cfg}
	t.inputs = make([]*link.StreamInput[media.AudioFrame[media.Mono]], cfg.NumInputs)
	for i := range t.inputs {
		t.inputs[i] = link.NewStreamInput[media.AudioFrame[media.Mono]](fmt.Sprintf("in_%d", i))
	}
	t.output = link.NewStreamOutput[media.AudioFrame[media.Mono]]("audio_out", cfg.OutputCapacity)
	return t, nil
}

func init() {
	registry.Default().Register(TypeName, registry.Descriptor{
		OutputPorts: []registry.PortSchema{{Name: "audio_out", TypeName: "media.AudioFrame[media.Mono]"}},
		ConfigSample: Config{},
	}, func(raw any) (processor.Element, error) {
		cfg, ok := raw.(Config)
		if !ok {
			return nil, fmt.Errorf("mixer: unexpected config type %T", raw)
		}
		return FromConfig(cfg)
	})
}

func (t *Transform) Name() string                       { return fmt.Sprintf("mixer:%d-in", t.cfg.NumInputs) }
func (t *Transform) ElementType() processor.ElementType { return processor.ElementTransform }

func (t *Transform) Setup(ctx context.Context) error    { return nil }
func (t *Transform) Start(ctx context.Context) error    { return nil }
func (t *Transform) Stop(ctx context.Context) error     { return nil }
func (t *Transform) Teardown(ctx context.Context) error { return nil }
func (t *Transform) Shutdown(ctx context.Context) error { return nil }

func (t *Transform) InputPorts() []link.InputPort {
	ports := make([]link.InputPort, len(t.inputs))
	for i, in := range t.inputs {
		ports[i] = in
	}
	return ports
}

func (t *Transform) OutputPorts() []link.OutputPort { return []link.OutputPort{t.output} }

// Transform is invoked once per wakeup. Per the peek-before-consume
// discipline it checks HasData on every input first; if any input is not
// yet ready it returns without consuming anything, so a later wakeup that
// completes the set still finds every earlier input's frame intact.
func (t *Transform) Transform(ctx context.Context, event any) error {
	for _, in := range t.inputs {
		if !in.HasData() {
			return nil
		}
	}

	mixed := media.AudioFrame[media.Mono]{SampleRate: 0}
	var maxLen int
	frames := make([]media.AudioFrame[media.Mono], len(t.inputs))
	for i, in := range t.inputs {
		f, ok := in.ReadLatest()
		if !ok {
			// Can't happen given the HasData check above unless a
			// concurrent reader drained this port, which the single-
			// consumer discipline forbids; treat as a skipped tick.
			return nil
		}
		frames[i] = f
		if len(f.Samples) > maxLen {
			maxLen = len(f.Samples)
		}
		if mixed.SampleRate == 0 {
			mixed.SampleRate = f.SampleRate
		}
	}

	mixed.Samples = make([]float32, maxLen)
	for _, f := range frames {
		for i, s := range f.Samples {
			mixed.Samples[i] += s
		}
	}
	t.frame++
	mixed.TimestampNS = time.Now().UnixNano()
	mixed.FrameIndex = t.frame
	t.output.Write(mixed)
	return nil
}
