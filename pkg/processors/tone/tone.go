// Package tone implements a synthetic sine-wave audio source. It has no
// hardware dependency: it exercises the Source/loop-mode scheduling path
// (spec.md §4.4.1) the same way tvarr's test fixtures generate
// synthetic IPTV streams instead of hitting real tuners. Registered under
// the processor type name "streamlib.tone.source".
package tone

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tatolab/streamlib/internal/clock"
	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/pkg/media"
)

// TypeName is the stable registry key for this processor.
const TypeName = "streamlib.tone.source"

// Config is the hand-written equivalent of what the derive macro would
// generate from a struct's plain (non-port) fields.
type Config struct {
	// FrequencyHZ is the sine wave's frequency.
	FrequencyHZ float64 `mapstructure:"frequency_hz"`
	// SampleRate is the output sample rate in Hz.
	SampleRate int `mapstructure:"sample_rate"`
	// BufferSize is the number of per-channel samples produced per Generate
	// call, and therefore the nominal inter-frame interval.
	BufferSize int `mapstructure:"buffer_size"`
	// OutputCapacity sets the output port's ring buffer capacity.
	OutputCapacity int `mapstructure:"output_capacity"`
}

// Source generates a mono sine wave at Config.FrequencyHZ.
type Source struct {
	cfg    Config
	phase  float64
	output *link.StreamOutput[media.AudioFrame[media.Mono]]
	frame  uint64

	// freqMu guards frequencyHZ, the one field ApplyConfig allows a hot
	// update to change; the generate loop reads it once per call on its own
	// goroutine while ApplyConfig writes from whichever goroutine runs the
	// compiler's config-update phase.
	freqMu      sync.Mutex
	frequencyHZ float64
}

// FromConfig is the constructor the registry's Constructor adapter calls.
func FromConfig(cfg Config) (*Source, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 2048
	}
	if cfg.OutputCapacity <= 0 {
		cfg.OutputCapacity = 4
	}
	return &Source{
		cfg:         cfg,
		frequencyHZ: cfg.FrequencyHZ,
		output:      link.NewStreamOutput[media.AudioFrame[media.Mono]]("audio_out", cfg.OutputCapacity),
	}, nil
}

// ApplyConfig hot-updates the generated tone's frequency. SampleRate,
// BufferSize, and OutputCapacity are fixed for the processor's lifetime —
// changing them would require reallocating the output port and the
// generate buffer, which ApplyConfig's single-value contract has no phase
// to do safely outside Setup.
func (s *Source) ApplyConfig(cfg any) error {
	c, ok := cfg.(Config)
	if !ok {
		return fmt.Errorf("tone: unexpected config type %T", cfg)
	}
	s.freqMu.Lock()
	s.frequencyHZ = c.FrequencyHZ
	s.freqMu.Unlock()
	return nil
}

func init() {
	registry.Default().Register(TypeName, registry.Descriptor{
		OutputPorts: []registry.PortSchema{
			{Name: "audio_out", TypeName: "media.AudioFrame[media.Mono]"},
		},
		ConfigSample: Config{},
	}, func(raw any) (processor.Element, error) {
		cfg, ok := raw.(Config)
		if !ok {
			return nil, fmt.Errorf("tone: unexpected config type %T", raw)
		}
		return FromConfig(cfg)
	})
}

func (s *Source) Name() string { return fmt.Sprintf("tone:%.2fhz", s.cfg.FrequencyHZ) }

func (s *Source) ElementType() processor.ElementType { return processor.ElementSource }

// Setup allocates no further resources; the output port is built at
// construction (FromConfig) so a single commit can both add this
// processor and wire its port.
func (s *Source) Setup(ctx context.Context) error { return nil }

func (s *Source) Start(ctx context.Context) error    { return nil }
func (s *Source) Stop(ctx context.Context) error     { return nil }
func (s *Source) Teardown(ctx context.Context) error { return nil }
func (s *Source) Shutdown(ctx context.Context) error { return nil }

func (s *Source) InputPorts() []link.InputPort   { return nil }
func (s *Source) OutputPorts() []link.OutputPort { return []link.OutputPort{s.output} }

// Generate fills one buffer of BufferSize samples at FrequencyHZ and
// writes it to audio_out.
func (s *Source) Generate(ctx context.Context) error {
	s.freqMu.Lock()
	freq := s.frequencyHZ
	s.freqMu.Unlock()

	samples := make([]float32, s.cfg.BufferSize)
	angularStep := 2 * math.Pi * freq / float64(s.cfg.SampleRate)
	for i := range samples {
		samples[i] = float32(math.Sin(s.phase))
		s.phase += angularStep
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	s.frame++
	s.output.Write(media.AudioFrame[media.Mono]{
		Samples:     samples,
		SampleRate:  s.cfg.SampleRate,
		TimestampNS: time.Now().UnixNano(),
		FrameIndex:  s.frame,
	})
	return nil
}

// ClockSyncPoint is BufferSize/SampleRate seconds expressed as nanoseconds.
func (s *Source) ClockSyncPoint() int64 {
	return int64(float64(s.cfg.BufferSize) / float64(s.cfg.SampleRate) * 1e9)
}

// ProvideClock returns nil: a synthetic tone generator has no hardware
// sample clock to offer, so unless another source offers one the pipeline
// clock selector falls back to its software clock.
func (s *Source) ProvideClock() clock.Clock { return nil }

func (s *Source) SchedulingMode() processor.SchedulingMode { return processor.ModeLoop }
