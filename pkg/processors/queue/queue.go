// Package queue implements the explicit "queue/rechunker" transform
// spec.md §4.2 calls for as the safety valve transforms that must not drop
// frames (encoders, writers) interpose in front of: a larger buffer with a
// documented lossy-vs-lossless setting, standing between a real-time
// drop-oldest link and a downstream consumer that cannot tolerate loss.
package queue

import (
	"context"
	"fmt"

	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
)

// TypeName is the prefix of this processor's registry key; the registered
// instantiation is TypeName+".any".
const TypeName = "streamlib.util.queue"

// Config controls the queue's capacity and drop policy.
type Config struct {
	// Capacity sizes this queue's output ring buffer. The queue keeps no
	// other buffer of its own.
	Capacity int `mapstructure:"capacity"`
	// Lossless, when true, makes Transform drain with ReadAll and forward
	// every frame in order instead of only the latest — the core link's
	// drop-oldest policy still applies upstream of this processor, and the
	// output ring is drop-oldest too, so frames are lost if more than
	// Capacity accumulate before the downstream reads them. When false
	// (the default, matching every other core transform), only the latest
	// frame per wakeup is forwarded.
	Lossless bool `mapstructure:"lossless"`
}

// Transform is a generic passthrough queue over T, message-type-agnostic
// the way the compiler's Wire phase type-checks by TypeName string rather
// than a concrete Go type.
type Transform[T any] struct {
	cfg    Config
	input  *link.StreamInput[T]
	output *link.StreamOutput[T]
}

// New constructs a Transform[T] with the given config. Concrete message
// types instantiate this directly (e.g. queue.New[media.VideoFrame](cfg))
// rather than going through the untyped registry, since a generic type
// cannot be registered under one fixed config-to-instance constructor the
// way the other processors in this package are; callers that need the
// queue wired dynamically by processor-type name register a
// type-specialized wrapper once per concrete T, following the same
// pattern the mixer and tone packages use for their own single concrete
// message type.
func New[T any](cfg Config) *Transform[T] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 4
	}
	return &Transform[T]{
		cfg:    cfg,
		input:  link.NewStreamInput[T]("in"),
		output: link.NewStreamOutput[T]("out", cfg.Capacity),
	}
}

func (t *Transform[T]) Name() string                       { return "queue" }
func (t *Transform[T]) ElementType() processor.ElementType { return processor.ElementTransform }

func (t *Transform[T]) Setup(ctx context.Context) error    { return nil }
func (t *Transform[T]) Start(ctx context.Context) error    { return nil }
func (t *Transform[T]) Stop(ctx context.Context) error     { return nil }
func (t *Transform[T]) Teardown(ctx context.Context) error { return nil }
func (t *Transform[T]) Shutdown(ctx context.Context) error { return nil }

func (t *Transform[T]) InputPorts() []link.InputPort   { return []link.InputPort{t.input} }
func (t *Transform[T]) OutputPorts() []link.OutputPort { return []link.OutputPort{t.output} }

// Transform forwards whatever is ready on the input per Config.Lossless.
func (t *Transform[T]) Transform(ctx context.Context, event any) error {
	if !t.input.HasData() {
		return nil
	}
	if t.cfg.Lossless {
		for _, item := range t.input.ReadAll() {
			t.output.Write(item)
		}
		return nil
	}
	if item, ok := t.input.ReadLatest(); ok {
		t.output.Write(item)
	}
	return nil
}

// registryConfig is the config.Decode destination for the registry-backed
// variant below.
type registryConfig = Config

// VideoTransform is the registry-backed queue instance, Transform[any]:
// the compiler's registry only dispatches to processor types with a fixed
// config-to-Element constructor, so this one concrete instantiation is
// registered under TypeName+".any". No other instantiation is registered.
type VideoTransform = Transform[any]

func init() {
	registry.Default().Register(TypeName+".any", registry.Descriptor{
		InputPorts:   []registry.PortSchema{{Name: "in", TypeName: "any"}},
		OutputPorts:  []registry.PortSchema{{Name: "out", TypeName: "any"}},
		ConfigSample: registryConfig{},
	}, func(raw any) (processor.Element, error) {
		cfg, ok := raw.(registryConfig)
		if !ok {
			return nil, fmt.Errorf("queue: unexpected config type %T", raw)
		}
		return New[any](cfg), nil
	})
}
