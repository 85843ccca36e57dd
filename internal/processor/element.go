// Package processor defines the base role every processing node implements
// and the specialized Source/Sink/Transform contracts layered on top of it.
// A processor instance is polymorphic over {Element, one-of(Source, Sink,
// Transform)}; the compiler and runtime dispatch to the right execution
// model by checking ElementType once per processor at start.
package processor

import (
	"context"

	"github.com/tatolab/streamlib/internal/clock"
	"github.com/tatolab/streamlib/internal/link"
)

// ElementType identifies which specialized role a processor implements.
type ElementType int

const (
	ElementSource ElementType = iota
	ElementSink
	ElementTransform
)

func (t ElementType) String() string {
	switch t {
	case ElementSource:
		return "source"
	case ElementSink:
		return "sink"
	case ElementTransform:
		return "transform"
	default:
		return "unknown"
	}
}

// Element is the base role every processor implements: identity, lifecycle
// control, and the port inventory the compiler's Wire phase consumes. Role
// interfaces (Source, Sink, Transform) are obtained by type-asserting an
// Element to the narrower interface.
type Element interface {
	// Name returns the processor's display name, distinct from its graph id.
	Name() string
	// ElementType reports which of Source, Sink, Transform this processor
	// implements, inspected once per processor at Start dispatch.
	ElementType() ElementType

	// Setup performs one-time resource acquisition. Runs before Start.
	// Buffers used on real-time paths must be pre-allocated here, never in
	// Generate/Render/Transform.
	Setup(ctx context.Context) error
	// Start transitions the processor into its scheduling mode (loop thread
	// spawn, callback registration, or reactive wakeup subscription).
	Start(ctx context.Context) error
	// Stop halts scheduling without releasing resources; a stopped
	// processor can be Started again.
	Stop(ctx context.Context) error
	// Teardown releases resources acquired in Setup. Must complete within
	// the runtime's stop deadline; the compiler stops waiting for a
	// Teardown that exceeds it and removes the processor anyway.
	Teardown(ctx context.Context) error
	// Shutdown is the terminal call after Teardown; once called the
	// instance must not be reused.
	Shutdown(ctx context.Context) error

	// InputPorts and OutputPorts enumerate the processor's declared ports,
	// used by the compiler's Wire phase and by metrics collection. A
	// processor's port set is fixed at construction, because the Wire
	// phase runs before Setup.
	InputPorts() []link.InputPort
	OutputPorts() []link.OutputPort
}

// ClockConsumer is implemented by processors that present frames against a
// pipeline clock (spec.md §4.3). The compiler installs the selected clock
// into every ClockConsumer immediately before Start, each commit in which
// the processor is (re)started, since the selector may only have settled
// on a non-software clock after this processor's own Setup ran.
type ClockConsumer interface {
	SetPipelineClock(c clock.Clock)
}

// ConfigUpdater is implemented by processors that accept a live config
// reload through Commit's UpdateConfig operation (spec.md §4.5: applied
// "by calling apply_config_json on the instance"). Processors that don't
// implement it simply keep running under their original config; only the
// graph's bookkeeping checksum advances.
type ConfigUpdater interface {
	ApplyConfig(cfg any) error
}

// SchedulingMode declares how a Source or Sink is driven; it is a static
// property of the processor type, never inferred at runtime.
type SchedulingMode int

const (
	// ModeLoop: the runtime spawns one dedicated goroutine per source.
	ModeLoop SchedulingMode = iota
	// ModeCallback: hardware drives the processor from its own callback
	// thread; the runtime never owns a loop for it.
	ModeCallback
	// ModeReactive: the processor wakes on its wakeup channel.
	ModeReactive
	// ModePull: application code explicitly drains (sinks only).
	ModePull
)

func (m SchedulingMode) String() string {
	switch m {
	case ModeLoop:
		return "loop"
	case ModeCallback:
		return "callback"
	case ModeReactive:
		return "reactive"
	case ModePull:
		return "pull"
	default:
		return "unknown"
	}
}

// Source produces frames on its own schedule.
type Source interface {
	Element
	// Generate produces one output frame and writes it to the source's
	// output ports. Errors are logged and retried at the next interval;
	// three consecutive failures escalate the processor to Failed (see
	// FailureTracker).
	Generate(ctx context.Context) error
	// ClockSyncPoint is the nominal inter-frame interval a loop-mode source
	// sleeps for between Generate calls.
	ClockSyncPoint() int64 // nanoseconds
	// ProvideClock optionally advertises a hardware clock this source can
	// drive the pipeline clock selector with. Returns nil if this source
	// has no clock to offer.
	ProvideClock() clock.Clock
	// SchedulingMode declares how this source is driven.
	SchedulingMode() SchedulingMode
}

// Sink consumes frames presented to it by upstream processors.
type Sink interface {
	Element
	// Render presents one input frame. Called by the runtime in reactive
	// and pull modes; callback-mode sinks instead drain their staging
	// buffer from AcceptData inside the hardware callback.
	Render(ctx context.Context, frame any) error
	// AcceptData is the fast-path handoff used by callback-driven sinks: it
	// queues frame into a staging buffer the hardware callback later
	// drains, without going through Render's full path.
	AcceptData(frame any)
	// SchedulingMode declares how this sink is driven.
	SchedulingMode() SchedulingMode
}

// Transform reacts to exactly one wakeup event per invocation. It is always
// reactive: no timer ticks, no clock awareness.
type Transform interface {
	Element
	// Transform is invoked once per wakeup event. Implementations that read
	// more than one input port must call HasData on every input before
	// ReadLatest/ReadAll on any (spec invariant: peek before consume).
	Transform(ctx context.Context, event any) error
}
