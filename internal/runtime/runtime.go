// Package runtime owns the Compiler and exposes the synchronous methods
// the proxy facade bridges to async callers. It mirrors the internal
// service layer's shape elsewhere in this codebase: synchronous methods,
// no channels, wrapped by an async-facing facade built with channels in
// internal/proxy.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tatolab/streamlib/internal/clock"
	"github.com/tatolab/streamlib/internal/compiler"
	"github.com/tatolab/streamlib/internal/eventbus"
	"github.com/tatolab/streamlib/internal/ids"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/internal/streamerr"
)

// Status is the coarse lifecycle state of the Runtime itself, distinct
// from any individual processor's State.
type Status int32

const (
	StatusInitial Status = iota
	StatusStarted
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusStarted:
		return "started"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Runtime owns the Compiler, the clock selector slot, and the process-wide
// event bus. All of its methods are synchronous and safe to call from any
// goroutine; RuntimeProxy is the async channel facade built on top.
type Runtime struct {
	compiler *compiler.Compiler
	bus      *eventbus.Bus
	selector *clock.Selector
	log      *slog.Logger
	status   atomic.Int32
}

// New creates a Runtime in StatusInitial, wiring reg into a fresh
// Compiler, event bus, and clock selector.
func New(reg *registry.Registry, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	bus := eventbus.New()
	sel := clock.NewSelector()
	return &Runtime{
		compiler: compiler.New(reg, bus, sel, log),
		bus:      bus,
		selector: sel,
		log:      log,
	}
}

// Start transitions the runtime to Started. Idempotent.
func (r *Runtime) Start(ctx context.Context) error {
	r.status.Store(int32(StatusStarted))
	r.bus.Publish(eventbus.TopicGlobal, eventbus.Event{Kind: eventbus.EventProcessorStateChanged, Reason: "runtime started"})
	return nil
}

// Stop transitions the runtime to Stopped and removes every processor,
// running each one's teardown within the compiler's stop deadline.
func (r *Runtime) Stop(ctx context.Context) error {
	nodeIDs := r.compiler.Graph().Processors(nil)
	if len(nodeIDs) > 0 {
		if err := r.compiler.CommitScope(ctx, func(s *compiler.Scope) {
			for _, linkID := range r.compiler.Graph().Links(nil) {
				s.RemoveLink(linkID)
			}
			for _, id := range nodeIDs {
				s.RemoveProcessor(id)
			}
		}); err != nil {
			return err
		}
	}
	r.status.Store(int32(StatusStopped))
	r.bus.Publish(eventbus.TopicGlobal, eventbus.Event{Kind: eventbus.EventProcessorStateChanged, Reason: "runtime stopped"})
	return nil
}

// GetState returns the runtime's current Status.
func (r *Runtime) GetState() Status {
	return Status(r.status.Load())
}

// AddProcessor stages and commits a single AddProcessor operation,
// returning the new processor's id.
func (r *Runtime) AddProcessor(ctx context.Context, processorType string, cfg map[string]any) (ids.ID, error) {
	var op *compiler.AddProcessorOp
	tx := r.compiler.Scope(func(s *compiler.Scope) {
		op = s.AddProcessor(processorType, cfg)
	})
	if err := r.compiler.Commit(ctx, tx); err != nil {
		return "", err
	}
	assigned := op.AssignedID()
	if assigned == "" {
		return "", &streamerr.Error{Kind: streamerr.KindInternal, Op: "runtime.AddProcessor", Err: fmt.Errorf("processor was not assigned an id after commit")}
	}
	r.bus.Publish(eventbus.TopicGlobal, eventbus.Event{Kind: eventbus.EventProcessorAdded, ProcessorID: assigned})
	return assigned, nil
}

// RemoveProcessor stages and commits removal of id.
func (r *Runtime) RemoveProcessor(ctx context.Context, id ids.ID) error {
	tx := r.compiler.Scope(func(s *compiler.Scope) {
		s.RemoveProcessor(id)
	})
	return r.compiler.Commit(ctx, tx)
}

// Connect stages and commits a single AddLink operation, returning the new
// link's id.
func (r *Runtime) Connect(ctx context.Context, fromProcessor ids.ID, fromPort string, toProcessor ids.ID, toPort string, capacity int) (ids.ID, error) {
	var op *compiler.AddLinkOp
	tx := r.compiler.Scope(func(s *compiler.Scope) {
		op = s.AddLink(fromProcessor, fromPort, toProcessor, toPort, capacity)
	})
	if err := r.compiler.Commit(ctx, tx); err != nil {
		return "", err
	}
	assigned := op.AssignedID()
	if assigned == "" {
		return "", &streamerr.Error{Kind: streamerr.KindInternal, Op: "runtime.Connect", Err: fmt.Errorf("link was not assigned an id after commit")}
	}
	r.bus.Publish(eventbus.TopicGlobal, eventbus.Event{Kind: eventbus.EventLinkAdded, LinkID: assigned})
	return assigned, nil
}

// Disconnect stages and commits removal of a link.
func (r *Runtime) Disconnect(ctx context.Context, linkID ids.ID) error {
	tx := r.compiler.Scope(func(s *compiler.Scope) {
		s.RemoveLink(linkID)
	})
	return r.compiler.Commit(ctx, tx)
}

// UpdateConfig stages and commits a hot config update on an existing
// processor.
func (r *Runtime) UpdateConfig(ctx context.Context, id ids.ID, cfg map[string]any) error {
	tx := r.compiler.Scope(func(s *compiler.Scope) {
		s.UpdateConfig(id, cfg)
	})
	return r.compiler.Commit(ctx, tx)
}

// SubscribeEvents returns a subscription id and a receive-only channel for
// the given topic (eventbus.TopicGlobal or eventbus.TopicProcessor(id)).
func (r *Runtime) SubscribeEvents(ctx context.Context, topic string) (string, <-chan eventbus.Event) {
	return r.bus.Subscribe(ctx, topic)
}

// Describe returns a snapshot of a processor's observable state, for
// introspection endpoints. It reads through the compiler's own read-locked
// accessor so it cannot race with a concurrent Commit phase's writes to the
// same node.
func (r *Runtime) Describe(id ids.ID) (processor.State, *processor.MetricsComponent, error) {
	return r.compiler.Describe(id)
}

// Compiler exposes the underlying compiler for callers (the proxy,
// tests) that need direct graph access beyond the synchronous methods
// above.
func (r *Runtime) Compiler() *compiler.Compiler {
	return r.compiler
}
