package proxy

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/tatolab/streamlib/internal/clock"
	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/internal/runtime"
)

type proxyTestSource struct {
	out *link.StreamOutput[int]
}

func newProxyTestSource(any) (processor.Element, error) {
	return &proxyTestSource{out: link.NewStreamOutput[int]("out", 4)}, nil
}

func (s *proxyTestSource) Name() string                      { return "proxy.source" }
func (s *proxyTestSource) ElementType() processor.ElementType { return processor.ElementSource }
func (s *proxyTestSource) Setup(ctx context.Context) error    { return nil }
func (s *proxyTestSource) Start(ctx context.Context) error    { return nil }
func (s *proxyTestSource) Stop(ctx context.Context) error     { return nil }
func (s *proxyTestSource) Teardown(ctx context.Context) error { return nil }
func (s *proxyTestSource) Shutdown(ctx context.Context) error { return nil }
func (s *proxyTestSource) InputPorts() []link.InputPort       { return nil }
func (s *proxyTestSource) OutputPorts() []link.OutputPort     { return []link.OutputPort{s.out} }
func (s *proxyTestSource) Generate(ctx context.Context) error {
	s.out.Write(1)
	return nil
}
func (s *proxyTestSource) ClockSyncPoint() int64               { return int64(5 * time.Millisecond) }
func (s *proxyTestSource) ProvideClock() clock.Clock            { return nil }
func (s *proxyTestSource) SchedulingMode() processor.SchedulingMode { return processor.ModeLoop }

func newProxyTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register("proxy.source", registry.Descriptor{
		OutputPorts:  []registry.PortSchema{{Name: "out", TypeName: "int"}},
		ConfigSample: struct{}{},
	}, newProxyTestSource)
	return reg
}

func TestRuntimeProxy_AddProcessorStartStop(t *testing.T) {
	reg := newProxyTestRegistry()
	rt := runtime.New(reg, slog.Default())
	p := New(8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Run(ctx, rt, p)

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	state, err := p.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state != runtime.StatusStarted {
		t.Fatalf("GetState() = %v, want StatusStarted", state)
	}

	id, err := p.AddProcessor(ctx, "proxy.source", map[string]any{})
	if err != nil {
		t.Fatalf("AddProcessor() error = %v", err)
	}
	if id == "" {
		t.Fatal("AddProcessor() returned empty id")
	}

	if err := p.RemoveProcessor(ctx, id); err != nil {
		t.Fatalf("RemoveProcessor() error = %v", err)
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestRuntimeProxy_PollCommandsWithoutDedicatedPump(t *testing.T) {
	reg := newProxyTestRegistry()
	rt := runtime.New(reg, slog.Default())
	p := New(8)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		state, err := p.GetState(ctx)
		if err != nil {
			t.Errorf("GetState() error = %v", err)
		}
		if state != runtime.StatusInitial {
			t.Errorf("GetState() = %v, want StatusInitial", state)
		}
		close(done)
	}()

	// Give the goroutine above time to enqueue its command, then drain it
	// manually rather than running a dedicated pump goroutine.
	time.Sleep(20 * time.Millisecond)
	PollCommands(ctx, rt, p)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for polled command to complete")
	}
}

func TestRuntimeProxy_ContextCancelUnblocksSend(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.AddProcessor(ctx, "unused", nil); err == nil {
		t.Fatal("expected error from AddProcessor after context cancellation")
	}
}
