package compiler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tatolab/streamlib/internal/clock"
	"github.com/tatolab/streamlib/internal/eventbus"
	"github.com/tatolab/streamlib/internal/ids"
	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/pkg/processors/video"
)

// testSource is a minimal loop-mode source producing incrementing ints.
type testSource struct {
	out      *link.StreamOutput[int]
	produced atomic.Int64
}

func newTestSource(any) (processor.Element, error) {
	return &testSource{out: link.NewStreamOutput[int]("out", 4)}, nil
}

func (s *testSource) Name() string                      { return "test.source" }
func (s *testSource) ElementType() processor.ElementType { return processor.ElementSource }
func (s *testSource) Setup(ctx context.Context) error    { return nil }
func (s *testSource) Start(ctx context.Context) error    { return nil }
func (s *testSource) Stop(ctx context.Context) error     { return nil }
func (s *testSource) Teardown(ctx context.Context) error { return nil }
func (s *testSource) Shutdown(ctx context.Context) error { return nil }
func (s *testSource) InputPorts() []link.InputPort       { return nil }
func (s *testSource) OutputPorts() []link.OutputPort     { return []link.OutputPort{s.out} }
func (s *testSource) Generate(ctx context.Context) error {
	n := s.produced.Add(1)
	s.out.Write(int(n))
	return nil
}
func (s *testSource) ClockSyncPoint() int64    { return int64(5 * time.Millisecond) }
func (s *testSource) ProvideClock() clock.Clock { return nil }
func (s *testSource) SchedulingMode() processor.SchedulingMode { return processor.ModeLoop }

// testSink is a minimal reactive sink counting received frames.
type testSink struct {
	in       *link.StreamInput[int]
	received atomic.Int64
}

func newTestSink(any) (processor.Element, error) {
	return &testSink{in: link.NewStreamInput[int]("in")}, nil
}

func (s *testSink) Name() string                      { return "test.sink" }
func (s *testSink) ElementType() processor.ElementType { return processor.ElementSink }
func (s *testSink) Setup(ctx context.Context) error    { return nil }
func (s *testSink) Start(ctx context.Context) error    { return nil }
func (s *testSink) Stop(ctx context.Context) error     { return nil }
func (s *testSink) Teardown(ctx context.Context) error { return nil }
func (s *testSink) Shutdown(ctx context.Context) error { return nil }
func (s *testSink) InputPorts() []link.InputPort       { return []link.InputPort{s.in} }
func (s *testSink) OutputPorts() []link.OutputPort     { return nil }
func (s *testSink) Render(ctx context.Context, frame any) error {
	if s.in.HasData() {
		if _, ok := s.in.ReadLatest(); ok {
			s.received.Add(1)
		}
	}
	return nil
}
func (s *testSink) AcceptData(frame any)                          {}
func (s *testSink) SchedulingMode() processor.SchedulingMode      { return processor.ModeReactive }

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register("test.source", registry.Descriptor{
		OutputPorts:  []registry.PortSchema{{Name: "out", TypeName: "int"}},
		ConfigSample: struct{}{},
	}, newTestSource)
	reg.Register("test.sink", registry.Descriptor{
		InputPorts:   []registry.PortSchema{{Name: "in", TypeName: "int"}},
		ConfigSample: struct{}{},
	}, newTestSink)
	return reg
}

func TestCompiler_CommitCreatesWiresAndStarts(t *testing.T) {
	reg := newTestRegistry()
	bus := eventbus.New()
	sel := clock.NewSelector()
	c := New(reg, bus, sel, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var srcID, sinkID ids.ID
	tx := c.Scope(func(s *Scope) {
		s.AddProcessor("test.source", map[string]any{})
		s.AddProcessor("test.sink", map[string]any{})
	})
	if err := c.Commit(ctx, tx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	nodeIDs := c.Graph().Processors(nil)
	if len(nodeIDs) != 2 {
		t.Fatalf("Processors() = %v, want 2 entries", nodeIDs)
	}
	for _, id := range nodeIDs {
		node, _ := c.Graph().Processor(id)
		if node.ProcessorType == "test.source" {
			srcID = id
		} else {
			sinkID = id
		}
		if node.State.State != processor.StateRunning {
			t.Fatalf("processor %s State = %v, want StateRunning", id, node.State.State)
		}
	}

	linkTx := c.Scope(func(s *Scope) {
		s.AddLink(srcID, "out", sinkID, "in", 4)
	})
	if err := c.Commit(ctx, linkTx); err != nil {
		t.Fatalf("Commit(link) error = %v", err)
	}

	links := c.Graph().Links(nil)
	if len(links) != 1 {
		t.Fatalf("Links() = %v, want 1 entry", links)
	}

	// Give the source loop and sink handler a moment to exchange frames;
	// this exercises the full Wire→Start dispatch path end to end.
	time.Sleep(100 * time.Millisecond)
}

// TestCompiler_WirePhaseSeesPortsAllocatedAtConstruction is spec.md §8
// scenario 2: a camera and a display already exist, and one transaction
// both inserts a new Grayscale transform and wires both of its ports. It
// drives the compiler's unexported phases directly (this test lives in
// package compiler) so the wire phase runs against a processor whose id
// was assigned moments earlier in the same phase 1 — exactly the ordering
// that used to reach a nil-pointer receiver via findInput/findOutput
// before ports moved from Setup to construction.
func TestCompiler_WirePhaseSeesPortsAllocatedAtConstruction(t *testing.T) {
	reg := registry.Default()
	bus := eventbus.New()
	sel := clock.NewSelector()
	c := New(reg, bus, sel, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cameraOp := &AddProcessorOp{ProcessorType: video.PatternSourceType, Config: map[string]any{}}
	displayOp := &AddProcessorOp{ProcessorType: video.NullDisplayType, Config: map[string]any{}}
	if err := c.phase1Create(ctx, []*AddProcessorOp{cameraOp, displayOp}); err != nil {
		t.Fatalf("phase1Create(camera, display) error = %v", err)
	}
	if err := c.phase3Setup(ctx, []*AddProcessorOp{cameraOp, displayOp}); err != nil {
		t.Fatalf("phase3Setup(camera, display) error = %v", err)
	}
	if err := c.phase4Start(ctx, []*AddProcessorOp{cameraOp, displayOp}); err != nil {
		t.Fatalf("phase4Start(camera, display) error = %v", err)
	}
	cameraID, displayID := cameraOp.assignedID, displayOp.assignedID

	grayscaleOp := &AddProcessorOp{ProcessorType: video.GrayscaleType, Config: map[string]any{}}
	if err := c.phase1Create(ctx, []*AddProcessorOp{grayscaleOp}); err != nil {
		t.Fatalf("phase1Create(grayscale) error = %v", err)
	}
	grayscaleID := grayscaleOp.assignedID

	cameraToGrayscale := &AddLinkOp{FromProcessor: cameraID, FromPort: "video_out", ToProcessor: grayscaleID, ToPort: "video_in", Capacity: 4}
	grayscaleToDisplay := &AddLinkOp{FromProcessor: grayscaleID, FromPort: "video_out", ToProcessor: displayID, ToPort: "video_in", Capacity: 4}
	// This is the regression check: phase 2 (wire) runs here while
	// grayscale has not yet gone through phase 3 (setup) in this
	// transaction, so its ports must already be non-nil.
	if err := c.phase2Wire(ctx, []*AddLinkOp{cameraToGrayscale, grayscaleToDisplay}); err != nil {
		t.Fatalf("phase2Wire(camera->grayscale->display) error = %v", err)
	}

	if err := c.phase3Setup(ctx, []*AddProcessorOp{grayscaleOp}); err != nil {
		t.Fatalf("phase3Setup(grayscale) error = %v", err)
	}
	if err := c.phase4Start(ctx, []*AddProcessorOp{grayscaleOp}); err != nil {
		t.Fatalf("phase4Start(grayscale) error = %v", err)
	}

	links := c.Graph().Links(nil)
	if len(links) != 2 {
		t.Fatalf("Links() = %v, want 2 entries", links)
	}
}
