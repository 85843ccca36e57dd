package mixer

import (
	"context"
	"testing"

	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/pkg/media"
)

// setInput reaches past the port-layer indirection to hand a Transform's
// test a bound, writable producer side for one input — equivalent to what
// the compiler's Wire phase does via Bind/SetWakeup, but without needing a
// full graph+compiler harness for a package-local unit test.
func setInput(t *testing.T, tr *Transform, i int, ring *link.Ring[media.AudioFrame[media.Mono]]) {
	t.Helper()
	if err := tr.inputs[i].Bind(ring); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
}

// TestMixer_SkipPreservesFrames is the regression scenario from spec.md §8
// scenario 3: writing to only one of three inputs must not be consumed
// until every input has data, so an input that was ready early is never
// silently dropped by a premature ReadLatest.
func TestMixer_SkipPreservesFrames(t *testing.T) {
	tr, err := FromConfig(Config{NumInputs: 3})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	rings := make([]*link.Ring[media.AudioFrame[media.Mono]], 3)
	for i := range rings {
		rings[i] = link.NewRing[media.AudioFrame[media.Mono]](4)
		setInput(t, tr, i, rings[i])
	}

	rings[0].Write(media.AudioFrame[media.Mono]{Samples: []float32{1, 2, 3}, SampleRate: 48000})

	if err := tr.Transform(context.Background(), nil); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	if !tr.inputs[0].HasData() {
		t.Fatal("input 0's frame was consumed despite inputs 1 and 2 being empty")
	}
	if tr.inputs[1].HasData() || tr.inputs[2].HasData() {
		t.Fatal("inputs 1/2 unexpectedly report data")
	}

	rings[1].Write(media.AudioFrame[media.Mono]{Samples: []float32{10, 20, 30}, SampleRate: 48000})
	rings[2].Write(media.AudioFrame[media.Mono]{Samples: []float32{100, 200, 300}, SampleRate: 48000})

	if err := tr.Transform(context.Background(), nil); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	for i, in := range tr.inputs {
		if in.HasData() {
			t.Fatalf("input %d still reports data after a completed mix", i)
		}
	}

	out, ok := tr.output.Ring().(*link.Ring[media.AudioFrame[media.Mono]]).ReadLatest()
	if !ok {
		t.Fatal("expected a mixed output frame")
	}
	want := []float32{111, 222, 333}
	for i, s := range want {
		if out.Samples[i] != s {
			t.Fatalf("Samples[%d] = %v, want %v", i, out.Samples[i], s)
		}
	}
}

func TestMixer_DefaultsAtLeastOneInput(t *testing.T) {
	tr, err := FromConfig(Config{NumInputs: 0})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if len(tr.inputs) != 1 {
		t.Fatalf("len(inputs) = %d, want 1", len(tr.inputs))
	}
}
