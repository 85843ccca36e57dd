package queue

import (
	"context"
	"testing"

	"github.com/tatolab/streamlib/internal/link"
)

func TestTransform_LossyForwardsOnlyLatest(t *testing.T) {
	tr := New[int](Config{Capacity: 4, Lossless: false})
	ring := link.NewRing[int](4)
	if err := tr.input.Bind(ring); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	ring.Write(1)
	ring.Write(2)
	ring.Write(3)

	if err := tr.Transform(context.Background(), nil); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	out := tr.output.Ring().(*link.Ring[int])
	if out.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", out.Len())
	}
	v, _ := out.ReadLatest()
	if v != 3 {
		t.Fatalf("forwarded = %d, want 3 (latest)", v)
	}
}

func TestTransform_LosslessForwardsEveryItem(t *testing.T) {
	tr := New[int](Config{Capacity: 8, Lossless: true})
	ring := link.NewRing[int](8)
	if err := tr.input.Bind(ring); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	ring.Write(1)
	ring.Write(2)
	ring.Write(3)

	if err := tr.Transform(context.Background(), nil); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	out := tr.output.Ring().(*link.Ring[int])
	got := out.ReadAll()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("ReadAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadAll()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTransform_NoDataIsANoop(t *testing.T) {
	tr := New[int](Config{Capacity: 4})
	ring := link.NewRing[int](4)
	if err := tr.input.Bind(ring); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := tr.Transform(context.Background(), nil); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	out := tr.output.Ring().(*link.Ring[int])
	if out.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", out.Len())
	}
}
