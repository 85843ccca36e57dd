package link

import "testing"

func TestRing_DropOldestOnOverflow(t *testing.T) {
	const capacity = 4
	r := NewRing[int](capacity)

	// Writing N+C items to a ring of capacity C drops N (spec.md §8
	// boundary behavior).
	const n = 6
	for i := 0; i < n+capacity; i++ {
		r.Write(i)
	}

	if got := r.Dropped(); got != n {
		t.Fatalf("Dropped() = %d, want %d", got, n)
	}
	if got := r.Len(); got != capacity {
		t.Fatalf("Len() = %d, want %d", got, capacity)
	}

	latest, ok := r.ReadLatest()
	if !ok {
		t.Fatal("ReadLatest() returned ok=false, want true")
	}
	if want := n + capacity - 1; latest != want {
		t.Fatalf("ReadLatest() = %d, want %d", latest, want)
	}
}

func TestRing_HasDataReadLatestRoundTrip(t *testing.T) {
	r := NewRing[string](4)

	if r.HasData() {
		t.Fatal("HasData() = true on empty ring")
	}

	r.Write("a")
	r.Write("b")

	if !r.HasData() {
		t.Fatal("HasData() = false after Write")
	}

	v, ok := r.ReadLatest()
	if !ok || v != "b" {
		t.Fatalf("ReadLatest() = (%q, %v), want (\"b\", true)", v, ok)
	}

	// has_data() == true immediately before read_latest() implies Some(_)
	// returned, and has_data() == false after (spec.md §8 round-trip law).
	if r.HasData() {
		t.Fatal("HasData() = true after ReadLatest drained the ring")
	}
}

func TestRing_ReadAllDrainsInOrder(t *testing.T) {
	r := NewRing[int](4)
	r.Write(1)
	r.Write(2)
	r.Write(3)

	got := r.ReadAll()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("ReadAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadAll()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if r.HasData() {
		t.Fatal("HasData() = true after ReadAll drained the ring")
	}
}

func TestStreamOutputInput_WireAndWrite(t *testing.T) {
	out := NewStreamOutput[int]("samples", 2)
	in := NewStreamInput[int]("samples")

	wakeup := NewWakeup()
	out.SetWakeup(wakeup)

	if err := in.Bind(out.Ring()); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	out.Write(42)

	select {
	case <-wakeup.Data():
	default:
		t.Fatal("expected a coalesced wakeup signal after Write")
	}

	if !in.HasData() {
		t.Fatal("HasData() = false after Write")
	}
	v, ok := in.ReadLatest()
	if !ok || v != 42 {
		t.Fatalf("ReadLatest() = (%d, %v), want (42, true)", v, ok)
	}
}

func TestStreamInput_BindTypeMismatch(t *testing.T) {
	out := NewStreamOutput[int]("n", 2)
	in := NewStreamInput[string]("n")

	if err := in.Bind(out.Ring()); err == nil {
		t.Fatal("Bind() error = nil, want type mismatch error")
	}
}
