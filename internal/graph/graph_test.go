package graph

import (
	"errors"
	"testing"

	"github.com/tatolab/streamlib/internal/streamerr"
)

func TestGraph_AddLinkValidatesTypeAndOccupancy(t *testing.T) {
	g := New()
	src := g.AddProcessor("tone.source", 1)
	dst := g.AddProcessor("recorder.sink", 1)

	from := Endpoint{ProcessorID: src, PortName: "out"}
	to := Endpoint{ProcessorID: dst, PortName: "in"}

	id, err := g.AddLink(from, to, "media.AudioFrame[Mono]", "media.AudioFrame[Mono]", 4)
	if err != nil {
		t.Fatalf("AddLink() error = %v", err)
	}

	l, err := g.Link(id)
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if l.State != LinkPending {
		t.Fatalf("new link State = %v, want LinkPending", l.State)
	}

	// A second link to the same input port must fail: exactly one incoming
	// link per input port.
	other := g.AddProcessor("tone.source", 1)
	_, err = g.AddLink(Endpoint{ProcessorID: other, PortName: "out"}, to, "media.AudioFrame[Mono]", "media.AudioFrame[Mono]", 4)
	if err == nil {
		t.Fatal("AddLink() to an already-connected input port succeeded, want error")
	}
	if !errors.Is(err, streamerr.ErrPortAlreadyConnected) {
		t.Fatalf("error = %v, want wrapping ErrPortAlreadyConnected", err)
	}
}

func TestGraph_AddLinkRejectsTypeMismatch(t *testing.T) {
	g := New()
	src := g.AddProcessor("tone.source", 1)
	dst := g.AddProcessor("recorder.sink", 1)

	_, err := g.AddLink(
		Endpoint{ProcessorID: src, PortName: "out"},
		Endpoint{ProcessorID: dst, PortName: "in"},
		"media.AudioFrame[Mono]", "media.VideoFrame", 4)
	if !errors.Is(err, streamerr.ErrTypeMismatch) {
		t.Fatalf("error = %v, want wrapping ErrTypeMismatch", err)
	}
}

func TestGraph_RemoveProcessorFailsWithLiveLinks(t *testing.T) {
	g := New()
	src := g.AddProcessor("tone.source", 1)
	dst := g.AddProcessor("recorder.sink", 1)
	_, err := g.AddLink(
		Endpoint{ProcessorID: src, PortName: "out"},
		Endpoint{ProcessorID: dst, PortName: "in"},
		"t", "t", 4)
	if err != nil {
		t.Fatalf("AddLink() error = %v", err)
	}

	if err := g.RemoveProcessor(src); !errors.Is(err, streamerr.ErrProcessorHasLiveLinks) {
		t.Fatalf("RemoveProcessor() error = %v, want wrapping ErrProcessorHasLiveLinks", err)
	}
}

func TestGraph_RemoveLinkFreesInputPort(t *testing.T) {
	g := New()
	src := g.AddProcessor("tone.source", 1)
	dst := g.AddProcessor("recorder.sink", 1)
	to := Endpoint{ProcessorID: dst, PortName: "in"}

	id, err := g.AddLink(Endpoint{ProcessorID: src, PortName: "out"}, to, "t", "t", 4)
	if err != nil {
		t.Fatalf("AddLink() error = %v", err)
	}
	if err := g.RemoveLink(id); err != nil {
		t.Fatalf("RemoveLink() error = %v", err)
	}

	other := g.AddProcessor("tone.source", 1)
	if _, err := g.AddLink(Endpoint{ProcessorID: other, PortName: "out"}, to, "t", "t", 4); err != nil {
		t.Fatalf("AddLink() after RemoveLink should succeed, got error = %v", err)
	}
}

func TestGraph_ProcessorNotFound(t *testing.T) {
	g := New()
	_, err := g.Processor("nonexistent")
	if !errors.Is(err, streamerr.ErrProcessorNotFound) {
		t.Fatalf("error = %v, want wrapping ErrProcessorNotFound", err)
	}
}
