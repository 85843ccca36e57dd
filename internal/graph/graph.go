// Package graph stores processor nodes and links in a plain adjacency map
// guarded by the caller's lock (owned by the compiler, per the runtime's
// shared-resource policy — readers take a read guard, writers take a write
// guard for the duration of each compiler phase). No graph-theory library
// from the example pack fits a structure this shallow: traversal needs here
// are id-keyed lookups and neighbor walks, not shortest-path or topological
// sort, and none of the candidate repos (including Apache Beam's Go SDK,
// which hand-rolls its own DAG for the same reason) import one.
package graph

import (
	"fmt"

	"github.com/tatolab/streamlib/internal/ids"
	"github.com/tatolab/streamlib/internal/link"
	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/streamerr"
)

// Node is a processor's graph weight: identity plus its dynamic component
// map. The component map is exactly the State/Instance/Metrics triple every
// node carries; arbitrary user components are not modeled as a separate
// bag since nothing in this implementation needs them beyond the three
// fixed kinds.
type Node struct {
	ID             ids.ID
	ProcessorType  string
	ConfigChecksum uint64

	State    processor.StateComponent
	Instance *processor.InstanceComponent
	Metrics  *processor.MetricsComponent
	// Wakeup is allocated in the compiler's Create phase and handed to the
	// processor's handler/loop thread; Wire installs it on every upstream
	// output port that feeds this node's input ports.
	Wakeup *link.Wakeup
}

// LinkState is the lifecycle state of a link (spec's LinkStateComponent).
type LinkState int

const (
	LinkPending LinkState = iota
	LinkWired
	LinkLive
	LinkBroken
)

func (s LinkState) String() string {
	switch s {
	case LinkPending:
		return "pending"
	case LinkWired:
		return "wired"
	case LinkLive:
		return "live"
	case LinkBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Endpoint identifies one side of a link: a processor id plus the named
// port on that processor.
type Endpoint struct {
	ProcessorID ids.ID
	PortName    string
}

// Link is an edge weight: source/target endpoints, capacity, and lifecycle
// state. The live transport pair (link.Ring/StreamOutput/StreamInput) is
// installed by the compiler's Wire phase, not stored here — Graph only
// tracks bookkeeping needed for traversal and validation.
type Link struct {
	ID       ids.ID
	Source   Endpoint
	Target   Endpoint
	Capacity int

	State        LinkState
	BrokenReason string
}

// Graph stores processor nodes and links. Callers are responsible for
// holding the appropriate read or write lock for the duration of any
// operation; Graph itself does no locking, matching the ownership model
// where the compiler holds a single sync.RWMutex across all graph access.
type Graph struct {
	gen   *ids.Generator
	nodes map[ids.ID]*Node
	links map[ids.ID]*Link

	// occupied tracks which input ports already have an incoming link, to
	// enforce the "exactly one incoming link per input port" invariant.
	occupied map[Endpoint]ids.ID
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		gen:      ids.NewGenerator(),
		nodes:    make(map[ids.ID]*Node),
		links:    make(map[ids.ID]*Link),
		occupied: make(map[Endpoint]ids.ID),
	}
}

// AddProcessor allocates a node with a fresh id and an empty component map.
// The node's Instance is nil until the compiler's Create phase materializes
// it.
func (g *Graph) AddProcessor(processorType string, configChecksum uint64) ids.ID {
	id := g.gen.New()
	g.nodes[id] = &Node{
		ID:             id,
		ProcessorType:  processorType,
		ConfigChecksum: configChecksum,
		State:          processor.StateComponent{State: processor.StateIdle},
	}
	return id
}

// RemoveProcessor removes a node weight. Fails if any link still
// references it; callers must enqueue the link removals first in the same
// compiler transaction.
func (g *Graph) RemoveProcessor(id ids.ID) error {
	if _, ok := g.nodes[id]; !ok {
		return &streamerr.Error{Kind: streamerr.KindNotFound, Op: "graph.RemoveProcessor", Err: fmt.Errorf("%w: %s", streamerr.ErrProcessorNotFound, id)}
	}
	for _, l := range g.links {
		if l.Source.ProcessorID == id || l.Target.ProcessorID == id {
			return &streamerr.Error{Kind: streamerr.KindState, Op: "graph.RemoveProcessor", Err: fmt.Errorf("%w: %s", streamerr.ErrProcessorHasLiveLinks, id)}
		}
	}
	delete(g.nodes, id)
	return nil
}

// AddLink validates that both processors exist, the type-match, and the
// free-input invariant, then allocates an edge with an empty component
// map (Pending state, no transport installed). It does not check that the
// named ports exist or their direction.
func (g *Graph) AddLink(from, to Endpoint, fromType, toType string, capacity int) (ids.ID, error) {
	if _, ok := g.nodes[from.ProcessorID]; !ok {
		return "", &streamerr.Error{Kind: streamerr.KindNotFound, Op: "graph.AddLink", Err: fmt.Errorf("%w: source %s", streamerr.ErrProcessorNotFound, from.ProcessorID)}
	}
	if _, ok := g.nodes[to.ProcessorID]; !ok {
		return "", &streamerr.Error{Kind: streamerr.KindNotFound, Op: "graph.AddLink", Err: fmt.Errorf("%w: target %s", streamerr.ErrProcessorNotFound, to.ProcessorID)}
	}

	if fromType != toType {
		return "", &streamerr.Error{Kind: streamerr.KindPort, Op: "graph.AddLink", Err: fmt.Errorf("%w: %s != %s", streamerr.ErrTypeMismatch, fromType, toType)}
	}
	if _, taken := g.occupied[to]; taken {
		return "", &streamerr.Error{Kind: streamerr.KindPort, Op: "graph.AddLink", Err: fmt.Errorf("%w: %s.%s", streamerr.ErrPortAlreadyConnected, to.ProcessorID, to.PortName)}
	}
	if capacity < 1 {
		capacity = 4 // spec default
	}

	id := g.gen.New()
	g.links[id] = &Link{
		ID:       id,
		Source:   from,
		Target:   to,
		Capacity: capacity,
		State:    LinkPending,
	}
	g.occupied[to] = id
	return id, nil
}

// RemoveLink removes an edge weight and frees its target port.
func (g *Graph) RemoveLink(id ids.ID) error {
	l, ok := g.links[id]
	if !ok {
		return &streamerr.Error{Kind: streamerr.KindNotFound, Op: "graph.RemoveLink", Err: fmt.Errorf("%w: %s", streamerr.ErrLinkNotFound, id)}
	}
	delete(g.occupied, l.Target)
	delete(g.links, id)
	return nil
}

// Processor returns the node weight for id.
func (g *Graph) Processor(id ids.ID) (*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &streamerr.Error{Kind: streamerr.KindNotFound, Op: "graph.Processor", Err: fmt.Errorf("%w: %s", streamerr.ErrProcessorNotFound, id)}
	}
	return n, nil
}

// ProcessorMut is the same lookup as Processor; Go pointers are already
// mutable, so there is no separate immutable-vs-mutable accessor pair —
// callers simply write through the returned *Node under the graph's lock.
func (g *Graph) ProcessorMut(id ids.ID) (*Node, error) {
	return g.Processor(id)
}

// Link returns the edge weight for id.
func (g *Graph) Link(id ids.ID) (*Link, error) {
	l, ok := g.links[id]
	if !ok {
		return nil, &streamerr.Error{Kind: streamerr.KindNotFound, Op: "graph.Link", Err: fmt.Errorf("%w: %s", streamerr.ErrLinkNotFound, id)}
	}
	return l, nil
}

// LinkMut is the mutable counterpart of Link (see ProcessorMut).
func (g *Graph) LinkMut(id ids.ID) (*Link, error) {
	return g.Link(id)
}

// Processors returns every node id whose ProcessorType and State satisfy
// filter. A nil filter matches every node.
func (g *Graph) Processors(filter func(*Node) bool) []ids.ID {
	var out []ids.ID
	for id, n := range g.nodes {
		if filter == nil || filter(n) {
			out = append(out, id)
		}
	}
	return out
}

// LinksOf returns every link id whose source or target is processorID.
func (g *Graph) LinksOf(processorID ids.ID) []ids.ID {
	var out []ids.ID
	for id, l := range g.links {
		if l.Source.ProcessorID == processorID || l.Target.ProcessorID == processorID {
			out = append(out, id)
		}
	}
	return out
}

// Links returns every link id whose Link weight satisfies filter. A nil
// filter matches every link.
func (g *Graph) Links(filter func(*Link) bool) []ids.ID {
	var out []ids.ID
	for id, l := range g.links {
		if filter == nil || filter(l) {
			out = append(out, id)
		}
	}
	return out
}
