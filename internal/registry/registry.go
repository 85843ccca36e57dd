// Package registry maps a processor type name (a dotted string, e.g.
// "streamlib.tone.source") to a constructor function plus a port/config
// schema. The ConfigSample is the decode target for AddProcessor configs;
// the port schemas are descriptive and are not checked against the ports
// an instance builds. It is adapted from tvarr's
// internal/pipeline/core.Factory/Builder: that type turns a fixed list of
// stage constructors and a Dependencies bundle into a ready Orchestrator.
// Registry generalizes "a fixed list of five named stages" into "any
// number of externally-registered processor types," and Builder's fluent
// construction becomes Registry.Register's registration, which stores the
// descriptor without checking it.
package registry

import (
	"fmt"
	"sync"

	"github.com/tatolab/streamlib/internal/processor"
	"github.com/tatolab/streamlib/internal/streamerr"
)

// PortSchema describes one declared port for registry validation purposes,
// independent of any live link.Ring instance (spec's PortDescriptor).
type PortSchema struct {
	Name     string
	TypeName string
	Optional bool
	Variadic bool
}

// Descriptor is the static shape of a processor type: its port schema and
// an opaque config schema hint used by internal/config's decoder.
type Descriptor struct {
	TypeName    string
	InputPorts  []PortSchema
	OutputPorts []PortSchema
	// ConfigSample is a zero-value instance of the processor's Config type,
	// used by internal/config.Decode as the mapstructure destination shape.
	ConfigSample any
}

// Constructor builds a new processor instance from a decoded config value.
// The config argument is whatever internal/config.Decode produced against
// the Descriptor's ConfigSample; constructors type-assert it to their own
// concrete Config type.
type Constructor func(config any) (processor.Element, error)

// entry bundles a Descriptor with the Constructor that builds it.
type entry struct {
	descriptor Descriptor
	construct  Constructor
}

// Registry is a process-wide catalog of known processor types. It is safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a processor type under typeName. Registering the same
// typeName twice replaces the previous entry — this mirrors tvarr's
// RegisterStage ordering contract but keyed by name instead of position,
// since processor types are looked up by name, never executed in a fixed
// registration order.
func (r *Registry) Register(typeName string, descriptor Descriptor, construct Constructor) {
	descriptor.TypeName = typeName
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[typeName] = entry{descriptor: descriptor, construct: construct}
}

// Describe returns the Descriptor registered under typeName.
func (r *Registry) Describe(typeName string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[typeName]
	if !ok {
		return Descriptor{}, &streamerr.Error{Kind: streamerr.KindNotFound, Op: "registry.Describe", Err: fmt.Errorf("processor type %q is not registered", typeName)}
	}
	return e.descriptor, nil
}

// Create constructs a new processor instance of typeName using config.
func (r *Registry) Create(typeName string, config any) (processor.Element, error) {
	r.mu.RLock()
	e, ok := r.entries[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, &streamerr.Error{Kind: streamerr.KindNotFound, Op: "registry.Create", Err: fmt.Errorf("processor type %q is not registered", typeName)}
	}
	elem, err := e.construct(config)
	if err != nil {
		return nil, &streamerr.Error{Kind: streamerr.KindConfig, Op: "registry.Create", Err: err}
	}
	return elem, nil
}

// TypeNames returns every registered type name, for introspection.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// defaultRegistry is the process-wide catalog populated by every
// pkg/processors/... package's init() function — the concrete,
// code-level form of "a process-wide registry populated at program link
// time" (spec.md §6), since Go has no derive-macro link step to hook: a
// blank import of a processor package is what registers it.
var defaultRegistry = New()

// Default returns the process-wide Registry that pkg/processors/...
// packages register themselves into via init(). Most callers should still
// prefer constructing their own Registry with New() for tests, so one
// test's registered fakes cannot leak into another's; Default exists for
// production wiring (cmd/streamlibd) where a single shared catalog is
// exactly what's wanted.
func Default() *Registry { return defaultRegistry }
