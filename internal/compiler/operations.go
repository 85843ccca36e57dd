package compiler

import "github.com/tatolab/streamlib/internal/ids"

// OpKind identifies one of the five pending operation kinds a Transaction
// can carry.
type OpKind int

const (
	OpAddProcessor OpKind = iota
	OpRemoveProcessor
	OpAddLink
	OpRemoveLink
	OpUpdateConfig
)

// PendingOperation is one entry queued inside a Scope before Commit runs.
// Exactly one of the typed payload fields is populated, matching Kind.
type PendingOperation struct {
	Kind OpKind

	AddProcessor    *AddProcessorOp
	RemoveProcessor *RemoveProcessorOp
	AddLink         *AddLinkOp
	RemoveLink      *RemoveLinkOp
	UpdateConfig    *UpdateConfigOp
}

// AddProcessorOp requests a new node of ProcessorType with the given raw
// config payload.
type AddProcessorOp struct {
	ProcessorType string
	Config        map[string]any
	// assignedID is filled in once the graph allocates the node, so later
	// phases (Wire referencing this processor, Setup, Start) can find it.
	assignedID ids.ID
}

// AssignedID returns the id the graph allocated for this processor once
// Commit has run the op through phase 1 (create). Reading it before the
// owning Commit returns yields the zero value.
func (op *AddProcessorOp) AssignedID() ids.ID { return op.assignedID }

// RemoveProcessorOp requests removal of an existing node.
type RemoveProcessorOp struct {
	ID ids.ID
}

// AddLinkOp requests a new edge between two existing (or same-transaction)
// processors' named ports.
type AddLinkOp struct {
	FromProcessor ids.ID
	FromPort      string
	ToProcessor   ids.ID
	ToPort        string
	Capacity      int
	assignedID    ids.ID
}

// AssignedID returns the id the graph allocated for this link once Commit
// has run the op through phase 2 (wire). Reading it before the owning
// Commit returns yields the zero value.
func (op *AddLinkOp) AssignedID() ids.ID { return op.assignedID }

// RemoveLinkOp requests removal of an existing edge.
type RemoveLinkOp struct {
	ID ids.ID
}

// UpdateConfigOp requests a config hot-update on an existing processor,
// applied after all structural phases complete.
type UpdateConfigOp struct {
	ID     ids.ID
	Config map[string]any
}
