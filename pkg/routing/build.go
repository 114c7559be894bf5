package routing

import (
	"time"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// PathSpec is the import description of one routing: its attributes and an
// ordered list of nodes with their successor edges.
type PathSpec struct {
	ExternalID    string
	Name          string
	Preference    int
	AutoUse       AutoUse
	ReleaseOffset time.Duration
	// ValidFrom and ValidTo are optional; nil keeps the default or, on
	// update, the current bound.
	ValidFrom *time.Time
	ValidTo   *time.Time
	Default   bool
	Nodes     []NodeSpec
}

// NodeSpec declares one node by operation external id and its successors.
type NodeSpec struct {
	Operation  string
	Successors []SuccessorSpec
}

// SuccessorSpec declares an edge to the successor operation.
type SuccessorSpec struct {
	Operation string
	Attrs     EdgeAttrs
}

// Validate checks s without resolving operations.
func (s PathSpec) Validate() error {
	if err := errors.ValidateExternalID("routing", s.ExternalID); err != nil {
		return err
	}
	if s.ValidFrom != nil && s.ValidTo != nil && !s.ValidTo.After(*s.ValidFrom) {
		return errors.Invalid(errors.ErrCodeInvalidValidityWindow, "valid_to", *s.ValidTo,
			"routing %s: validity end must be after start %s", s.ExternalID, s.ValidFrom.Format(time.RFC3339))
	}
	if err := errors.ValidateNonNegative(errors.ErrCodeInvalidInput, "release_offset", s.ReleaseOffset); err != nil {
		return err
	}
	for _, n := range s.Nodes {
		if err := errors.ValidateExternalID("operation", n.Operation); err != nil {
			return err
		}
		for _, succ := range n.Successors {
			if err := errors.ValidateExternalID("operation", succ.Operation); err != nil {
				return err
			}
			if err := succ.Attrs.Validate(); err != nil {
				return errors.Wrap(errors.GetCode(err), err, "edge %s -> %s", n.Operation, succ.Operation)
			}
		}
	}
	return nil
}

// Build constructs a routing from import data, binding nodes to operations
// resolved through ops. Nodes are created on first mention, whether declared
// directly or as a successor. The leaf snapshot is computed once after all
// nodes and edges exist.
//
// Build returns a validation error for malformed windows, unknown
// operations, invalid edge parameters, duplicate edges or cycles; no routing
// is returned in that case.
func Build(spec PathSpec, ops OperationResolver) (*Routing, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	name := spec.Name
	if name == "" {
		name = spec.ExternalID
	}
	r := New(spec.ExternalID, name)
	r.preference = spec.Preference
	r.autoUse = spec.AutoUse
	r.releaseOffset = spec.ReleaseOffset
	if err := r.SetValidity(spec.ValidFrom, spec.ValidTo); err != nil {
		return nil, err
	}

	resolve := func(extID string) (*Node, error) {
		if n, ok := r.Node(extID); ok {
			return n, nil
		}
		op, ok := ops.Operation(extID)
		if !ok {
			return nil, errors.Invalid(errors.ErrCodeUnknownOperation, "operation", extID,
				"routing %s references an operation the order does not have", spec.ExternalID)
		}
		return r.addNode(op), nil
	}

	for _, ns := range spec.Nodes {
		curr, err := resolve(ns.Operation)
		if err != nil {
			return nil, err
		}
		for _, ss := range ns.Successors {
			succ, err := resolve(ss.Operation)
			if err != nil {
				return nil, err
			}
			if err := r.checkEdge(curr, succ, ss.Attrs); err != nil {
				return nil, err
			}
			r.addEdge(curr, succ, ss.Attrs)
		}
	}

	r.refreshLeaves()
	return r, nil
}
