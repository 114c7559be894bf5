package routing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// OverlapPolicy governs how far a successor may run concurrently with its
// predecessor. Exactly one policy is active on an edge.
type OverlapPolicy int

const (
	// OverlapNone releases the successor at predecessor end plus transfer.
	OverlapNone OverlapPolicy = iota
	// OverlapTransferQty releases the successor once a transfer quantity
	// has been produced.
	OverlapTransferQty
	// OverlapTransferSpan releases the successor a span after predecessor start.
	OverlapTransferSpan
	// OverlapTransferSpanBeforeStart releases the successor a span before
	// predecessor start.
	OverlapTransferSpanBeforeStart
	// OverlapTransferSpanAfterSetup releases the successor a span after the
	// predecessor's processing start.
	OverlapTransferSpanAfterSetup
	// OverlapPercentComplete releases the successor once the predecessor
	// reaches a completion percentage.
	OverlapPercentComplete
)

var overlapNames = [...]string{
	OverlapNone:                    "none",
	OverlapTransferQty:             "transfer-qty",
	OverlapTransferSpan:            "transfer-span",
	OverlapTransferSpanBeforeStart: "transfer-span-before-start",
	OverlapTransferSpanAfterSetup:  "transfer-span-after-setup",
	OverlapPercentComplete:         "percent-complete",
}

func (p OverlapPolicy) String() string {
	if p < OverlapNone || p > OverlapPercentComplete {
		return fmt.Sprintf("OverlapPolicy(%d)", int(p))
	}
	return overlapNames[p]
}

// usesSpan reports whether the policy is one of the transfer span variants.
func (p OverlapPolicy) usesSpan() bool {
	return p == OverlapTransferSpan || p == OverlapTransferSpanBeforeStart || p == OverlapTransferSpanAfterSetup
}

// ParseOverlapPolicy parses the names returned by [OverlapPolicy.String].
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	if s == "" {
		return OverlapNone, nil
	}
	for i, name := range overlapNames {
		if strings.EqualFold(name, s) {
			return OverlapPolicy(i), nil
		}
	}
	return OverlapNone, errors.Invalid(errors.ErrCodeInvalidOverlap, "overlap", s, "unknown overlap policy")
}

func (p OverlapPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *OverlapPolicy) UnmarshalText(b []byte) error {
	v, err := ParseOverlapPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// AutoFinishPolicy names the successor state that finishes the predecessor.
type AutoFinishPolicy int

const (
	AutoFinishNone AutoFinishPolicy = iota
	AutoFinishOnSuccessorSetupStart
	AutoFinishOnSuccessorRunStart
	AutoFinishOnSuccessorPostProcessingStart
	AutoFinishOnSuccessorFinish
)

var autoFinishNames = [...]string{
	AutoFinishNone:                           "none",
	AutoFinishOnSuccessorSetupStart:          "successor-setup-start",
	AutoFinishOnSuccessorRunStart:            "successor-run-start",
	AutoFinishOnSuccessorPostProcessingStart: "successor-post-processing-start",
	AutoFinishOnSuccessorFinish:              "successor-finish",
}

func (p AutoFinishPolicy) String() string {
	if p < AutoFinishNone || p > AutoFinishOnSuccessorFinish {
		return fmt.Sprintf("AutoFinishPolicy(%d)", int(p))
	}
	return autoFinishNames[p]
}

// Trigger returns the successor state at which the predecessor is finished.
// ok is false for AutoFinishNone.
func (p AutoFinishPolicy) Trigger() (state ProductionState, ok bool) {
	switch p {
	case AutoFinishOnSuccessorSetupStart:
		return SetupStarted, true
	case AutoFinishOnSuccessorRunStart:
		return RunStarted, true
	case AutoFinishOnSuccessorPostProcessingStart:
		return PostProcessingStarted, true
	case AutoFinishOnSuccessorFinish:
		return Finished, true
	}
	return Unstarted, false
}

// ParseAutoFinishPolicy parses the names returned by [AutoFinishPolicy.String].
func ParseAutoFinishPolicy(s string) (AutoFinishPolicy, error) {
	if s == "" {
		return AutoFinishNone, nil
	}
	for i, name := range autoFinishNames {
		if strings.EqualFold(name, s) {
			return AutoFinishPolicy(i), nil
		}
	}
	return AutoFinishNone, errors.Invalid(errors.ErrCodeInvalidEdge, "auto_finish", s, "unknown auto-finish policy")
}

func (p AutoFinishPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *AutoFinishPolicy) UnmarshalText(b []byte) error {
	v, err := ParseAutoFinishPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// TransferPoint is the predecessor/successor milestone a material transfer
// is measured from or to.
type TransferPoint int

const (
	TransferNone TransferPoint = iota
	TransferStartOfOperation
	TransferEndOfSetup
	TransferEndOfRun
	TransferEndOfPostProcessing
)

var transferNames = [...]string{
	TransferNone:                "none",
	TransferStartOfOperation:    "start-of-operation",
	TransferEndOfSetup:          "end-of-setup",
	TransferEndOfRun:            "end-of-run",
	TransferEndOfPostProcessing: "end-of-post-processing",
}

func (p TransferPoint) String() string {
	if p < TransferNone || p > TransferEndOfPostProcessing {
		return fmt.Sprintf("TransferPoint(%d)", int(p))
	}
	return transferNames[p]
}

// ParseTransferPoint parses the names returned by [TransferPoint.String].
func ParseTransferPoint(s string) (TransferPoint, error) {
	if s == "" {
		return TransferNone, nil
	}
	for i, name := range transferNames {
		if strings.EqualFold(name, s) {
			return TransferPoint(i), nil
		}
	}
	return TransferNone, errors.Invalid(errors.ErrCodeInvalidEdge, "transfer_point", s, "unknown transfer point")
}

func (p TransferPoint) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *TransferPoint) UnmarshalText(b []byte) error {
	v, err := ParseTransferPoint(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// EdgeAttrs holds the mutable timing and overlap parameters of an edge.
type EdgeAttrs struct {
	UsageQtyPerCycle decimal.Decimal
	TransferSpan     time.Duration
	// MaxDelay is the shelf life from predecessor finish to successor setup
	// start. Zero means unconstrained.
	MaxDelay time.Duration

	Overlap                OverlapPolicy
	OverlapTransferQty     decimal.Decimal
	OverlapTransferSpan    time.Duration
	OverlapPercentComplete float64
	OverlapSetups          bool

	AutoFinish                    AutoFinishPolicy
	AllowManualConnectorViolation bool

	TransferStart TransferPoint
	TransferEnd   TransferPoint
}

// Validate checks the edge invariants. It never mutates a.
func (a EdgeAttrs) Validate() error {
	if a.UsageQtyPerCycle.IsNegative() {
		return errors.Invalid(errors.ErrCodeInvalidEdge, "usage_qty_per_cycle", a.UsageQtyPerCycle.String(), "usage quantity cannot be negative")
	}
	if err := errors.ValidateNonNegative(errors.ErrCodeInvalidEdge, "transfer_span", a.TransferSpan); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative(errors.ErrCodeInvalidEdge, "max_delay", a.MaxDelay); err != nil {
		return err
	}
	if a.Overlap < OverlapNone || a.Overlap > OverlapPercentComplete {
		return errors.Invalid(errors.ErrCodeInvalidOverlap, "overlap", int(a.Overlap), "unknown overlap policy")
	}
	if a.OverlapTransferQty.IsNegative() {
		return errors.Invalid(errors.ErrCodeInvalidOverlap, "overlap_transfer_qty", a.OverlapTransferQty.String(), "transfer quantity cannot be negative")
	}
	if err := errors.ValidateNonNegative(errors.ErrCodeInvalidOverlap, "overlap_transfer_span", a.OverlapTransferSpan); err != nil {
		return err
	}
	if err := errors.ValidateFraction(errors.ErrCodeInvalidOverlap, "overlap_percent_complete", a.OverlapPercentComplete); err != nil {
		return err
	}
	if a.AutoFinish < AutoFinishNone || a.AutoFinish > AutoFinishOnSuccessorFinish {
		return errors.Invalid(errors.ErrCodeInvalidEdge, "auto_finish", int(a.AutoFinish), "unknown auto-finish policy")
	}
	if a.TransferStart < TransferNone || a.TransferStart > TransferEndOfPostProcessing {
		return errors.Invalid(errors.ErrCodeInvalidEdge, "transfer_start", int(a.TransferStart), "unknown transfer point")
	}
	if a.TransferEnd < TransferNone || a.TransferEnd > TransferEndOfPostProcessing {
		return errors.Invalid(errors.ErrCodeInvalidEdge, "transfer_end", int(a.TransferEnd), "unknown transfer point")
	}
	return nil
}

// ChangedFields lists the names of the fields that differ between a and b.
// Quantities are compared numerically, so "1.0" equals "1".
func (a EdgeAttrs) ChangedFields(b EdgeAttrs) []string {
	var fields []string
	add := func(differs bool, name string) {
		if differs {
			fields = append(fields, name)
		}
	}
	add(!a.UsageQtyPerCycle.Equal(b.UsageQtyPerCycle), "usage_qty_per_cycle")
	add(a.TransferSpan != b.TransferSpan, "transfer_span")
	add(a.MaxDelay != b.MaxDelay, "max_delay")
	add(a.Overlap != b.Overlap, "overlap")
	add(!a.OverlapTransferQty.Equal(b.OverlapTransferQty), "overlap_transfer_qty")
	add(a.OverlapTransferSpan != b.OverlapTransferSpan, "overlap_transfer_span")
	add(a.OverlapPercentComplete != b.OverlapPercentComplete, "overlap_percent_complete")
	add(a.OverlapSetups != b.OverlapSetups, "overlap_setups")
	add(a.AutoFinish != b.AutoFinish, "auto_finish")
	add(a.AllowManualConnectorViolation != b.AllowManualConnectorViolation, "allow_manual_connector_violation")
	add(a.TransferStart != b.TransferStart, "transfer_start")
	add(a.TransferEnd != b.TransferEnd, "transfer_end")
	return fields
}

// Equal reports whether a and b carry the same parameters.
func (a EdgeAttrs) Equal(b EdgeAttrs) bool { return len(a.ChangedFields(b)) == 0 }

// Edge is a directed timing constraint from a predecessor node to a
// successor node of the same routing. Endpoints are arena indices and never
// change after creation.
type Edge struct {
	index int
	from  int
	to    int
	attrs EdgeAttrs
}

// Index returns the edge's position in its routing's edge arena.
func (e *Edge) Index() int { return e.index }

// From returns the arena index of the predecessor node.
func (e *Edge) From() int { return e.from }

// To returns the arena index of the successor node.
func (e *Edge) To() int { return e.to }

// Attrs returns a copy of the edge parameters.
func (e *Edge) Attrs() EdgeAttrs { return e.attrs }

func (e *Edge) UsageQtyPerCycle() decimal.Decimal   { return e.attrs.UsageQtyPerCycle }
func (e *Edge) TransferSpan() time.Duration         { return e.attrs.TransferSpan }
func (e *Edge) MaxDelay() time.Duration             { return e.attrs.MaxDelay }
func (e *Edge) Overlap() OverlapPolicy              { return e.attrs.Overlap }
func (e *Edge) OverlapSetups() bool                 { return e.attrs.OverlapSetups }
func (e *Edge) AutoFinish() AutoFinishPolicy        { return e.attrs.AutoFinish }
func (e *Edge) AllowManualConnectorViolation() bool { return e.attrs.AllowManualConnectorViolation }
func (e *Edge) TransferPoints() (start, end TransferPoint) {
	return e.attrs.TransferStart, e.attrs.TransferEnd
}

// TransferQty returns the overlap transfer quantity.
// It panics unless the edge uses [OverlapTransferQty].
func (e *Edge) TransferQty() decimal.Decimal {
	e.mustOverlap(OverlapTransferQty)
	return e.attrs.OverlapTransferQty
}

// OverlapTransferSpan returns the overlap span.
// It panics unless the edge uses one of the transfer span policies.
func (e *Edge) OverlapTransferSpan() time.Duration {
	if !e.attrs.Overlap.usesSpan() {
		errors.Precondition("edge %d: overlap span requested under policy %s", e.index, e.attrs.Overlap)
	}
	return e.attrs.OverlapTransferSpan
}

// PercentComplete returns the completion fraction that releases the successor.
// It panics unless the edge uses [OverlapPercentComplete].
func (e *Edge) PercentComplete() float64 {
	e.mustOverlap(OverlapPercentComplete)
	return e.attrs.OverlapPercentComplete
}

// Update replaces the edge parameters with a after validating them. It
// reports whether any field changed. On error the edge is left untouched.
func (e *Edge) Update(a EdgeAttrs) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	if e.attrs.Equal(a) {
		return false, nil
	}
	e.attrs = a
	return true, nil
}

func (e *Edge) mustOverlap(p OverlapPolicy) {
	if e.attrs.Overlap != p {
		errors.Precondition("edge %d: %s computation requested under policy %s", e.index, p, e.attrs.Overlap)
	}
}
