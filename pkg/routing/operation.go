package routing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// ProductionState is the furthest production step an operation has reached.
// States are totally ordered; a later state implies all earlier ones.
type ProductionState int

const (
	Unstarted ProductionState = iota
	SetupStarted
	RunStarted
	PostProcessingStarted
	Finished
)

var stateNames = [...]string{
	Unstarted:             "unstarted",
	SetupStarted:          "setup-started",
	RunStarted:            "run-started",
	PostProcessingStarted: "post-processing-started",
	Finished:              "finished",
}

func (s ProductionState) String() string {
	if s < Unstarted || s > Finished {
		return fmt.Sprintf("ProductionState(%d)", int(s))
	}
	return stateNames[s]
}

// ParseProductionState parses the names returned by [ProductionState.String].
// An empty string parses as [Unstarted].
func ParseProductionState(s string) (ProductionState, error) {
	if s == "" {
		return Unstarted, nil
	}
	for i, name := range stateNames {
		if strings.EqualFold(name, s) {
			return ProductionState(i), nil
		}
	}
	return Unstarted, errors.Invalid(errors.ErrCodeInvalidInput, "state", s, "unknown production state")
}

// MarshalText implements encoding.TextMarshaler.
func (s ProductionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ProductionState) UnmarshalText(b []byte) error {
	v, err := ParseProductionState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Resource is a machine or work center an operation may run on.
type Resource struct {
	ID    string
	Plant string
}

// Timing carries the scheduling facts of a predecessor operation that overlap
// computations depend on. Zero instants mean "not scheduled" / "not reported".
type Timing struct {
	ScheduledStart           time.Time // start of setup
	ScheduledProcessingStart time.Time // end of setup, start of run
	ScheduledProcessingEnd   time.Time // end of run
	ScheduledEnd             time.Time // end of post-processing

	// ReportedProcessingStart is the shop-floor reported run start. It is
	// used instead of the scheduled value while Running is set.
	ReportedProcessingStart time.Time
	Running                 bool

	// TimeBasedProgress and Split qualify the operation for percent
	// complete overlap.
	TimeBasedProgress bool
	Split             bool
}

// IsScheduled reports whether a start instant is known.
func (t Timing) IsScheduled() bool { return !t.ScheduledStart.IsZero() }

// ProcessingStart returns the reported run start for a running operation and
// the scheduled one otherwise.
func (t Timing) ProcessingStart() time.Time {
	if t.Running && !t.ReportedProcessingStart.IsZero() {
		return t.ReportedProcessingStart
	}
	return t.ScheduledProcessingStart
}

// Operation is a schedulable unit of work owned by a manufacturing order.
// Routings hold non-owning references to operations and never create them.
type Operation interface {
	// ExternalID is the stable identifier assigned by the ERP system. It
	// keys the routing node that wraps the operation.
	ExternalID() string
	// Identity is unique per in-memory operation instance.
	Identity() uuid.UUID

	State() ProductionState
	Omitted() bool
	Scheduled() bool
	// ProductionPinned reports whether production data was pinned manually
	// and must not be overwritten by imports.
	ProductionPinned() bool

	Activities() []string
	Products() []string
	Resources() []Resource
	Timing() Timing

	// AutoFinish marks the operation finished on behalf of a successor.
	AutoFinish()
}

// OperationResolver looks up operations of an order by external id.
type OperationResolver interface {
	Operation(externalID string) (Operation, bool)
}

// Schedulable reports whether op still needs to be placed by a scheduler.
func Schedulable(op Operation) bool {
	return op.State() != Finished && !op.Omitted()
}
