package routing

import (
	"time"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// Release is the earliest instant a successor may start with respect to one
// predecessor edge. Known is false while the predecessor has no scheduled
// start.
type Release struct {
	At    time.Time
	Known bool
}

func known(t time.Time) Release { return Release{At: t, Known: true} }

// ResolveRelease computes the successor release for the edge's overlap
// policy from the predecessor's timing. Only percent complete overlap can
// fail: it requires time-based progress on an unsplit predecessor.
func (e *Edge) ResolveRelease(pred Timing) (Release, error) {
	if !pred.IsScheduled() {
		return Release{}, nil
	}
	switch e.attrs.Overlap {
	case OverlapTransferQty:
		return e.ReleaseOnTransferQty(pred), nil
	case OverlapTransferSpan:
		return e.ReleaseFromStart(pred), nil
	case OverlapTransferSpanBeforeStart:
		return e.ReleaseBeforeStart(pred, time.Time{}), nil
	case OverlapTransferSpanAfterSetup:
		return e.ReleaseAfterSetup(pred), nil
	case OverlapPercentComplete:
		return e.ReleaseAtPercent(pred)
	default:
		return e.ReleaseAfterFinish(pred), nil
	}
}

// ReleaseAfterFinish is predecessor end plus the fixed transfer span.
// It panics unless the edge uses [OverlapNone].
func (e *Edge) ReleaseAfterFinish(pred Timing) Release {
	e.mustOverlap(OverlapNone)
	if pred.ScheduledEnd.IsZero() {
		return Release{}
	}
	return known(pred.ScheduledEnd.Add(e.attrs.TransferSpan))
}

// ReleaseOnTransferQty is the predecessor's processing start plus the fixed
// transfer span: the earliest a first transfer batch can arrive. Whether
// enough quantity accumulated to run continuously is for the scheduler to
// check against [Edge.TransferQty].
// It panics unless the edge uses [OverlapTransferQty].
func (e *Edge) ReleaseOnTransferQty(pred Timing) Release {
	e.mustOverlap(OverlapTransferQty)
	start := pred.ProcessingStart()
	if start.IsZero() {
		start = pred.ScheduledStart
	}
	if start.IsZero() {
		return Release{}
	}
	return known(start.Add(e.attrs.TransferSpan))
}

// ReleaseFromStart is predecessor start plus the overlap span.
// It panics unless the edge uses [OverlapTransferSpan].
func (e *Edge) ReleaseFromStart(pred Timing) Release {
	e.mustOverlap(OverlapTransferSpan)
	if pred.ScheduledStart.IsZero() {
		return Release{}
	}
	return known(pred.ScheduledStart.Add(e.attrs.OverlapTransferSpan))
}

// ReleaseBeforeStart is predecessor start minus the overlap span, letting the
// successor begin before its predecessor. A non-zero start overrides the
// scheduled one.
// It panics unless the edge uses [OverlapTransferSpanBeforeStart].
func (e *Edge) ReleaseBeforeStart(pred Timing, start time.Time) Release {
	e.mustOverlap(OverlapTransferSpanBeforeStart)
	if start.IsZero() {
		start = pred.ScheduledStart
	}
	if start.IsZero() {
		return Release{}
	}
	return known(start.Add(-e.attrs.OverlapTransferSpan))
}

// ReleaseAfterSetup is the predecessor's processing start plus the overlap
// span. A running predecessor contributes its reported processing start.
// It panics unless the edge uses [OverlapTransferSpanAfterSetup].
func (e *Edge) ReleaseAfterSetup(pred Timing) Release {
	e.mustOverlap(OverlapTransferSpanAfterSetup)
	start := pred.ProcessingStart()
	if start.IsZero() {
		return Release{}
	}
	return known(start.Add(e.attrs.OverlapTransferSpan))
}

// ReleaseAtPercent is the instant the predecessor's run reaches the
// configured completion fraction, assuming linear time-based progress.
// It panics unless the edge uses [OverlapPercentComplete].
func (e *Edge) ReleaseAtPercent(pred Timing) (Release, error) {
	e.mustOverlap(OverlapPercentComplete)
	if !pred.TimeBasedProgress {
		return Release{}, errors.Invalid(errors.ErrCodeInvalidOverlap, "time_based_progress", false,
			"percent complete overlap requires time-based progress reporting")
	}
	if pred.Split {
		return Release{}, errors.Invalid(errors.ErrCodeInvalidOverlap, "split", true,
			"percent complete overlap requires an unsplit predecessor")
	}
	start := pred.ProcessingStart()
	end := pred.ScheduledProcessingEnd
	if start.IsZero() || end.IsZero() {
		return Release{}, nil
	}
	span := end.Sub(start)
	if span < 0 {
		span = 0
	}
	offset := time.Duration(float64(span) * e.attrs.OverlapPercentComplete)
	return known(start.Add(offset)), nil
}

// ResolveOverlapRelease resolves the release of the edge's successor from
// the predecessor's current timing.
func (r *Routing) ResolveOverlapRelease(e *Edge) (Release, error) {
	return e.ResolveRelease(r.nodes[e.from].op.Timing())
}

// EarliestRelease folds ResolveOverlapRelease over all incoming edges of n and
// returns the latest release. Known is false if any predecessor is not yet
// determinable; a root yields a known zero release.
func (r *Routing) EarliestRelease(n *Node) (Release, error) {
	r.mustOwn(n)
	var out Release
	out.Known = true
	for _, ei := range n.in.edges {
		rel, err := r.ResolveOverlapRelease(r.edges[ei])
		if err != nil {
			return Release{}, err
		}
		if !rel.Known {
			return Release{}, nil
		}
		if rel.At.After(out.At) {
			out.At = rel.At
		}
	}
	return out, nil
}
