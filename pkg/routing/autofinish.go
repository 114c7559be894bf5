package routing

// AutoFinishPredecessors finishes predecessors whose edge policy is triggered
// by their successor's production state, repeating until a full scan over
// all edges finishes nothing. Finishing one predecessor can satisfy another
// edge's trigger, so the scan restarts after every action.
//
// It returns the finished operations in the order they were finished. Run it
// after any event that changes production state.
func (r *Routing) AutoFinishPredecessors() []Operation {
	var finished []Operation
	for {
		op := r.autoFinishOne()
		if op == nil {
			return finished
		}
		finished = append(finished, op)
	}
}

func (r *Routing) autoFinishOne() Operation {
	for _, e := range r.edges {
		trigger, ok := e.attrs.AutoFinish.Trigger()
		if !ok {
			continue
		}
		pred := r.nodes[e.from].op
		if pred.State() == Finished {
			continue
		}
		if r.nodes[e.to].op.State() >= trigger {
			pred.AutoFinish()
			return pred
		}
	}
	return nil
}
