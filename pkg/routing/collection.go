package routing

import (
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/routegraph/pkg/errors"
)

// Collection holds the alternate routings of one manufacturing order.
// Routing external ids are unique within a collection.
type Collection struct {
	orderID   string
	routings  []*Routing
	defaultID uuid.UUID

	// explicitDefault is set once a default was chosen rather than implied
	// by insertion order.
	explicitDefault bool
}

// NewCollection creates an empty collection for the order.
func NewCollection(orderID string) *Collection {
	return &Collection{orderID: orderID}
}

// OrderID returns the external id of the owning order.
func (c *Collection) OrderID() string { return c.orderID }

// Len returns the number of routings.
func (c *Collection) Len() int { return len(c.routings) }

// Routings returns the routings in insertion order.
func (c *Collection) Routings() []*Routing { return slices.Clone(c.routings) }

// Add appends r. The first routing added becomes the default unless one is
// already set.
func (c *Collection) Add(r *Routing) error {
	if _, ok := c.Routing(r.externalID); ok {
		return errors.Invalid(errors.ErrCodeDuplicateRouting, "routing", r.externalID,
			"order %s already has this routing", c.orderID)
	}
	c.routings = append(c.routings, r)
	if c.defaultID == uuid.Nil {
		c.defaultID = r.id
	}
	return nil
}

// Routing looks up a routing by external id.
func (c *Collection) Routing(externalID string) (*Routing, bool) {
	i := c.indexOf(externalID)
	if i < 0 {
		return nil, false
	}
	return c.routings[i], true
}

// RoutingByID looks up a routing by identity.
func (c *Collection) RoutingByID(id uuid.UUID) (*Routing, bool) {
	for _, r := range c.routings {
		if r.id == id {
			return r, true
		}
	}
	return nil, false
}

// Remove deletes the routing with the given external id and reports whether
// it existed. Removing the default promotes the first remaining routing.
func (c *Collection) Remove(externalID string) bool {
	i := c.indexOf(externalID)
	if i < 0 {
		return false
	}
	removed := c.routings[i]
	c.routings = slices.Delete(c.routings, i, i+1)
	if removed.id == c.defaultID {
		c.defaultID = uuid.Nil
		if len(c.routings) > 0 {
			c.defaultID = c.routings[0].id
		}
	}
	return true
}

// SetDefault marks the routing with the given external id as the default.
func (c *Collection) SetDefault(externalID string) error {
	r, ok := c.Routing(externalID)
	if !ok {
		return errors.Invalid(errors.ErrCodeRoutingNotFound, "routing", externalID,
			"order %s has no such routing", c.orderID)
	}
	c.defaultID = r.id
	c.explicitDefault = true
	return nil
}

// Default returns the default routing, or nil for an empty collection.
func (c *Collection) Default() *Routing {
	if r, ok := c.RoutingByID(c.defaultID); ok {
		return r
	}
	if len(c.routings) > 0 {
		return c.routings[0]
	}
	return nil
}

// Active returns the routing the order currently runs on: the first routing
// holding scheduled operations, else the default.
func (c *Collection) Active() *Routing {
	for _, r := range c.routings {
		if r.HasScheduledOperations() {
			return r
		}
	}
	return c.Default()
}

// MarkScheduled records that the routing with identity id was scheduled by
// flagging every node of every other routing.
func (c *Collection) MarkScheduled(id uuid.UUID) error {
	if _, ok := c.RoutingByID(id); !ok {
		return errors.Invalid(errors.ErrCodeRoutingNotFound, "routing_id", id, "order %s has no such routing", c.orderID)
	}
	for _, r := range c.routings {
		flag := r.id != id
		for _, n := range r.nodes {
			n.anotherPathScheduled = flag
		}
	}
	return nil
}

// CanUseResource reports whether any routing can run on the resource.
func (c *Collection) CanUseResource(resourceID string) bool {
	return slices.ContainsFunc(c.routings, func(r *Routing) bool { return r.CanUseResource(resourceID) })
}

// CanUsePlant reports whether any routing can run in the plant.
func (c *Collection) CanUsePlant(plant string) bool {
	return slices.ContainsFunc(c.routings, func(r *Routing) bool { return r.CanUsePlant(plant) })
}

// Plants returns the sorted set of plants any operation may run in.
func (c *Collection) Plants() []string {
	var plants []string
	for _, r := range c.routings {
		for _, n := range r.nodes {
			for _, res := range n.op.Resources() {
				if res.Plant != "" && !slices.Contains(plants, res.Plant) {
					plants = append(plants, res.Plant)
				}
			}
		}
	}
	slices.Sort(plants)
	return plants
}

// AutoFinishPredecessors runs the auto-finish cascade on every routing and
// returns all operations finished, in order. An operation shared by several
// routings is reported once.
func (c *Collection) AutoFinishPredecessors() []Operation {
	var finished []Operation
	seen := make(map[uuid.UUID]bool)
	for _, r := range c.routings {
		for _, op := range r.AutoFinishPredecessors() {
			if !seen[op.Identity()] {
				seen[op.Identity()] = true
				finished = append(finished, op)
			}
		}
	}
	return finished
}

// Clone copies every routing onto the operations resolved by ops.
func (c *Collection) Clone(ops OperationResolver) (*Collection, error) {
	out := NewCollection(c.orderID)
	for _, r := range c.routings {
		cr, err := r.Clone(ops)
		if err != nil {
			return nil, err
		}
		out.routings = append(out.routings, cr)
		if r.id == c.defaultID {
			out.defaultID = cr.id
		}
	}
	out.explicitDefault = c.explicitDefault
	if out.defaultID == uuid.Nil && len(out.routings) > 0 {
		out.defaultID = out.routings[0].id
	}
	return out, nil
}

// BuildCollection builds one routing per spec. The first spec flagged
// Default becomes the default routing.
func BuildCollection(orderID string, specs []PathSpec, ops OperationResolver) (*Collection, error) {
	c := NewCollection(orderID)
	var def string
	for _, s := range specs {
		r, err := Build(s, ops)
		if err != nil {
			return nil, err
		}
		if err := c.Add(r); err != nil {
			return nil, err
		}
		if s.Default && def == "" {
			def = s.ExternalID
		}
	}
	if def != "" {
		if err := c.SetDefault(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collection) indexOf(externalID string) int {
	return slices.IndexFunc(c.routings, func(r *Routing) bool { return r.externalID == externalID })
}
