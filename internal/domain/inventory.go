package domain

import "fmt"

// UnitKind tags how a unit is priced and how it participates in the
// parent/child exclusivity rule.
type UnitKind string

const (
	// KindWhole is the entire property, rented as one unit per night.
	KindWhole UnitKind = "whole"
	// KindSlot is an individually bookable sleeping place, priced per person.
	KindSlot UnitKind = "slot"
)

// Unit is a bookable inventory item. Units are managed outside the engine;
// from here they are read-only.
type Unit struct {
	ID           int64
	Name         string
	TypeID       int64
	Kind         UnitKind
	MaxOccupancy int
	ParentID     *int64
}

// UnitRole is the unit's resolved position in the inventory tree.
type UnitRole int

const (
	RoleStandalone UnitRole = iota
	RoleParent
	RoleChild
)

// Inventory is the unit tree with parent/child links resolved once at load,
// so the availability rule never walks parent ids ad hoc.
type Inventory struct {
	units    []Unit
	byID     map[int64]Unit
	children map[int64][]int64 // parent id -> child ids
}

// NewInventory validates the tree: a parent reference must point to an
// existing whole-type unit, and children cannot themselves have children.
func NewInventory(units []Unit) (*Inventory, error) {
	inv := &Inventory{
		units:    units,
		byID:     make(map[int64]Unit, len(units)),
		children: make(map[int64][]int64),
	}
	for _, u := range units {
		inv.byID[u.ID] = u
	}
	for _, u := range units {
		if u.ParentID == nil {
			continue
		}
		parent, ok := inv.byID[*u.ParentID]
		if !ok {
			return nil, fmt.Errorf("unit %d: parent %d does not exist", u.ID, *u.ParentID)
		}
		if parent.Kind != KindWhole {
			return nil, fmt.Errorf("unit %d: parent %d is not a whole-property unit", u.ID, *u.ParentID)
		}
		if parent.ParentID != nil {
			return nil, fmt.Errorf("unit %d: parent %d is itself a child", u.ID, *u.ParentID)
		}
		inv.children[parent.ID] = append(inv.children[parent.ID], u.ID)
	}
	return inv, nil
}

// Units returns the inventory in load order.
func (inv *Inventory) Units() []Unit { return inv.units }

// Unit looks a unit up by id.
func (inv *Inventory) Unit(id int64) (Unit, bool) {
	u, ok := inv.byID[id]
	return u, ok
}

// Role reports the resolved role of a unit.
func (inv *Inventory) Role(id int64) UnitRole {
	u, ok := inv.byID[id]
	if !ok {
		return RoleStandalone
	}
	if u.ParentID != nil {
		return RoleChild
	}
	if len(inv.children[id]) > 0 {
		return RoleParent
	}
	return RoleStandalone
}

// GroupKey returns the serialization key for a unit: the parent's id for any
// member of a parent/child group, the unit's own id otherwise. Concurrent
// bookings against the same group must serialize on this key.
func (inv *Inventory) GroupKey(id int64) string {
	if u, ok := inv.byID[id]; ok && u.ParentID != nil {
		return fmt.Sprintf("unit-group:%d", *u.ParentID)
	}
	return fmt.Sprintf("unit-group:%d", id)
}

// Blocked computes the set of unit ids that cannot be booked given the
// non-cancelled reservations overlapping the requested range.
//
// Booking the whole property blocks it and all its children; booking any
// child blocks that child and its parent while leaving sibling children
// free. Units outside a parent/child group only block themselves.
// Cancelled reservations are filtered again here even though the
// persistence contract already excludes them.
func (inv *Inventory) Blocked(overlapping []Reservation) map[int64]struct{} {
	booked := make(map[int64]struct{})
	for _, r := range overlapping {
		if r.Status == StatusCancelled {
			continue
		}
		booked[r.UnitID] = struct{}{}
	}

	blocked := make(map[int64]struct{})
	for id := range booked {
		blocked[id] = struct{}{}
		u, ok := inv.byID[id]
		if !ok {
			continue
		}
		if u.ParentID != nil {
			// a partially occupied property cannot be rented whole
			blocked[*u.ParentID] = struct{}{}
			continue
		}
		for _, child := range inv.children[id] {
			blocked[child] = struct{}{}
		}
	}
	return blocked
}

// UnitAvailability is the per-query view of a unit; the flag is derived and
// never persisted.
type UnitAvailability struct {
	Unit      Unit
	Available bool
}
