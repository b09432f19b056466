package placement

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/jinzhu/copier"
)

// Store is the authoritative collection of placements, keyed by id.
// It is owned by the interaction loop and is not safe for concurrent use.
type Store struct {
	byID  map[ID]*Placement
	order []ID // insertion order, for deterministic iteration
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[ID]*Placement)}
}

// Add inserts p. A parent reference must point at an existing placement
// other than p itself.
func (s *Store) Add(p *Placement) error {
	if p.ID.IsZero() {
		return fmt.Errorf("add placement: empty id")
	}
	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("add placement %s: %w", p.ID, ErrDuplicateID)
	}
	if err := s.checkParent(p.ID, p.ParentID); err != nil {
		return fmt.Errorf("add placement %s: %w", p.ID, err)
	}
	s.byID[p.ID] = p
	s.order = append(s.order, p.ID)
	return nil
}

// Get returns the placement with the given id, or nil.
func (s *Store) Get(id ID) *Placement {
	return s.byID[id]
}

// Len returns the number of placements.
func (s *Store) Len() int {
	return len(s.order)
}

// All returns every placement in insertion order.
func (s *Store) All() []*Placement {
	out := make([]*Placement, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Children returns the placements resting directly on id.
func (s *Store) Children(id ID) []*Placement {
	if id.IsZero() {
		return nil
	}
	var out []*Placement
	for _, cid := range s.order {
		if c := s.byID[cid]; c.ParentID == id {
			out = append(out, c)
		}
	}
	return out
}

// SetParent assigns or clears (parent == ZeroID) the parent of id.
func (s *Store) SetParent(id, parent ID) error {
	p := s.byID[id]
	if p == nil {
		return fmt.Errorf("set parent of %s: %w", id, ErrNotFound)
	}
	if err := s.checkParent(id, parent); err != nil {
		return fmt.Errorf("set parent of %s: %w", id, err)
	}
	p.ParentID = parent
	return nil
}

func (s *Store) checkParent(id, parent ID) error {
	if parent.IsZero() {
		return nil
	}
	if parent == id {
		return ErrSelfParent
	}
	pp, ok := s.byID[parent]
	if !ok {
		return ErrDanglingParent
	}
	if pp.HasParent() || len(s.Children(id)) > 0 {
		return ErrNestedParent
	}
	return nil
}

// Remove deletes id and clears the parent reference of every placement that
// rested on it. It returns the ids whose parent was cleared.
func (s *Store) Remove(id ID) ([]ID, error) {
	if _, ok := s.byID[id]; !ok {
		return nil, fmt.Errorf("remove placement %s: %w", id, ErrNotFound)
	}
	var orphaned []ID
	for _, c := range s.Children(id) {
		c.ParentID = ZeroID
		orphaned = append(orphaned, c.ID)
	}
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(x ID) bool { return x == id })
	if len(orphaned) > 0 {
		slog.Debug("Cleared parent of orphaned placements", "parent", id, "children", orphaned)
	}
	return orphaned, nil
}

// Snapshot returns deep copies of every placement, in insertion order.
// Mutating the result does not affect the store.
func (s *Store) Snapshot() ([]Placement, error) {
	out := make([]Placement, len(s.order))
	for i, id := range s.order {
		if err := copier.CopyWithOption(&out[i], s.byID[id], copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("snapshot placement %s: %w", id, err)
		}
	}
	return out, nil
}
