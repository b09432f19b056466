// Package persist defines the persistence collaborator the editor forwards
// committed changes to. Implementations live in sub-packages: sqlite keeps
// placements in a local database, httpapi talks to a REST backend.
//
// Every call is made off the interaction loop; implementations may block.
package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/stagehand/pkg/placement"
)

var (
	ErrNotFound     = errors.New("placement not found")
	ErrInvalidScope = errors.New("invalid removal scope")
)

// Scope selects what RemovePlacement deletes besides the placement itself.
type Scope string

const (
	ScopeSingle       Scope = "single"        // only the placement; children are orphaned
	ScopeWithChildren Scope = "with-children" // the placement and everything resting on it
	ScopeGroup        Scope = "group"         // every placement sharing its group id
)

// ParseScope validates s. The empty string means ScopeSingle.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeSingle:
		return ScopeSingle, nil
	case ScopeWithChildren, ScopeGroup:
		return Scope(s), nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidScope)
}

// Store is the persistence collaborator.
type Store interface {
	// UpdatePlacement applies patch and returns the stored record.
	UpdatePlacement(ctx context.Context, id placement.ID, patch Patch) (*placement.Placement, error)
	// RemovePlacement deletes id and whatever scope adds, returning every
	// removed id.
	RemovePlacement(ctx context.Context, id placement.ID, scope Scope) ([]placement.ID, error)
	// DuplicatePlacement copies id, and any children resting on it, under new
	// ids. The copy of id comes first.
	DuplicatePlacement(ctx context.Context, id placement.ID) ([]placement.Placement, error)
	// SetLocked sets the lock flag and returns the stored record.
	SetLocked(ctx context.Context, id placement.ID, locked bool) (*placement.Placement, error)
}
