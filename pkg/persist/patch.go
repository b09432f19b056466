package persist

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
)

// ParentChange is a change of parent reference. A zero ID clears the parent.
type ParentChange struct {
	ID placement.ID
}

// IsClear reports whether the change removes the parent.
func (c ParentChange) IsClear() bool {
	return c.ID.IsZero()
}

// Patch is a partial update of one placement. Nil fields are left alone.
// On the wire a cleared parent is an explicit null, an unchanged parent is an
// absent key.
type Patch struct {
	Position *geom.Vec3
	Rotation *float64
	Parent   *ParentChange
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Position == nil && p.Rotation == nil && p.Parent == nil
}

// Apply writes the patch onto pl. It does not validate the parent.
func (p Patch) Apply(pl *placement.Placement) {
	if p.Position != nil {
		pl.Position = *p.Position
	}
	if p.Rotation != nil {
		pl.Rotation = *p.Rotation
	}
	if p.Parent != nil {
		pl.ParentID = p.Parent.ID
	}
}

type patchWire struct {
	Position *geom.Vec3    `json:"position,omitempty"`
	Rotation *float64      `json:"rotation,omitempty"`
	Parent   *placement.ID `json:"parentElementId,omitempty"`
}

func (p Patch) MarshalJSON() ([]byte, error) {
	w := patchWire{Position: p.Position, Rotation: p.Rotation}
	if p.Parent != nil && !p.Parent.IsClear() {
		id := p.Parent.ID
		w.Parent = &id
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	if p.Parent != nil && p.Parent.IsClear() {
		// Splice an explicit null in place of the omitted key.
		b = bytes.TrimSuffix(b, []byte("}"))
		if len(b) > 1 {
			b = append(b, ',')
		}
		b = append(b, []byte(`"parentElementId":null}`)...)
	}
	return b, nil
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	*p = Patch{}
	if v, ok := raw["position"]; ok && !isNull(v) {
		var pos geom.Vec3
		if err := json.Unmarshal(v, &pos); err != nil {
			return fmt.Errorf("decode patch position: %w", err)
		}
		p.Position = &pos
	}
	if v, ok := raw["rotation"]; ok && !isNull(v) {
		var rot float64
		if err := json.Unmarshal(v, &rot); err != nil {
			return fmt.Errorf("decode patch rotation: %w", err)
		}
		p.Rotation = &rot
	}
	if v, ok := raw["parentElementId"]; ok {
		var id placement.ID
		if !isNull(v) {
			if err := json.Unmarshal(v, &id); err != nil {
				return fmt.Errorf("decode patch parent: %w", err)
			}
		}
		p.Parent = &ParentChange{ID: id}
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
