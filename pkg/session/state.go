package session

import "github.com/chazu/stagehand/pkg/geom"

// State is the gesture phase. Exactly one of Idle, Translating or Rotating.
type State interface {
	isState()
}

// Idle means no gesture is in progress, or one has begun but not yet
// chosen between translating and rotating.
type Idle struct{}

// Translating drags the object across a horizontal plane.
type Translating struct {
	// Offset is added to the pointer's plane intersection so the object does
	// not jump to put its origin under the pointer.
	Offset geom.Vec3
	// PlaneY is the height of the drag plane.
	PlaneY float64
}

// Rotating turns the object by horizontal pointer travel.
type Rotating struct {
	StartPointerX float64
	StartRotation float64
}

func (Idle) isState()        {}
func (Translating) isState() {}
func (Rotating) isState()    {}
