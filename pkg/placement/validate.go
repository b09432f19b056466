package placement

import (
	"fmt"
	"math"

	"github.com/chazu/stagehand/pkg/geom"
)

// Collision tolerances shared by the collision resolver and layout validation.
const (
	DefaultClearance    = 0.02
	DefaultMinThreshold = 0.1
	DefaultFloorEpsilon = 0.01
)

// OverlapThreshold is the planar distance below which two footprints of radius
// r1 and r2 overlap.
func OverlapThreshold(r1, r2, clearance, minThreshold float64) float64 {
	return math.Max(minThreshold, r1+r2-clearance)
}

// ValidationSeverity indicates whether a finding blocks loading a layout.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks loading
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ID       ID
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] placement %s: %s", e.Severity, e.ID, e.Message)
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// ValidateLayout checks a list of placements before it is loaded into a
// store. It never mutates its input.
func ValidateLayout(ps []Placement, fr *FootprintResolver) ValidationResult {
	var res ValidationResult
	add := func(e ValidationError) {
		if e.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, e)
		} else {
			res.Errors = append(res.Errors, e)
		}
	}
	for _, e := range validateIDs(ps) {
		add(e)
	}
	for _, e := range validateParents(ps) {
		add(e)
	}
	for _, e := range validateDimensions(ps) {
		add(e)
	}
	for _, e := range validateFloorOverlaps(ps, fr) {
		add(e)
	}
	return res
}

// validateIDs checks for empty and duplicate ids.
func validateIDs(ps []Placement) []ValidationError {
	var errs []ValidationError
	seen := make(map[ID]bool, len(ps))
	for _, p := range ps {
		if p.ID.IsZero() {
			errs = append(errs, ValidationError{Message: "placement has an empty id", Severity: SeverityError})
			continue
		}
		if seen[p.ID] {
			errs = append(errs, ValidationError{ID: p.ID, Message: "duplicate id", Severity: SeverityError})
		}
		seen[p.ID] = true
	}
	return errs
}

// validateParents checks self, dangling and chained parent references.
func validateParents(ps []Placement) []ValidationError {
	var errs []ValidationError
	byID := make(map[ID]Placement, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
	}
	for _, p := range ps {
		if p.ParentID.IsZero() {
			continue
		}
		if p.ParentID == p.ID {
			errs = append(errs, ValidationError{ID: p.ID, Message: "placement rests on itself", Severity: SeverityError})
			continue
		}
		parent, ok := byID[p.ParentID]
		if !ok {
			errs = append(errs, ValidationError{
				ID:       p.ID,
				Message:  fmt.Sprintf("parent %s does not exist", p.ParentID),
				Severity: SeverityError,
			})
			continue
		}
		if !parent.ParentID.IsZero() {
			errs = append(errs, ValidationError{
				ID:       p.ID,
				Message:  fmt.Sprintf("parent %s itself rests on %s; only one level of stacking is supported", parent.ID, parent.ParentID),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateDimensions checks that declared sizes are positive.
func validateDimensions(ps []Placement) []ValidationError {
	var errs []ValidationError
	for _, p := range ps {
		if p.Meta.Radius < 0 {
			errs = append(errs, ValidationError{
				ID:       p.ID,
				Message:  fmt.Sprintf("radius is %.4f, must not be negative", p.Meta.Radius),
				Severity: SeverityError,
			})
		}
		d := p.Meta.Dimensions
		if d == nil {
			continue
		}
		if d.Width < 0 || d.Depth < 0 || d.Height < 0 {
			errs = append(errs, ValidationError{
				ID:       p.ID,
				Message:  fmt.Sprintf("dimensions %.3fx%.3fx%.3f must not be negative", d.Width, d.Depth, d.Height),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateFloorOverlaps warns about floor-level placements whose footprints
// already overlap. Loading still succeeds; the first drag will not be able to
// push them further into each other.
func validateFloorOverlaps(ps []Placement, fr *FootprintResolver) []ValidationError {
	var warnings []ValidationError
	for i := 0; i < len(ps); i++ {
		a := &ps[i]
		if a.HasParent() || a.Position.Y >= DefaultFloorEpsilon {
			continue
		}
		for j := i + 1; j < len(ps); j++ {
			b := &ps[j]
			if b.HasParent() || b.Position.Y >= DefaultFloorEpsilon {
				continue
			}
			limit := OverlapThreshold(fr.Radius(a), fr.Radius(b), DefaultClearance, DefaultMinThreshold)
			if d := geom.PlanarDistance(a.Position, b.Position); d < limit {
				warnings = append(warnings, ValidationError{
					ID:       a.ID,
					Message:  fmt.Sprintf("overlaps %s on the floor (distance %.3f < %.3f)", b.ID, d, limit),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return warnings
}
