package placement

import (
	"math"
	"strings"
)

// Footprint defaults.
const (
	DefaultRadius = 0.5
)

// DefaultStackKeywords are the name fragments, per category, that mark an
// object as able to rest on other objects when it declares no explicit flag.
var DefaultStackKeywords = map[string][]string{
	"floral":    {"flower", "floral", "bouquet", "vase", "centerpiece", "centrepiece", "arrangement", "plant"},
	"tableware": {"plate", "charger", "glass", "goblet", "cup", "bowl", "cutlery", "napkin", "tableware"},
	"candle":    {"candle", "candleholder", "candelabra", "votive", "lantern", "taper"},
}

// FootprintResolver derives footprint radius and stackability from a
// placement's declared metadata.
type FootprintResolver struct {
	DefaultRadius float64
	Keywords      map[string][]string
}

// NewFootprintResolver returns a resolver with the package defaults.
func NewFootprintResolver() *FootprintResolver {
	return &FootprintResolver{
		DefaultRadius: DefaultRadius,
		Keywords:      DefaultStackKeywords,
	}
}

// Radius returns the collision radius of p: the explicit radius if positive,
// else half the larger declared planar dimension, else the default.
func (r *FootprintResolver) Radius(p *Placement) float64 {
	if p.Meta.Radius > 0 {
		return p.Meta.Radius
	}
	if d := p.Meta.Dimensions; d != nil {
		if half := math.Max(d.Width, d.Depth) / 2; half > 0 {
			return half
		}
	}
	if r.DefaultRadius > 0 {
		return r.DefaultRadius
	}
	return DefaultRadius
}

// Stackable reports whether p tries to rest on other placements: the
// explicit flag if declared, else a keyword match on the name.
func (r *FootprintResolver) Stackable(p *Placement) bool {
	if p.Meta.Stackable != nil {
		return *p.Meta.Stackable
	}
	return r.Category(p.Meta.Name) != ""
}

// Category returns the keyword category that name falls into, or "".
func (r *FootprintResolver) Category(name string) string {
	name = strings.ToLower(name)
	if name == "" {
		return ""
	}
	// Longest keyword wins so "candleholder" beats a shorter overlapping word.
	best, bestLen := "", 0
	for cat, words := range r.Keywords {
		for _, w := range words {
			if len(w) > bestLen && strings.Contains(name, w) {
				best, bestLen = cat, len(w)
			}
		}
	}
	return best
}
