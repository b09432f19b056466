package script

import (
	"strings"
	"testing"

	"github.com/chazu/stagehand/pkg/constrain"
	"github.com/chazu/stagehand/pkg/placement"
)

func evalOK(t *testing.T, src string) *Layout {
	t.Helper()
	l, evalErrs, err := NewEngine().Evaluate(src)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	return l
}

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`(place "a" :at x)`, `(place "a" "__kw_at" x)`},
		{`(def round-table 1)`, `(def round_table 1)`},
		{`(- x 1)`, `(- x 1)`},
		{`(place "round-table" :name "a :b")`, `(place "round-table" "__kw_name" "a :b")`},
		{"; a comment\n(+ 1 2)", "// a comment\n(+ 1 2)"},
		{`(x := 1)`, `(x := 1)`},
	}
	for _, tt := range tests {
		if got := preprocessSource(tt.in); got != tt.want {
			t.Errorf("preprocessSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlaceBasic(t *testing.T) {
	l := evalOK(t, `
(place "t1" :name "Round Table" :at (vec3 1 0 -2) :rotation 450
        :dims (dims :width 1.5 :depth 1.5 :height 0.75)
        :group "g1" :catalog "sku-9")
`)
	if len(l.Placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(l.Placements))
	}
	p := l.Placements[0]
	if p.ID != "t1" || p.Meta.Name != "Round Table" {
		t.Errorf("unexpected identity: %+v", p)
	}
	if p.Position.X != 1 || p.Position.Z != -2 {
		t.Errorf("unexpected position: %+v", p.Position)
	}
	if p.Rotation != 90 {
		t.Errorf("rotation = %v, want 90", p.Rotation)
	}
	if p.Meta.Dimensions == nil || p.Meta.Dimensions.Height != 0.75 {
		t.Errorf("unexpected dims: %+v", p.Meta.Dimensions)
	}
	if p.Meta.GroupID != "g1" || p.Meta.CatalogID != "sku-9" {
		t.Errorf("unexpected tags: %+v", p.Meta)
	}
}

func TestPlaceFlags(t *testing.T) {
	l := evalOK(t, `(place "s" :stackable false :locked true :radius 0.4)`)
	p := l.Placements[0]
	if p.Meta.Stackable == nil || *p.Meta.Stackable {
		t.Errorf("expected explicit non-stackable, got %v", p.Meta.Stackable)
	}
	if !p.Locked {
		t.Error("expected locked")
	}
	if p.Meta.Radius != 0.4 {
		t.Errorf("radius = %v", p.Meta.Radius)
	}
}

func TestPlaceAutoID(t *testing.T) {
	l := evalOK(t, `(place :name "Chair") (place :name "Chair")`)
	if len(l.Placements) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(l.Placements))
	}
	if l.Placements[0].ID != "placement-1" || l.Placements[1].ID != "placement-2" {
		t.Errorf("unexpected ids %s, %s", l.Placements[0].ID, l.Placements[1].ID)
	}
}

func TestPlaceDuplicateID(t *testing.T) {
	_, evalErrs, err := NewEngine().Evaluate(`(place "a") (place "a")`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", evalErrs)
	}
}

func TestPlaceOnParent(t *testing.T) {
	l := evalOK(t, `
(def table (place "t1" :at (vec3 2 0 3) :dims (dims :width 1 :depth 1 :height 0.75)))
(place "c1" :name "Candle" :on table)
(place "c2" :name "Vase" :on "t1" :at (vec3 2.2 0 3.1))
`)
	c1 := l.Find("c1")
	if c1 == nil || c1.ParentID != "t1" {
		t.Fatalf("expected c1 on t1, got %+v", c1)
	}
	if c1.Position.X != 2 || c1.Position.Z != 3 || c1.Position.Y != 0.75 {
		t.Errorf("c1 should sit on the table top, got %+v", c1.Position)
	}
	c2 := l.Find("c2")
	if c2.Position.X != 2.2 || c2.Position.Y != 0.75 {
		t.Errorf("c2 should keep its x/z and sit on top, got %+v", c2.Position)
	}
}

func TestVenue(t *testing.T) {
	l := evalOK(t, `(venue :width 12 :depth 8 :height 4)`)
	if l.Venue == nil {
		t.Fatal("expected venue")
	}
	if l.Venue.Margin != constrain.DefaultMargin {
		t.Errorf("margin = %v, want default", l.Venue.Margin)
	}
	box := l.Venue.Box()
	if box.Min.X != -6 || box.Max.X != 6 || box.Min.Z != -4 || box.Max.Z != 4 {
		t.Errorf("unexpected box %+v", box)
	}
	if box.Min.Y != 0 || box.Max.Y != 4 {
		t.Errorf("venue floor should be at y=0, got %+v", box)
	}
}

func TestVenueErrors(t *testing.T) {
	for _, src := range []string{
		`(venue :width 0 :depth 8)`,
		`(venue :width 4 :depth 4 :margin -1)`,
		`(venue :width 4 :depth 4) (venue :width 4 :depth 4)`,
	} {
		_, evalErrs, err := NewEngine().Evaluate(src)
		if err != nil {
			t.Fatalf("%s: unexpected fatal error: %v", src, err)
		}
		if len(evalErrs) == 0 {
			t.Errorf("%s: expected eval error", src)
		}
	}
}

func TestVec3Arity(t *testing.T) {
	_, evalErrs, _ := NewEngine().Evaluate(`(vec3 1 2)`)
	if len(evalErrs) == 0 {
		t.Fatal("expected arity error")
	}
}

func TestLayoutStore(t *testing.T) {
	l := &Layout{Placements: []placement.Placement{
		{ID: "c1", ParentID: "t1"},
		{ID: "t1"},
	}}
	s, err := l.Store()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 placements, got %d", s.Len())
	}
	if kids := s.Children("t1"); len(kids) != 1 || kids[0].ID != "c1" {
		t.Errorf("unexpected children %v", kids)
	}

	bad := &Layout{Placements: []placement.Placement{{ID: "c1", ParentID: "missing"}}}
	if _, err := bad.Store(); err == nil {
		t.Error("expected dangling parent error")
	}
}

func TestLayoutValidate(t *testing.T) {
	l := evalOK(t, `
(place "a" :at (vec3 0 0 0) :radius 0.5)
(place "b" :at (vec3 0.1 0 0) :radius 0.5)
`)
	res := l.Validate(placement.NewFootprintResolver())
	if len(res.Warnings) == 0 {
		t.Error("expected overlap warning")
	}
}
