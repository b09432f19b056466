package script

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/stagehand/pkg/constrain"
	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/chazu/stagehand/pkg/spatial"
)

// preprocessSource rewrites scene source before handing it to zygomys:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords never
//     collide with user variables.
//  2. Kebab-case identifiers become snake_case (round-table -> round_table),
//     since zygomys reads a bare hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left alone.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j
		case c == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// sexpVec3 carries a geom.Vec3 between builtins.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpDims carries declared dimensions from `dims` to `place`.
type sexpDims struct {
	dims placement.Dimensions
}

func (d *sexpDims) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(dims %gx%gx%g)", d.dims.Width, d.dims.Depth, d.dims.Height)
}
func (d *sexpDims) Type() *zygo.RegisteredType { return nil }

// sexpPlacementRef is what `place` returns, so scripts can bind a placement
// to a variable and pass it to :on.
type sexpPlacementRef struct {
	id placement.ID
}

func (r *sexpPlacementRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(placement %q)", r.id)
}
func (r *sexpPlacementRef) Type() *zygo.RegisteredType { return nil }

// kwPrefix marks keyword names rewritten by preprocessSource.
const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args into keyword and positional arguments. A trailing
// keyword with no value is recorded as a nil flag.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toDims(s zygo.Sexp) (placement.Dimensions, error) {
	if d, ok := s.(*sexpDims); ok {
		return d.dims, nil
	}
	return placement.Dimensions{}, fmt.Errorf("expected dims, got %T (%s)", s, s.SexpString(nil))
}

// toPlacementID accepts either a placement reference or a plain id string.
func toPlacementID(s zygo.Sexp) (placement.ID, error) {
	switch v := s.(type) {
	case *sexpPlacementRef:
		return v.id, nil
	case *zygo.SexpStr:
		return placement.ID(v.S), nil
	}
	return placement.ZeroID, fmt.Errorf("expected placement or id, got %T (%s)", s, s.SexpString(nil))
}

// floatKW reads an optional numeric keyword into dst.
func floatKW(pa kwArgs, fn, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

func stringKW(pa kwArgs, fn, key string, dst *string) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = s
	return nil
}

// registerBuiltins installs the scene builtins into env. They append to l as
// the script runs.
func registerBuiltins(env *zygo.Zlisp, l *Layout) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: argument %d: %w", i+1, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: geom.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (dims :width 1.5 :depth 0.8 :height 0.75)
	env.AddFunction("dims", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var d placement.Dimensions
		for key, dst := range map[string]*float64{"width": &d.Width, "depth": &d.Depth, "height": &d.Height} {
			if err := floatKW(pa, "dims", key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		return &sexpDims{dims: d}, nil
	})

	// (venue :width 12 :depth 8 :height 4 :margin 0.05)
	env.AddFunction("venue", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if l.Venue != nil {
			return zygo.SexpNull, fmt.Errorf("venue: already declared")
		}
		pa := parseArgs(args)
		v := Venue{Margin: constrain.DefaultMargin}
		for key, dst := range map[string]*float64{"width": &v.Width, "depth": &v.Depth, "height": &v.Height, "margin": &v.Margin} {
			if err := floatKW(pa, "venue", key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		if v.Width <= 0 || v.Depth <= 0 {
			return zygo.SexpNull, fmt.Errorf("venue: width and depth must be positive")
		}
		if v.Margin < 0 {
			return zygo.SexpNull, fmt.Errorf("venue: margin must not be negative")
		}
		if v.Height <= 0 {
			v.Height = 3
		}
		l.Venue = &v
		return zygo.SexpNull, nil
	})

	// (place "id" :name "Candle" :at (vec3 0 0 0) :rotation 90 :on "t1" ...)
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := placement.Placement{}

		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: id: %w", err)
			}
			p.ID = placement.ID(s)
		} else {
			p.ID = l.nextID()
		}
		if l.Find(p.ID) != nil {
			return zygo.SexpNull, fmt.Errorf("place: duplicate id %q", p.ID)
		}

		if v, ok := pa.kw["at"]; ok {
			at, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			p.Position = at
		}
		if err := floatKW(pa, "place", "rotation", &p.Rotation); err != nil {
			return zygo.SexpNull, err
		}
		p.Rotation = geom.NormalizeDegrees(p.Rotation)
		if err := floatKW(pa, "place", "radius", &p.Meta.Radius); err != nil {
			return zygo.SexpNull, err
		}
		for key, dst := range map[string]*string{"name": &p.Meta.Name, "group": &p.Meta.GroupID, "catalog": &p.Meta.CatalogID} {
			if err := stringKW(pa, "place", key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		if v, ok := pa.kw["stackable"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: stackable: %w", err)
			}
			p.Meta.Stackable = placement.Bool(b)
		}
		if v, ok := pa.kw["locked"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: locked: %w", err)
			}
			p.Locked = b
		}
		if v, ok := pa.kw["dims"]; ok {
			d, err := toDims(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: dims: %w", err)
			}
			p.Meta.Dimensions = &d
		}
		if v, ok := pa.kw["on"]; ok {
			parent, err := toPlacementID(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: on: %w", err)
			}
			p.ParentID = parent
			// Resting on a declared parent without an explicit height puts the
			// object on its top surface.
			if pp := l.Find(parent); pp != nil {
				if _, hasAt := pa.kw["at"]; !hasAt {
					p.Position = pp.Position
				}
				if p.Position.Y == 0 {
					p.Position.Y = pp.Position.Y + pp.Height(spatial.DefaultHeight)
				}
			}
		}

		l.Placements = append(l.Placements, p)
		return &sexpPlacementRef{id: p.ID}, nil
	})
}
