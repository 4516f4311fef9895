package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/bspgrid/pkg/spatial"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: max-depth -> max_depth
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
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

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vector so it can be passed between builtins.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpRegion wraps the region returned by `region`.
type sexpRegion struct {
	region spatial.Region
}

func (r *sexpRegion) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(region %s)", r.region)
}
func (r *sexpRegion) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func (a kwArgs) has(name string) bool {
	_, ok := a.kw[name]
	return ok
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a Sexp. Floats are accepted when they hold
// an integral value.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected integer, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// vec3 extracts a required vec3 keyword argument of builtin fn.
func (a kwArgs) vec3(fn, name string) (v3.Vec, error) {
	s, ok := a.kw[name]
	if !ok {
		return v3.Vec{}, fmt.Errorf("%s: missing :%s", fn, name)
	}
	v, err := toVec3(s)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %s: %w", fn, name, err)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// maxGridPoints bounds the number of points a single grid form may produce.
const maxGridPoints = 1 << 20

// gridCount returns how many lattice steps fit in [from, to].
func gridCount(from, to, step float64) int {
	return int(math.Floor((to-from)/step+1e-9)) + 1
}

// registerBuiltins installs the scene builtins into a zygomys environment.
// The builtins populate scene during evaluation; the first error any of them
// returns is stored in failed.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, scene *Scene, failed *error) {
	// record keeps the first builtin error so evaluate can report it
	// verbatim instead of relying on the interpreter's formatting.
	record := func(fn func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error)) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			res, err := fn(env, name, args)
			if err != nil && *failed == nil {
				*failed = err
			}
			return res, err
		}
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", record(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}

		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	}))

	// -----------------------------------------------------------------------
	// (region :center (vec3 0 0 0) :size (vec3 10 10 10))
	// (region :min (vec3 -5 -5 -5) :max (vec3 5 5 5))
	// -----------------------------------------------------------------------
	env.AddFunction("region", record(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if scene.Root != nil {
			return zygo.SexpNull, fmt.Errorf("region: already defined as %s", *scene.Root)
		}
		pa := parseArgs(args)

		var r spatial.Region
		switch {
		case pa.has("center") || pa.has("size"):
			center, err := pa.vec3("region", "center")
			if err != nil {
				return zygo.SexpNull, err
			}
			size, err := pa.vec3("region", "size")
			if err != nil {
				return zygo.SexpNull, err
			}
			r = spatial.NewRegion(center, size)
		case pa.has("min") || pa.has("max"):
			lo, err := pa.vec3("region", "min")
			if err != nil {
				return zygo.SexpNull, err
			}
			hi, err := pa.vec3("region", "max")
			if err != nil {
				return zygo.SexpNull, err
			}
			r = spatial.RegionFromBounds(lo, hi)
		default:
			return zygo.SexpNull, fmt.Errorf("region requires :center and :size, or :min and :max")
		}

		s := r.Size()
		if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
			return zygo.SexpNull, fmt.Errorf("region: size must be positive on every axis, got %v", s)
		}

		scene.Root = &r
		return &sexpRegion{region: r}, nil
	}))

	// -----------------------------------------------------------------------
	// (point 1 2 3) or (point (vec3 1 2 3))
	// -----------------------------------------------------------------------
	env.AddFunction("point", record(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var p spatial.Point
		switch len(args) {
		case 1:
			v, err := toVec3(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point: %w", err)
			}
			p = v
		case 3:
			var c [3]float64
			for i, axis := range []string{"x", "y", "z"} {
				f, err := toFloat64(args[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("point: %s: %w", axis, err)
				}
				c[i] = f
			}
			p = spatial.Point{X: c[0], Y: c[1], Z: c[2]}
		default:
			return zygo.SexpNull, fmt.Errorf("point requires a vec3 or 3 numbers, got %d arguments", len(args))
		}

		scene.Points = append(scene.Points, p)
		return &sexpVec3{vec: p}, nil
	}))

	// -----------------------------------------------------------------------
	// (grid :from (vec3 -4 -4 -4) :to (vec3 4 4 4) :step 2)
	//
	// Appends a lattice of points with bounds included, the way voxel
	// centers are laid out.
	// -----------------------------------------------------------------------
	env.AddFunction("grid", record(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		from, err := pa.vec3("grid", "from")
		if err != nil {
			return zygo.SexpNull, err
		}
		to, err := pa.vec3("grid", "to")
		if err != nil {
			return zygo.SexpNull, err
		}
		stepArg, ok := pa.kw["step"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("grid: missing :step")
		}
		step, err := toFloat64(stepArg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid: step: %w", err)
		}
		if step <= 0 {
			return zygo.SexpNull, fmt.Errorf("grid: step must be positive, got %g", step)
		}
		if to.X < from.X || to.Y < from.Y || to.Z < from.Z {
			return zygo.SexpNull, fmt.Errorf("grid: :to %v is below :from %v", to, from)
		}

		nx := gridCount(from.X, to.X, step)
		ny := gridCount(from.Y, to.Y, step)
		nz := gridCount(from.Z, to.Z, step)
		if total := float64(nx) * float64(ny) * float64(nz); total > maxGridPoints {
			return zygo.SexpNull, fmt.Errorf("grid: %g points exceeds the limit of %d", total, maxGridPoints)
		}

		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				for k := 0; k < nz; k++ {
					scene.Points = append(scene.Points, spatial.Point{
						X: from.X + float64(i)*step,
						Y: from.Y + float64(j)*step,
						Z: from.Z + float64(k)*step,
					})
				}
			}
		}
		return &zygo.SexpInt{Val: int64(nx * ny * nz)}, nil
	}))

	// -----------------------------------------------------------------------
	// (max-depth 8)
	// -----------------------------------------------------------------------
	env.AddFunction("max_depth", record(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("max-depth requires exactly 1 argument, got %d", len(args))
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("max-depth: %w", err)
		}
		if n < 0 {
			return zygo.SexpNull, fmt.Errorf("max-depth: must be non-negative, got %d", n)
		}
		scene.Options.MaxDepth = n
		return zygo.SexpNull, nil
	}))

	// -----------------------------------------------------------------------
	// (leaf-capacity 4)
	// -----------------------------------------------------------------------
	env.AddFunction("leaf_capacity", record(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("leaf-capacity requires exactly 1 argument, got %d", len(args))
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("leaf-capacity: %w", err)
		}
		if n < 1 {
			return zygo.SexpNull, fmt.Errorf("leaf-capacity: must be at least 1, got %d", n)
		}
		scene.Options.LeafCapacity = n
		return zygo.SexpNull, nil
	}))

	// -----------------------------------------------------------------------
	// (stop-when-unsplittable)
	// -----------------------------------------------------------------------
	env.AddFunction("stop_when_unsplittable", record(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("stop-when-unsplittable takes no arguments")
		}
		scene.Options.StopWhenUnsplittable = true
		return zygo.SexpNull, nil
	}))
}
