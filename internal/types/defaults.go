package types

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
)

// DefaultSpec is what a class fills in when an expression leaves it out
type DefaultSpec struct {
	Dependencies *DependencySet // keyed like the class's own dependencies, possibly a subset
	Intensity    ast.Intensity
}

// Defaults are the defaults of one class, declared or inherited
type Defaults struct {
	AllUsages  DefaultSpec
	GainOnly   DefaultSpec
	RemoveOnly DefaultSpec
}

// Spec returns the spec for a kind of usage
func (d *Defaults) Spec(kind declaration.DefaultKind) DefaultSpec {
	switch kind {
	case declaration.GainOnly:
		return d.GainOnly
	case declaration.RemoveOnly:
		return d.RemoveOnly
	default:
		return d.AllUsages
	}
}

// defaultsForClass combines the class's own defaults with those of its
// superclasses. For each slot, and for each intensity, the nearest classes that
// declare something win: a class overridden by any other declaring class is
// ignored. Several winners for a slot merge by glb; several different
// intensities are a conflict.
func defaultsForClass(c *Class) (*Defaults, error) {
	out := &Defaults{}
	for _, kind := range []declaration.DefaultKind{declaration.AllUsages, declaration.GainOnly, declaration.RemoveOnly} {
		deps, err := gatherDefaultDependencies(c, kind)
		if err != nil {
			return nil, err
		}
		intensity, err := inheritIntensity(c, kind)
		if err != nil {
			return nil, err
		}
		spec := DefaultSpec{Dependencies: deps, Intensity: intensity}
		switch kind {
		case declaration.AllUsages:
			out.AllUsages = spec
		case declaration.GainOnly:
			out.GainOnly = spec
		case declaration.RemoveOnly:
			out.RemoveOnly = spec
		}
	}
	return out, nil
}

func gatherDefaultDependencies(c *Class, kind declaration.DefaultKind) (*DependencySet, error) {
	own, err := c.Dependencies()
	if err != nil {
		return nil, err
	}
	declared := make(map[*Class]*DependencySet)
	for _, s := range c.AllSuperclasses() {
		specs := s.decl.Defaults.Default(kind).Specs
		if len(specs) == 0 {
			continue
		}
		t, err := c.loader.Resolve(s.ClassName().Of(specs...))
		if err != nil {
			return nil, fmt.Errorf("%s defaults of %s: %w", kind, s, err)
		}
		declared[s] = t.narrowedDependencies()
	}

	var out []Dependency
	for _, key := range own.Keys() {
		var candidates []Dependency
		for _, s := range nearest(c, func(s *Class) bool {
			_, ok := declaredKey(declared[s], key)
			return ok
		}) {
			d, _ := declaredKey(declared[s], key)
			candidates = append(candidates, d)
		}
		if len(candidates) == 0 {
			continue
		}
		merged := candidates[0]
		for _, d := range candidates[1:] {
			glb, ok := glbDependency(merged, d)
			if !ok {
				return nil, &DefaultsConflictError{
					Class: c.ClassName(),
					Kind:  kind,
					What:  merged.String() + " and " + d.String(),
				}
			}
			merged = glb
		}
		out = append(out, merged)
	}
	return newDependencySet(out), nil
}

func declaredKey(deps *DependencySet, key Key) (Dependency, bool) {
	if deps == nil {
		return nil, false
	}
	return deps.Get(key)
}

func inheritIntensity(c *Class, kind declaration.DefaultKind) (ast.Intensity, error) {
	found := set.New[ast.Intensity](0)
	var ordered []ast.Intensity
	for _, s := range nearest(c, func(s *Class) bool {
		return s.decl.Defaults.Default(kind).Intensity != ast.IntensityUnset
	}) {
		if i := s.decl.Defaults.Default(kind).Intensity; found.Insert(i) {
			ordered = append(ordered, i)
		}
	}
	switch len(ordered) {
	case 0:
		return ast.IntensityUnset, nil
	case 1:
		return ordered[0], nil
	default:
		symbols := make([]string, len(ordered))
		for i, in := range ordered {
			symbols[i] = in.Symbol()
		}
		return ast.IntensityUnset, &DefaultsConflictError{
			Class: c.ClassName(),
			Kind:  kind,
			What:  "intensities " + strings.Join(symbols, " "),
		}
	}
}

// nearest returns the superclasses of c (c included) that declare something,
// dropping any that another declaring class overrides
func nearest(c *Class, declares func(*Class) bool) []*Class {
	var having []*Class
	for _, s := range c.AllSuperclasses() {
		if declares(s) {
			having = append(having, s)
		}
	}
	overridden := set.New[*Class](0)
	for _, s := range having {
		for _, p := range s.ProperSuperclasses() {
			overridden.Insert(p)
		}
	}
	var out []*Class
	for _, s := range having {
		if !overridden.Contains(s) {
			out = append(out, s)
		}
	}
	return out
}
