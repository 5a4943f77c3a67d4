package types

import (
	"maps"
	"slices"
	"sync"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
)

// Component is an instance of a concrete type, such as `[OceanTile<Area42>]`.
// It exists only as the pairing of a type with the effects an instance carries.
type Component struct {
	typ          *Type
	effects      func() []*ast.Effect
	dependencies func() []*Component
}

func newComponent(t *Type) *Component {
	c := &Component{typ: t}
	c.effects = sync.OnceValue(c.computeEffects)
	c.dependencies = sync.OnceValue(func() []*Component {
		var out []*Component
		for _, d := range t.deps.deps {
			if td, ok := d.(*TypeDependency); ok {
				out = append(out, td.bound.ToComponent())
			}
		}
		return out
	})
	return c
}

// Type returns the concrete type of the component
func (c *Component) Type() *Type { return c.typ }

// DependencyComponents returns the components this one cannot exist without, in
// slot order. A class type such as `Class<Tile>` has none.
func (c *Component) DependencyComponents() []*Component { return c.dependencies() }

// Effects returns the class effects as they apply to this instance: `This` is
// the component's type and each simple default argument is replaced by the
// argument this type actually has
func (c *Component) Effects() []*ast.Effect { return c.effects() }

func (c *Component) computeEffects() []*ast.Effect {
	general, err := c.typ.root.DefaultType()
	if err != nil {
		general, _ = c.typ.root.BaseType()
	}
	subs := findSubstitutions(general.deps, c.typ.deps)
	self := c.typ.Expression()

	var out []*ast.Effect
	for _, e := range c.typ.root.ClassEffects() {
		e = ast.ReplaceInEffect(e, func(x *ast.Expression) *ast.Expression {
			if r, ok := subs[x.ClassName]; ok {
				return appendArguments(r, x)
			}
			return x
		})
		e = ast.ReplaceInEffect(e, func(x *ast.Expression) *ast.Expression {
			if x.ClassName == ast.This {
				return appendArguments(self, x)
			}
			return x
		})
		out = append(out, e)
	}
	return out
}

// appendArguments returns replacement followed by the arguments and refinement of x
func appendArguments(replacement, x *ast.Expression) *ast.Expression {
	r := replacement.WithArguments(append(slices.Clone(replacement.Arguments), x.Arguments...))
	if x.Refinement != nil {
		r = r.Has(ast.Join(r.Refinement, x.Refinement), x.Forgiving)
	}
	return r
}

func (c *Component) String() string { return "[" + c.typ.ExpressionFull().String() + "]" }

// findSubstitutions maps each class name that general binds simply to the
// expression specific binds in the same place, when the two differ. Nested
// dependencies are matched by their path of keys.
func findSubstitutions(general, specific *DependencySet) map[ast.ClassName]*ast.Expression {
	gen := flatten(general, "")
	spec := flatten(specific, "")
	subs := make(map[ast.ClassName]*ast.Expression)
	for _, path := range slices.Sorted(maps.Keys(gen)) {
		replacement, ok := spec[path]
		if !ok {
			continue
		}
		r, x := gen[path].Expression(), replacement.Expression()
		if _, seen := subs[r.ClassName]; !seen && r.Simple() && r.String() != x.String() {
			subs[r.ClassName] = x
		}
	}
	return subs
}

func flatten(deps *DependencySet, prefix string) map[string]Dependency {
	out := make(map[string]Dependency)
	for _, d := range deps.deps {
		path := prefix + "/" + d.Key().String()
		out[path] = d
		if td, ok := d.(*TypeDependency); ok {
			for p, nested := range flatten(td.bound.deps, path) {
				out[p] = nested
			}
		}
	}
	return out
}
