package types

import (
	"iter"
	"slices"
	"sync"

	"github.com/hashicorp/go-set/v3"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
)

// Class is a class loaded from a declaration. Each loader has its own universe
// of classes. While a declaration is inert data, a Class knows its place in the
// hierarchy and can produce types.
type Class struct {
	decl   *declaration.ClassDeclaration
	loader *Loader
	direct []*Class // empty only for Component

	superclasses     func() []*Class
	superclassSet    func() *set.Set[*Class]
	subclasses       func() []*Class
	directSubclasses func() []*Class
	intersection     func() bool
	effects          func() []*ast.Effect
	invariants       func() []ast.Requirement

	dependencies memo[*DependencySet]
	baseType     memo[*Type]
	classType    memo[*Type]
	defaults     memo[*Defaults]
	defaultType  memo[*Type]
}

func newClass(decl *declaration.ClassDeclaration, loader *Loader, direct []*Class) *Class {
	c := &Class{decl: decl, loader: loader, direct: direct}
	c.superclasses = sync.OnceValue(c.computeSuperclasses)
	c.superclassSet = sync.OnceValue(func() *set.Set[*Class] {
		return set.From(c.superclasses())
	})
	c.subclasses = sync.OnceValue(c.computeSubclasses)
	c.directSubclasses = sync.OnceValue(c.computeDirectSubclasses)
	c.intersection = sync.OnceValue(c.computeIntersectionType)
	c.effects = sync.OnceValue(c.computeClassEffects)
	c.invariants = sync.OnceValue(c.computeInvariants)
	return c
}

// ClassName returns the UpperCamelCase name of the class
func (c *Class) ClassName() ast.ClassName { return c.decl.ClassName }

// ShortName returns the short name, which is often the class name itself
func (c *Class) ShortName() ast.ClassName { return c.decl.Name() }

// Abstract reports whether the class was declared abstract
func (c *Class) Abstract() bool { return c.decl.Abstract }

// Docstring returns the declared documentation, if any
func (c *Class) Docstring() string { return c.decl.Docstring }

// Declaration returns the declaration the class was loaded from
func (c *Class) Declaration() *declaration.ClassDeclaration { return c.decl }

// Loader returns the class table that owns this class
func (c *Class) Loader() *Loader { return c.loader }

func (c *Class) String() string { return string(c.decl.ClassName) }

// HIERARCHY

// DirectSuperclasses returns the superclasses exactly one step away, in declared order
func (c *Class) DirectSuperclasses() []*Class { return c.direct }

// AllSuperclasses returns every class this one is a subclass of, including
// itself, ancestors first
func (c *Class) AllSuperclasses() []*Class { return c.superclasses() }

func (c *Class) computeSuperclasses() []*Class {
	var out []*Class
	seen := set.New[*Class](0)
	for _, d := range c.direct {
		for _, s := range d.AllSuperclasses() {
			if seen.Insert(s) {
				out = append(out, s)
			}
		}
	}
	return append(out, c)
}

// ProperSuperclasses returns AllSuperclasses without the class itself
func (c *Class) ProperSuperclasses() []*Class {
	all := c.AllSuperclasses()
	return all[:len(all)-1]
}

// IsSubtypeOf reports whether that is this class or one of its ancestors
func (c *Class) IsSubtypeOf(that *Class) bool {
	return c.superclassSet().Contains(that)
}

// AllSubclasses returns every class that is a subtype of this one, including
// itself. Panics before the table is frozen.
func (c *Class) AllSubclasses() []*Class { return c.subclasses() }

func (c *Class) computeSubclasses() []*Class {
	var out []*Class
	for _, other := range c.loader.AllClasses() {
		if other.IsSubtypeOf(c) {
			out = append(out, other)
		}
	}
	return out
}

// DirectSubclasses returns the classes naming this one as a direct superclass.
// Panics before the table is frozen.
func (c *Class) DirectSubclasses() []*Class { return c.directSubclasses() }

func (c *Class) computeDirectSubclasses() []*Class {
	var out []*Class
	for _, other := range c.loader.AllClasses() {
		if slices.Contains(other.direct, c) {
			out = append(out, other)
		}
	}
	return out
}

// IntersectionType reports whether this class is exactly the meet of its two or
// more direct superclasses: every loaded class that is a subtype of all of them
// is also a subtype of this class. Panics before the table is frozen.
func (c *Class) IntersectionType() bool { return c.intersection() }

func (c *Class) computeIntersectionType() bool {
	if len(c.direct) < 2 {
		return false
	}
	for _, other := range c.loader.AllClasses() {
		if c.subtypeOfAllDirect(other) && !other.IsSubtypeOf(c) {
			return false
		}
	}
	return true
}

func (c *Class) subtypeOfAllDirect(other *Class) bool {
	for _, d := range c.direct {
		if !other.IsSubtypeOf(d) {
			return false
		}
	}
	return true
}

// Glb returns the greatest lower bound of two classes. Unrelated classes meet
// only in an intersection type, which can be known only once frozen; before that
// they have none.
func (c *Class) Glb(that *Class) (*Class, bool) {
	switch {
	case c.IsSubtypeOf(that):
		return c, true
	case that.IsSubtypeOf(c):
		return that, true
	case !c.loader.frozen:
		return nil, false
	}
	var found *Class
	for _, sub := range c.AllSubclasses() {
		if !sub.IntersectionType() || !slices.Contains(sub.direct, c) || !slices.Contains(sub.direct, that) {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = sub
	}
	return found, found != nil
}

// Lub returns the least upper bound of two classes, which always exists. Among
// several nearest common superclasses the one with the most dependencies (then
// the deepest, then the first by name) wins.
func (c *Class) Lub(that *Class) *Class {
	common := c.superclassSet().Intersect(that.superclassSet())
	overridden := set.New[*Class](0)
	for s := range common.Items() {
		for _, p := range s.ProperSuperclasses() {
			overridden.Insert(p)
		}
	}

	var best *Class
	bestScore := -1
	for _, s := range c.AllSuperclasses() {
		if !common.Contains(s) || overridden.Contains(s) {
			continue
		}
		score := s.lubScore()
		if score > bestScore || score == bestScore && s.ClassName() < best.ClassName() {
			best, bestScore = s, score
		}
	}
	return best
}

func (c *Class) lubScore() int {
	typeDeps := 0
	if deps, err := c.Dependencies(); err == nil && !deps.IsClassType() {
		typeDeps = deps.Len()
	}
	return typeDeps*100 + len(c.AllSuperclasses())
}

// DEPENDENCIES

// Dependencies returns every slot of the class: the inherited ones, narrowed as
// the supertypes say, followed by the ones it declares
func (c *Class) Dependencies() (*DependencySet, error) {
	return c.dependencies.get("dependencies of "+c.String(), c.loader.frozen, func() (*DependencySet, error) {
		if c == c.loader.class {
			return classTypeDependencies(c.loader.component), nil
		}
		inherited, err := c.inheritedDependencies()
		if err != nil {
			return nil, err
		}
		declared, err := c.declaredDependencies()
		if err != nil {
			return nil, err
		}
		merged, _ := inherited.Glb(declared) // disjoint keys
		return merged, nil
	})
}

func (c *Class) declaredDependencies() (*DependencySet, error) {
	deps := make([]Dependency, len(c.decl.Dependencies))
	for i, expr := range c.decl.Dependencies {
		bound, err := c.loader.Resolve(expr)
		if err != nil {
			return nil, err
		}
		deps[i] = &TypeDependency{key: Key{DeclaringClass: c.ClassName(), Index: i}, bound: bound}
	}
	return newDependencySet(deps), nil
}

// inheritedDependencies merges the dependencies of every direct supertype. A
// supertype's dependency that mentions the supertype itself is rewritten to
// mention this class instead.
func (c *Class) inheritedDependencies() (*DependencySet, error) {
	supertypes, err := c.directSupertypes()
	if err != nil {
		return nil, err
	}
	result := newDependencySet(nil)
	for _, st := range supertypes {
		from := st.root.ClassName()
		mapped, err := st.deps.mapTypes(func(bound *Type) (*Type, error) {
			full := bound.ExpressionFull()
			args := make([]*ast.Expression, len(full.Arguments))
			for i, arg := range full.Arguments {
				args[i] = ast.ReplaceClassName(arg, from, c.ClassName())
			}
			return c.loader.Resolve(full.WithArguments(args))
		})
		if err != nil {
			return nil, err
		}
		merged, ok := result.Glb(mapped)
		if !ok {
			return nil, &DependencyConflictError{
				Class:     c.ClassName(),
				Supertype: st.String(),
				Existing:  result.String(),
			}
		}
		result = merged
	}
	return result, nil
}

// directSupertypes resolves the declared supertypes, with `This` meaning this class
func (c *Class) directSupertypes() ([]*Type, error) {
	if c == c.loader.component {
		return nil, nil
	}
	if len(c.decl.Supertypes) == 0 {
		base, err := c.loader.component.BaseType()
		if err != nil {
			return nil, err
		}
		return []*Type{base}, nil
	}
	out := make([]*Type, len(c.decl.Supertypes))
	for i, expr := range c.decl.Supertypes {
		t, err := c.loader.Resolve(ast.ReplaceClassName(expr, ast.This, c.ClassName()))
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// TYPES

// withAllDependencies builds a type of this class from a superset of its
// dependencies, keeping only its own keys in its own order
func (c *Class) withAllDependencies(deps *DependencySet) (*Type, error) {
	own, err := c.Dependencies()
	if err != nil {
		return nil, err
	}
	return newType(c, deps.subsetInOrder(own.Keys()), nil, false), nil
}

// BaseType returns the least specific type of this class, e.g. `Tile<Area>`
func (c *Class) BaseType() (*Type, error) {
	return c.baseType.get("base type of "+c.String(), c.loader.frozen, func() (*Type, error) {
		deps, err := c.Dependencies()
		if err != nil {
			return nil, err
		}
		return newType(c, deps, nil, false), nil
	})
}

// ClassType returns the type `Class<ThisClass>`
func (c *Class) ClassType() (*Type, error) {
	return c.classType.get("class type of "+c.String(), c.loader.frozen, func() (*Type, error) {
		return c.loader.class.withAllDependencies(classTypeDependencies(c))
	})
}

// Specialize resolves this class with the given arguments, as in `Tile<MarsArea>`
func (c *Class) Specialize(args []*ast.Expression) (*Type, error) {
	base, err := c.BaseType()
	if err != nil {
		return nil, err
	}
	return base.Specialize(args)
}

// Defaults returns the defaults this class declares or inherits
func (c *Class) Defaults() (*Defaults, error) {
	return c.defaults.get("defaults of "+c.String(), c.loader.frozen, func() (*Defaults, error) {
		return defaultsForClass(c)
	})
}

// DefaultType returns the base type narrowed by the all-usages defaults
func (c *Class) DefaultType() (*Type, error) {
	return c.defaultType.get("default type of "+c.String(), c.loader.frozen, func() (*Type, error) {
		base, err := c.BaseType()
		if err != nil {
			return nil, err
		}
		defaults, err := c.Defaults()
		if err != nil {
			return nil, err
		}
		deps, ok := base.deps.Glb(defaults.AllUsages.Dependencies)
		if !ok {
			return nil, &DefaultsConflictError{
				Class: c.ClassName(),
				Kind:  declaration.AllUsages,
				What:  defaults.AllUsages.Dependencies.String() + " does not fit " + base.deps.String(),
			}
		}
		return c.withAllDependencies(deps)
	})
}

// ConcreteTypes returns every concrete type whose root is exactly this class
func (c *Class) ConcreteTypes() (iter.Seq[*Type], error) {
	base, err := c.BaseType()
	if err != nil {
		return nil, err
	}
	return base.ConcreteSubtypesSameClass(), nil
}

// EFFECTS AND INVARIANTS

// DeclaredEffects returns the effects written on this class itself
func (c *Class) DeclaredEffects() []*ast.Effect { return c.decl.Effects }

// ClassEffects returns the effects of this class and all its superclasses,
// without duplicates
func (c *Class) ClassEffects() []*ast.Effect { return c.effects() }

func (c *Class) computeClassEffects() []*ast.Effect {
	var out []*ast.Effect
	seen := set.New[string](0)
	for _, s := range c.AllSuperclasses() {
		for _, e := range s.decl.Effects {
			if seen.Insert(e.String()) {
				out = append(out, e)
			}
		}
	}
	return out
}

// Invariants returns the requirements every instance must meet. Abstract
// classes have none of their own; their invariants apply to concrete subclasses.
func (c *Class) Invariants() []ast.Requirement { return c.invariants() }

func (c *Class) computeInvariants() []ast.Requirement {
	if c.Abstract() {
		return nil
	}
	var out []ast.Requirement
	seen := set.New[string](0)
	for _, s := range c.AllSuperclasses() {
		for _, inv := range s.decl.Invariants {
			for _, r := range ast.Split(inv) {
				if seen.Insert(r.String()) {
					out = append(out, r)
				}
			}
		}
	}
	return out
}

// IsSingletonType reports whether an invariant requires at least one instance of
// the class at all times, e.g. `HAS This` or `HAS =1 This`
func (c *Class) IsSingletonType() bool {
	for _, inv := range c.Invariants() {
		var scaled *ast.ScaledExpression
		switch r := inv.(type) {
		case *ast.Min:
			scaled = r.Scaled
		case *ast.Exact:
			scaled = r.Scaled
		default:
			continue
		}
		if scaled.Scalar == 1 && scaled.Expression.ClassName == ast.This && scaled.Expression.Simple() {
			return true
		}
	}
	return false
}

// warm computes every derived value so that nothing is written after Freeze.
// Each memo is visited even when an earlier one failed.
func (c *Class) warm() error {
	c.AllSuperclasses()
	c.superclassSet()
	c.AllSubclasses()
	c.DirectSubclasses()
	c.IntersectionType()
	c.ClassEffects()
	c.Invariants()

	_, depsErr := c.Dependencies()
	_, _ = c.BaseType()
	_, _ = c.ClassType()
	_, defaultsErr := c.Defaults()
	_, typeErr := c.DefaultType()
	switch {
	case depsErr != nil:
		return depsErr
	case defaultsErr != nil:
		return defaultsErr
	default:
		return typeErr
	}
}
