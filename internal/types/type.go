package types

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/parser"
)

// Type is an expression resolved against a loader: a root class, a binding for
// every one of its slots, and an optional refinement. Types are immutable and
// must not outlive their loader.
type Type struct {
	loader     *Loader
	root       *Class
	deps       *DependencySet
	refinement ast.Requirement
	forgiving  bool

	expression     func() *ast.Expression
	expressionFull func() *ast.Expression
	component      func() *Component
}

// newType panics unless deps has exactly the root's keys, in order
func newType(root *Class, deps *DependencySet, refinement ast.Requirement, forgiving bool) *Type {
	if own, err := root.Dependencies(); err == nil && !slices.Equal(own.Keys(), deps.Keys()) {
		panic(fmt.Sprintf("types: %s expects keys %v, got %s", root, own.Keys(), deps))
	}
	t := &Type{
		loader:     root.loader,
		root:       root,
		deps:       deps,
		refinement: refinement,
		forgiving:  forgiving && refinement != nil,
	}
	t.expression = sync.OnceValue(func() *ast.Expression {
		return t.withSpecs(t.narrowedDependencies().Expressions())
	})
	t.expressionFull = sync.OnceValue(func() *ast.Expression {
		return t.withSpecs(t.deps.ExpressionsFull())
	})
	t.component = sync.OnceValue(func() *Component {
		return newComponent(t)
	})
	return t
}

func (t *Type) withSpecs(specs []*ast.Expression) *ast.Expression {
	return t.root.ClassName().Of(specs...).Has(t.refinement, t.forgiving)
}

// narrowedDependencies are the bindings that differ from the root's base type
func (t *Type) narrowedDependencies() *DependencySet {
	base, err := t.root.Dependencies()
	if err != nil {
		return t.deps
	}
	return t.deps.Minus(base)
}

// Root returns the class this is a type of
func (t *Type) Root() *Class { return t.root }

// Loader returns the class table the type was resolved in
func (t *Type) Loader() *Loader { return t.loader }

// Dependencies returns the binding of every slot of the root class
func (t *Type) Dependencies() *DependencySet { return t.deps }

// Refinement returns the accumulated refinement, or nil
func (t *Type) Refinement() ast.Requirement { return t.refinement }

// Forgiving reports whether the refinement was written `HAS?`
func (t *Type) Forgiving() bool { return t.forgiving }

// Abstract reports whether the type cannot denote a single concrete component:
// its class is abstract, a dependency is, or it carries a refinement
func (t *Type) Abstract() bool {
	return t.root.Abstract() || t.deps.Abstract() || t.refinement != nil
}

// Expression returns the shortest expression for this type, mentioning only the
// arguments that narrow the root's base type
func (t *Type) Expression() *ast.Expression { return t.expression() }

// ExpressionFull returns the expression with every argument spelled out
func (t *Type) ExpressionFull() *ast.Expression { return t.expressionFull() }

func (t *Type) String() string { return t.Expression().String() }

// Equal reports whether two types from the same loader are the same type
func (t *Type) Equal(that *Type) bool {
	return t == that || t.loader == that.loader && t.ExpressionFull().String() == that.ExpressionFull().String()
}

// HIERARCHY

// IsSubtypeOf reports whether t narrows that, asking the loader's state oracle
// about refinements
func (t *Type) IsSubtypeOf(that *Type) bool {
	return t.Narrows(that, t.loader.oracle)
}

// Narrows reports whether every instance of t is an instance of that. A
// refinement on that is satisfied statically when t already carries all of its
// conjuncts; otherwise the oracle decides.
func (t *Type) Narrows(that *Type, oracle StateOracle) bool {
	if !t.root.IsSubtypeOf(that.root) || !t.deps.Narrows(that.deps, oracle) {
		return false
	}
	if that.refinement == nil {
		return true
	}
	if t.containsRefinementOf(that) {
		return true
	}
	return oracle.Has(t.refinementRequirement(that))
}

func (t *Type) containsRefinementOf(that *Type) bool {
	if t.refinement == nil || t.forgiving && !that.forgiving {
		return false
	}
	mine := ast.Split(t.refinement)
	for _, r := range ast.Split(that.refinement) {
		if !slices.ContainsFunc(mine, func(m ast.Requirement) bool { return ast.Equal(m, r) }) {
			return false
		}
	}
	return true
}

// refinementRequirement rewrites the refinement of wide for an instance of t.
// Each expression in it is specialized by t, so `Tile(HAS Neighbor)` asks about
// `Neighbor<TheTile>`; expressions that t cannot specialize are left alone. A
// forgiving refinement is also met when nothing matches the unforgiving type.
func (t *Type) refinementRequirement(wide *Type) ast.Requirement {
	narrow := t.ExpressionFull().Unrefined()
	req := ast.MapExpressions(wide.refinement, func(e *ast.Expression) *ast.Expression {
		rt, err := t.loader.Resolve(e)
		if err != nil {
			return e
		}
		spec, err := rt.Specialize([]*ast.Expression{narrow})
		if err != nil {
			return e
		}
		return spec.ExpressionFull()
	})
	if !wide.forgiving {
		return req
	}
	strict := wide.ExpressionFull().Unrefined().Has(wide.refinement, false)
	return &ast.Or{Requirements: []ast.Requirement{
		req,
		&ast.Max{Scaled: &ast.ScaledExpression{Scalar: 0, Expression: strict}},
	}}
}

// Glb returns the most general type narrowing both, reporting false when the
// two are disjoint. Refinements are conjoined.
func (t *Type) Glb(that *Type) (*Type, bool) {
	if t.loader != that.loader {
		panic("types: glb of types from different loaders")
	}
	root, ok := t.root.Glb(that.root)
	if !ok {
		return nil, false
	}
	deps, ok := t.deps.Glb(that.deps)
	if !ok {
		return nil, false
	}
	base, err := root.Dependencies()
	if err != nil {
		return nil, false
	}
	if deps, ok = deps.Glb(base); !ok {
		return nil, false
	}
	unrefined, err := root.withAllDependencies(deps)
	if err != nil {
		return nil, false
	}
	refinement, forgiving := joinRefinements(t, that)
	return newType(root, unrefined.deps, refinement, forgiving), true
}

func joinRefinements(a, b *Type) (ast.Requirement, bool) {
	switch {
	case a.refinement == nil:
		return b.refinement, b.forgiving
	case b.refinement == nil:
		return a.refinement, a.forgiving
	default:
		return ast.Join(a.refinement, b.refinement), a.forgiving && b.forgiving
	}
}

// Lub returns the most specific type both narrow. It always exists. A
// refinement survives only when both carry the same one.
func (t *Type) Lub(that *Type) *Type {
	if t.loader != that.loader {
		panic("types: lub of types from different loaders")
	}
	root := t.root.Lub(that.root)
	unrefined, err := root.withAllDependencies(t.deps.Lub(that.deps))
	if err != nil {
		// a common superclass of two resolved types always has dependencies
		panic(fmt.Sprintf("types: lub of %s and %s: %v", t, that, err))
	}
	if t.refinement != nil && ast.Equal(t.refinement, that.refinement) && t.forgiving == that.forgiving {
		return newType(root, unrefined.deps, t.refinement, t.forgiving)
	}
	return unrefined
}

// Specialize narrows the type by more arguments, as `Tile<MarsArea>` narrows `Tile`
func (t *Type) Specialize(args []*ast.Expression) (*Type, error) {
	if len(args) == 0 {
		return t, nil
	}
	deps, err := t.deps.Specialize(args)
	if err != nil {
		return nil, err
	}
	return newType(t.root, deps, t.refinement, t.forgiving), nil
}

// Refine conjoins req with any refinement already present. Every expression in
// req must resolve, and req must read back from its text unchanged.
func (t *Type) Refine(req ast.Requirement, forgiving bool) (*Type, error) {
	if req == nil {
		return t, nil
	}
	for _, e := range ast.Expressions(req) {
		if _, err := t.loader.Resolve(e); err != nil {
			return nil, err
		}
	}
	text := req.String()
	if back, err := parser.ParseRequirement(text); err != nil || back.String() != text {
		return nil, &BadExpressionError{
			Expression: t.ExpressionFull().Has(req, forgiving),
			Reason:     "refinement does not round-trip through text",
		}
	}
	if t.refinement != nil {
		forgiving = forgiving && t.forgiving
	}
	return newType(t.root, t.deps, ast.Join(t.refinement, req), forgiving), nil
}

// ENUMERATION

// AllConcreteSubtypes yields every concrete type narrowing this one's class and
// dependencies. Refinements are not evaluated. The sequence is finite but can be
// very long; it is computed only as far as the consumer reads. Panics before the
// class table is frozen.
func (t *Type) AllConcreteSubtypes() iter.Seq[*Type] {
	return func(yield func(*Type) bool) {
		for _, sub := range t.root.AllSubclasses() {
			if sub.Abstract() {
				continue
			}
			base, err := sub.BaseType()
			if err != nil {
				continue
			}
			deps, ok := t.deps.Glb(base.deps)
			if !ok {
				continue
			}
			typ, err := sub.withAllDependencies(deps)
			if err != nil {
				continue
			}
			for c := range typ.ConcreteSubtypesSameClass() {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// ConcreteSubtypesSameClass is the part of AllConcreteSubtypes whose root is
// this type's root
func (t *Type) ConcreteSubtypesSameClass() iter.Seq[*Type] {
	if t.root.Abstract() {
		return func(func(*Type) bool) {}
	}
	return t.deps.concreteSubtypesSameClass(t.root)
}

// SingleConcreteSubtype returns the only concrete subtype when there is exactly one
func (t *Type) SingleConcreteSubtype() (*Type, bool) {
	var only *Class
	for _, sub := range t.root.AllSubclasses() {
		if sub.Abstract() {
			continue
		}
		if only != nil {
			return nil, false
		}
		only = sub
	}
	if only == nil {
		return nil, false
	}
	base, err := only.BaseType()
	if err != nil {
		return nil, false
	}
	narrowed, ok := t.Glb(base)
	if !ok {
		return nil, false
	}
	deps, ok := narrowed.deps.singleConcreteSubtype()
	if !ok {
		return nil, false
	}
	return newType(only, deps, nil, false), true
}

// ToComponent returns the component this concrete type describes. Panics if
// the type is abstract.
func (t *Type) ToComponent() *Component {
	if t.Abstract() {
		panic(fmt.Sprintf("types: type is abstract: %s", t.ExpressionFull()))
	}
	return t.component()
}
