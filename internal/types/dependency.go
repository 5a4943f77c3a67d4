package types

import (
	"fmt"
	"iter"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
)

// Key identifies one generic slot. Once a class introduces a dependency, as in
// `CLASS Tile<Area>`, every subclass knows it by the same key whether or not it
// narrows it.
type Key struct {
	DeclaringClass ast.ClassName
	Index          int // position in the declaring class's list, from zero
}

func (k Key) String() string {
	return fmt.Sprintf("%s_%d", string(k.DeclaringClass), k.Index)
}

// classKey is the one slot of `Class`
var classKey = Key{DeclaringClass: ast.Class, Index: 0}

// Dependency is a class argument bound to a slot. It is either a
// *TypeDependency or a *ClassDependency; a set never mixes the two.
type Dependency interface {
	Key() Key
	// Expression is the argument as written in a narrowed expression
	Expression() *ast.Expression
	// ExpressionFull is the argument with all of its own arguments spelled out
	ExpressionFull() *ast.Expression
	Abstract() bool
	String() string
	dependency()
}

// TypeDependency binds a slot to a type, as `Area` in `Tile<Area>`
type TypeDependency struct {
	key   Key
	bound *Type
}

// ClassDependency binds the slot of `Class` to a class, as `Plant` in
// `Class<Plant>`. No other class has a class dependency; `Production<Plant>` is
// written `Production<Class<Plant>>`.
type ClassDependency struct {
	bound *Class
}

func (*TypeDependency) dependency()  {}
func (*ClassDependency) dependency() {}

func (d *TypeDependency) Key() Key                        { return d.key }
func (d *TypeDependency) Bound() *Type                    { return d.bound }
func (d *TypeDependency) Expression() *ast.Expression     { return d.bound.Expression() }
func (d *TypeDependency) ExpressionFull() *ast.Expression { return d.bound.ExpressionFull() }
func (d *TypeDependency) Abstract() bool                  { return d.bound.Abstract() }
func (d *TypeDependency) String() string                  { return d.key.String() + "=" + d.ExpressionFull().String() }

func (d *ClassDependency) Key() Key                        { return classKey }
func (d *ClassDependency) Bound() *Class                   { return d.bound }
func (d *ClassDependency) Expression() *ast.Expression     { return d.bound.ClassName().Expression() }
func (d *ClassDependency) ExpressionFull() *ast.Expression { return d.Expression() }
func (d *ClassDependency) Abstract() bool                  { return d.bound.Abstract() }
func (d *ClassDependency) String() string                  { return classKey.String() + "=" + string(d.bound.ClassName()) }

// allConcreteSpecializations yields the dependency bound to each concrete subtype in turn
func (d *TypeDependency) allConcreteSpecializations() iter.Seq[Dependency] {
	return func(yield func(Dependency) bool) {
		for t := range d.bound.AllConcreteSubtypes() {
			if !yield(&TypeDependency{key: d.key, bound: t}) {
				return
			}
		}
	}
}

// sameDependency reports whether two dependencies bind the same slot identically
func sameDependency(a, b Dependency) bool {
	switch a := a.(type) {
	case *TypeDependency:
		b, ok := b.(*TypeDependency)
		return ok && a.key == b.key && a.bound.Equal(b.bound)
	case *ClassDependency:
		b, ok := b.(*ClassDependency)
		return ok && a.bound == b.bound
	default:
		panic(fmt.Sprintf("types: unknown dependency %T", a))
	}
}

// narrowsDependency reports whether a is bound at least as narrowly as b
func narrowsDependency(a, b Dependency, oracle StateOracle) bool {
	mustShareKey(a, b)
	switch a := a.(type) {
	case *TypeDependency:
		return a.bound.Narrows(b.(*TypeDependency).bound, oracle)
	case *ClassDependency:
		return a.bound.IsSubtypeOf(b.(*ClassDependency).bound)
	default:
		panic(fmt.Sprintf("types: unknown dependency %T", a))
	}
}

// glbDependency returns the common narrowing of two bindings of a slot, if any
func glbDependency(a, b Dependency) (Dependency, bool) {
	mustShareKey(a, b)
	switch a := a.(type) {
	case *TypeDependency:
		t, ok := a.bound.Glb(b.(*TypeDependency).bound)
		if !ok {
			return nil, false
		}
		return &TypeDependency{key: a.key, bound: t}, true
	case *ClassDependency:
		c, ok := a.bound.Glb(b.(*ClassDependency).bound)
		if !ok {
			return nil, false
		}
		return &ClassDependency{bound: c}, true
	default:
		panic(fmt.Sprintf("types: unknown dependency %T", a))
	}
}

// lubDependency returns the nearest common widening of two bindings of a slot
func lubDependency(a, b Dependency) Dependency {
	mustShareKey(a, b)
	switch a := a.(type) {
	case *TypeDependency:
		return &TypeDependency{key: a.key, bound: a.bound.Lub(b.(*TypeDependency).bound)}
	case *ClassDependency:
		return &ClassDependency{bound: a.bound.Lub(b.(*ClassDependency).bound)}
	default:
		panic(fmt.Sprintf("types: unknown dependency %T", a))
	}
}

// intersectDependency narrows a binding by an argument expression. It reports
// false when the argument cannot fill this slot, and an error when the argument
// itself cannot be resolved.
func intersectDependency(d Dependency, arg *ast.Expression) (Dependency, bool, error) {
	switch d := d.(type) {
	case *TypeDependency:
		t, err := d.bound.loader.Resolve(arg)
		if err != nil {
			return nil, false, err
		}
		dep, ok := glbDependency(d, &TypeDependency{key: d.key, bound: t})
		return dep, ok, nil
	case *ClassDependency:
		if !arg.Simple() {
			return nil, false, nil
		}
		c, err := d.bound.loader.Load(arg.ClassName)
		if err != nil {
			return nil, false, err
		}
		dep, ok := glbDependency(d, &ClassDependency{bound: c})
		return dep, ok, nil
	default:
		panic(fmt.Sprintf("types: unknown dependency %T", d))
	}
}

func mustShareKey(a, b Dependency) {
	if a.Key() != b.Key() {
		panic(fmt.Sprintf("types: dependency keys differ: %s and %s", a.Key(), b.Key()))
	}
}
