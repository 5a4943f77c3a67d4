package types

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
)

// DependencySet is everything inside the angle brackets of a type. It is keyed
// by Key and keeps declaration order, which every operation preserves.
type DependencySet struct {
	deps []Dependency
}

// newDependencySet panics when deps mixes the two kinds or repeats a key
func newDependencySet(deps []Dependency) *DependencySet {
	keys := set.New[Key](len(deps))
	classDeps := 0
	for _, d := range deps {
		if !keys.Insert(d.Key()) {
			panic(fmt.Sprintf("types: duplicate dependency key %s", d.Key()))
		}
		if _, ok := d.(*ClassDependency); ok {
			classDeps++
		}
	}
	if classDeps > 0 && len(deps) != 1 {
		panic(fmt.Sprintf("types: class dependency mixed with others: %v", deps))
	}
	return &DependencySet{deps: deps}
}

// classTypeDependencies is the dependency set of `Class<c>`
func classTypeDependencies(c *Class) *DependencySet {
	return newDependencySet([]Dependency{&ClassDependency{bound: c}})
}

// Keys returns the keys in order
func (s *DependencySet) Keys() []Key {
	keys := make([]Key, len(s.deps))
	for i, d := range s.deps {
		keys[i] = d.Key()
	}
	return keys
}

// Len returns the number of slots
func (s *DependencySet) Len() int { return len(s.deps) }

// Get returns the dependency bound to key
func (s *DependencySet) Get(key Key) (Dependency, bool) {
	for _, d := range s.deps {
		if d.Key() == key {
			return d, true
		}
	}
	return nil, false
}

// Dependencies returns the dependencies in order
func (s *DependencySet) Dependencies() []Dependency {
	return slices.Clone(s.deps)
}

// IsClassType reports whether this is the set of a `Class<X>` type
func (s *DependencySet) IsClassType() bool {
	if len(s.deps) != 1 {
		return false
	}
	_, ok := s.deps[0].(*ClassDependency)
	return ok
}

// classBound returns X for the set of `Class<X>`
func (s *DependencySet) classBound() *Class {
	return s.deps[0].(*ClassDependency).bound
}

// Abstract reports whether any dependency is abstract
func (s *DependencySet) Abstract() bool {
	for _, d := range s.deps {
		if d.Abstract() {
			return true
		}
	}
	return false
}

// Expressions returns each dependency in its narrowed form
func (s *DependencySet) Expressions() []*ast.Expression {
	out := make([]*ast.Expression, len(s.deps))
	for i, d := range s.deps {
		out[i] = d.Expression()
	}
	return out
}

// ExpressionsFull returns each dependency spelled out in full
func (s *DependencySet) ExpressionsFull() []*ast.Expression {
	out := make([]*ast.Expression, len(s.deps))
	for i, d := range s.deps {
		out[i] = d.ExpressionFull()
	}
	return out
}

// Narrows reports whether every key of that has a binding here at least as narrow
func (s *DependencySet) Narrows(that *DependencySet, oracle StateOracle) bool {
	for _, theirs := range that.deps {
		mine, ok := s.Get(theirs.Key())
		if !ok || !narrowsDependency(mine, theirs, oracle) {
			return false
		}
	}
	return true
}

// Glb merges two sets key by key. Keys of this set come first, then the extra
// keys of that. It reports false when some shared key has no common narrowing.
func (s *DependencySet) Glb(that *DependencySet) (*DependencySet, bool) {
	merged := make([]Dependency, 0, len(s.deps)+len(that.deps))
	for _, mine := range s.deps {
		theirs, ok := that.Get(mine.Key())
		if !ok {
			merged = append(merged, mine)
			continue
		}
		glb, ok := glbDependency(mine, theirs)
		if !ok {
			return nil, false
		}
		merged = append(merged, glb)
	}
	for _, theirs := range that.deps {
		if _, ok := s.Get(theirs.Key()); !ok {
			merged = append(merged, theirs)
		}
	}
	return newDependencySet(merged), true
}

// Lub keeps only the shared keys, each widened to cover both bindings
func (s *DependencySet) Lub(that *DependencySet) *DependencySet {
	var out []Dependency
	for _, mine := range s.deps {
		if theirs, ok := that.Get(mine.Key()); ok {
			out = append(out, lubDependency(mine, theirs))
		}
	}
	return newDependencySet(out)
}

// Minus drops every dependency that is bound identically in that
func (s *DependencySet) Minus(that *DependencySet) *DependencySet {
	var out []Dependency
	for _, d := range s.deps {
		if theirs, ok := that.Get(d.Key()); ok && sameDependency(d, theirs) {
			continue
		}
		out = append(out, d)
	}
	return newDependencySet(out)
}

// Equal reports whether both sets bind the same keys identically, in the same order
func (s *DependencySet) Equal(that *DependencySet) bool {
	return slices.EqualFunc(s.deps, that.deps, sameDependency)
}

// subsetInOrder returns the dependencies for keys, in that order, skipping keys not present
func (s *DependencySet) subsetInOrder(keys []Key) *DependencySet {
	var out []Dependency
	for _, k := range keys {
		if d, ok := s.Get(k); ok {
			out = append(out, d)
		}
	}
	return newDependencySet(out)
}

// mapTypes rebinds every type dependency through fn
func (s *DependencySet) mapTypes(fn func(*Type) (*Type, error)) (*DependencySet, error) {
	out := make([]Dependency, len(s.deps))
	for i, d := range s.deps {
		td, ok := d.(*TypeDependency)
		if !ok {
			out[i] = d
			continue
		}
		bound, err := fn(td.bound)
		if err != nil {
			return nil, err
		}
		out[i] = &TypeDependency{key: td.key, bound: bound}
	}
	return newDependencySet(out), nil
}

// Specialize narrows this set by the arguments of an expression, as `<MarsArea>`
// in `Tile<MarsArea>`. Slots not matched by an argument are kept as they are.
func (s *DependencySet) Specialize(args []*ast.Expression) (*DependencySet, error) {
	if len(args) == 0 {
		return s, nil
	}
	partial, err := s.MatchPartial(args)
	if err != nil {
		return nil, err
	}
	out := make([]Dependency, len(s.deps))
	for i, d := range s.deps {
		if matched, ok := partial.Get(d.Key()); ok {
			out[i] = matched
		} else {
			out[i] = d
		}
	}
	return newDependencySet(out), nil
}

// MatchPartial decides which slot each argument fills. For every argument in
// turn, the open slots are tried in declaration order and the first one the
// argument intersects is claimed. The result holds the claimed slots in
// argument order.
func (s *DependencySet) MatchPartial(args []*ast.Expression) (*DependencySet, error) {
	claimed := set.New[Key](len(args))
	out := make([]Dependency, 0, len(args))
	for _, arg := range args {
		var match Dependency
		for _, d := range s.deps {
			if claimed.Contains(d.Key()) {
				continue
			}
			dep, ok, err := intersectDependency(d, arg)
			if err != nil {
				return nil, err
			}
			if ok {
				match = dep
				break
			}
		}
		if match == nil {
			return nil, &BadExpressionError{
				Expression: arg,
				Reason:     "argument fits no open slot",
				Slots:      s.openSlots(claimed),
			}
		}
		claimed.Insert(match.Key())
		out = append(out, match)
	}
	return newDependencySet(out), nil
}

func (s *DependencySet) openSlots(claimed *set.Set[Key]) []string {
	var out []string
	for _, d := range s.deps {
		if !claimed.Contains(d.Key()) {
			out = append(out, d.String())
		}
	}
	return out
}

// concreteSubtypesSameClass yields every concrete type of root whose
// dependencies narrow this set
func (s *DependencySet) concreteSubtypesSameClass(root *Class) iter.Seq[*Type] {
	if s.IsClassType() {
		return func(yield func(*Type) bool) {
			for _, sub := range s.classBound().AllSubclasses() {
				if sub.Abstract() {
					continue
				}
				t, err := sub.ClassType()
				if err != nil {
					continue
				}
				if !yield(t) {
					return
				}
			}
		}
	}
	axes := make([]iter.Seq[Dependency], len(s.deps))
	for i, d := range s.deps {
		axes[i] = d.(*TypeDependency).allConcreteSpecializations()
	}
	return func(yield func(*Type) bool) {
		for combo := range product(axes) {
			if !yield(newType(root, newDependencySet(combo), nil, false)) {
				return
			}
		}
	}
}

// singleConcreteSubtype returns the only concrete narrowing of this set, if
// there is exactly one
func (s *DependencySet) singleConcreteSubtype() (*DependencySet, bool) {
	if s.IsClassType() {
		var found *Class
		for _, sub := range s.classBound().AllSubclasses() {
			if sub.Abstract() {
				continue
			}
			if found != nil {
				return nil, false
			}
			found = sub
		}
		if found == nil {
			return nil, false
		}
		return classTypeDependencies(found), true
	}
	return s.mapTypesOK(func(t *Type) (*Type, bool) { return t.SingleConcreteSubtype() })
}

func (s *DependencySet) mapTypesOK(fn func(*Type) (*Type, bool)) (*DependencySet, bool) {
	ok := true
	out, _ := s.mapTypes(func(t *Type) (*Type, error) {
		mapped, found := fn(t)
		if !found {
			ok = false
			return t, nil
		}
		return mapped, nil
	})
	return out, ok
}

func (s *DependencySet) String() string {
	parts := make([]string, len(s.deps))
	for i, d := range s.deps {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
