package types

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
)

// describeLimit caps the counts of concrete types in a Description
const describeLimit = 100

// Description gathers what there is to know about a type for display
type Description struct {
	Type      *Type
	ShortName ast.ClassName
	Docstring string

	Superclasses []ast.ClassName // ancestors first
	Subclasses   []ast.ClassName // most subclasses first, then by name

	DeclaredEffects []*ast.Effect
	ClassEffects    []*ast.Effect
	Invariants      []ast.Requirement

	BaseType *Type
	// Supertypes are the type's own dependencies viewed from each superclass
	Supertypes    []*Type
	Substitutions map[ast.ClassName]*ast.Expression
	Defaults      *Defaults

	ConcreteTypesSameClass int // capped at describeLimit
	ConcreteTypes          int // capped at describeLimit

	ComponentEffects []*ast.Effect // empty for abstract types
}

// Describe collects a description of t. The class table must be frozen.
func Describe(t *Type) (*Description, error) {
	c := t.root
	base, err := c.BaseType()
	if err != nil {
		return nil, err
	}
	defaults, err := c.Defaults()
	if err != nil {
		return nil, err
	}
	general, err := c.DefaultType()
	if err != nil {
		return nil, err
	}

	d := &Description{
		Type:                   t,
		ShortName:              c.ShortName(),
		Docstring:              c.Docstring(),
		Superclasses:           classNames(c.AllSuperclasses()),
		Subclasses:             classNames(bySubclassCount(c.AllSubclasses())),
		DeclaredEffects:        c.DeclaredEffects(),
		ClassEffects:           c.ClassEffects(),
		Invariants:             c.Invariants(),
		BaseType:               base,
		Substitutions:          findSubstitutions(general.deps, t.deps),
		Defaults:               defaults,
		ConcreteTypesSameClass: count(base.ConcreteSubtypesSameClass(), describeLimit),
		ConcreteTypes:          count(t.AllConcreteSubtypes(), describeLimit),
	}
	for _, s := range c.AllSuperclasses() {
		st, err := s.withAllDependencies(t.deps)
		if err != nil {
			return nil, err
		}
		d.Supertypes = append(d.Supertypes, st)
	}
	if !t.Abstract() {
		d.ComponentEffects = t.ToComponent().Effects()
	}
	return d, nil
}

func classNames(classes []*Class) []ast.ClassName {
	out := make([]ast.ClassName, len(classes))
	for i, c := range classes {
		out[i] = c.ClassName()
	}
	return out
}

func bySubclassCount(classes []*Class) []*Class {
	return slices.SortedStableFunc(slices.Values(classes), func(a, b *Class) int {
		return cmp.Or(
			cmp.Compare(len(b.AllSubclasses()), len(a.AllSubclasses())),
			cmp.Compare(a.ClassName(), b.ClassName()),
		)
	})
}

func count[T any](seq iter.Seq[T], limit int) int {
	n := 0
	for range seq {
		n++
		if n == limit {
			break
		}
	}
	return n
}

// Format renders the description as an aligned block of text
func (d *Description) Format() string {
	var sb strings.Builder
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%-14s %s\n", label+":", value)
		}
	}
	countText := func(n int) string {
		if n == describeLimit {
			return fmt.Sprintf("%d+", n)
		}
		return fmt.Sprint(n)
	}

	row("Type", d.Type.ExpressionFull().String())
	if d.ShortName != d.Type.root.ClassName() {
		row("Short name", string(d.ShortName))
	}
	row("Docstring", d.Docstring)
	row("Abstract", fmt.Sprint(d.Type.Abstract()))
	row("Superclasses", joinNames(d.Superclasses))
	row("Subclasses", joinNames(d.Subclasses))
	row("Base type", d.BaseType.ExpressionFull().String())
	row("Supertypes", joinStrings(d.Supertypes))
	for _, in := range d.Invariants {
		row("Invariant", in.String())
	}
	for _, e := range d.ClassEffects {
		row("Class effect", e.String())
	}
	for _, e := range d.ComponentEffects {
		row("Effect", e.String())
	}
	for _, name := range slices.Sorted(maps.Keys(d.Substitutions)) {
		row("Substitution", string(name)+" -> "+d.Substitutions[name].String())
	}
	if deps := d.Defaults.AllUsages.Dependencies; deps.Len() > 0 {
		row("Defaults", deps.String())
	}
	row("Concrete", countText(d.ConcreteTypesSameClass)+" of this class, "+countText(d.ConcreteTypes)+" in all")
	return sb.String()
}

func joinNames(names []ast.ClassName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

func joinStrings[T fmt.Stringer](items []T) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}
