// Package declaration describes classes as authored: inert data that the type
// engine links into a class table.
package declaration

import (
	"github.com/MartianZoo/solarnet-sub002/internal/ast"
)

// ClassDeclaration is the direct representation of one declared class, such as
// `ABSTRACT CLASS Tile<Area> : Owned`. It is never modified after construction.
type ClassDeclaration struct {
	ClassName ast.ClassName
	// ShortName shares the class namespace; empty when not given
	ShortName ast.ClassName
	Abstract  bool
	Docstring string

	// Dependencies are the new generic slots this class introduces, in order
	Dependencies []*ast.Expression
	// Supertypes as written; empty means `Component`
	Supertypes []*ast.Expression
	Invariants []ast.Requirement
	Effects    []*ast.Effect
	Defaults   DefaultsDeclaration
}

// DefaultKind selects which usages a default applies to
type DefaultKind int

const (
	AllUsages DefaultKind = iota
	GainOnly
	RemoveOnly
)

func (k DefaultKind) String() string {
	switch k {
	case AllUsages:
		return "all usages"
	case GainOnly:
		return "gain only"
	case RemoveOnly:
		return "remove only"
	default:
		return "unknown"
	}
}

// OneDefault is the content of a single DEFAULT clause
type OneDefault struct {
	Specs     []*ast.Expression
	Intensity ast.Intensity
}

// IsZero reports whether nothing was declared
func (d OneDefault) IsZero() bool {
	return len(d.Specs) == 0 && d.Intensity == ast.IntensityUnset
}

// DefaultsDeclaration merges every DEFAULT clause of one class body
type DefaultsDeclaration struct {
	Universal  OneDefault
	GainOnly   OneDefault
	RemoveOnly OneDefault
}

// Default returns the clause for a kind
func (d DefaultsDeclaration) Default(kind DefaultKind) OneDefault {
	switch kind {
	case GainOnly:
		return d.GainOnly
	case RemoveOnly:
		return d.RemoveOnly
	default:
		return d.Universal
	}
}

// Nodes returns every expression in the defaults block
func (d DefaultsDeclaration) Nodes() []ast.Node {
	var nodes []ast.Node
	for _, one := range []OneDefault{d.Universal, d.GainOnly, d.RemoveOnly} {
		for _, spec := range one.Specs {
			nodes = append(nodes, spec)
		}
	}
	return nodes
}

// Clauses renders each declared default as it follows DEFAULT, e.g. `+This<Player1>!`
func (d DefaultsDeclaration) Clauses() []string {
	var out []string
	for _, kind := range []DefaultKind{AllUsages, GainOnly, RemoveOnly} {
		one := d.Default(kind)
		if one.IsZero() {
			continue
		}
		prefix := ""
		switch kind {
		case GainOnly:
			prefix = "+"
		case RemoveOnly:
			prefix = "-"
		}
		out = append(out, prefix+ast.This.Of(one.Specs...).String()+one.Intensity.Symbol())
	}
	return out
}

// Name returns the short name, falling back to the class name
func (d *ClassDeclaration) Name() ast.ClassName {
	if d.ShortName != "" {
		return d.ShortName
	}
	return d.ClassName
}

// AllNodes returns every AST node in the declaration
func (d *ClassDeclaration) AllNodes() []ast.Node {
	var nodes []ast.Node
	for _, e := range d.Dependencies {
		nodes = append(nodes, e)
	}
	for _, e := range d.Supertypes {
		nodes = append(nodes, e)
	}
	for _, r := range d.Invariants {
		nodes = append(nodes, r)
	}
	for _, e := range d.Effects {
		nodes = append(nodes, e)
	}
	return append(nodes, d.Defaults.Nodes()...)
}

// ReferencedClassNames returns every class the declaration mentions, other than
// itself and `This`
func (d *ClassDeclaration) ReferencedClassNames() []ast.ClassName {
	var out []ast.ClassName
	for _, name := range ast.ClassNames(d.AllNodes()...) {
		if name != ast.This && name != d.ClassName && name != d.ShortName {
			out = append(out, name)
		}
	}
	return out
}

// SupertypeNames returns the class names of the declared supertypes, without duplicates
func (d *ClassDeclaration) SupertypeNames() []ast.ClassName {
	var out []ast.ClassName
	seen := make(map[ast.ClassName]bool)
	for _, s := range d.Supertypes {
		if !seen[s.ClassName] {
			seen[s.ClassName] = true
			out = append(out, s.ClassName)
		}
	}
	return out
}

// String renders the declaration header, e.g. `ABSTRACT CLASS Tile[T]<Area> : Owned`
func (d *ClassDeclaration) String() string {
	s := "CLASS " + string(d.ClassName)
	if d.ShortName != "" && d.ShortName != d.ClassName {
		s += "[" + string(d.ShortName) + "]"
	}
	if d.Abstract {
		s = "ABSTRACT " + s
	}
	if len(d.Dependencies) > 0 {
		s += ast.ClassName("").Of(d.Dependencies...).String()
	}
	for i, sup := range d.Supertypes {
		if i == 0 {
			s += " : "
		} else {
			s += ", "
		}
		s += sup.String()
	}
	return s
}
