package declaration

import (
	"fmt"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
)

// Authority is the source of class declarations for a class table
type Authority interface {
	// ClassDeclaration returns the declaration for a class name or short name
	ClassDeclaration(name ast.ClassName) (*ClassDeclaration, error)
	// AllClassNames lists every declared class name in a stable order
	AllClassNames() []ast.ClassName
}

// NotDeclaredError reports a name absent from an Authority
type NotDeclaredError struct {
	Name ast.ClassName
}

func (e *NotDeclaredError) Error() string {
	return fmt.Sprintf("no class declared with name or short name %q", string(e.Name))
}

// MapAuthority is an in-memory Authority that keeps declarations in insertion order
type MapAuthority struct {
	byName map[ast.ClassName]*ClassDeclaration
	order  []ast.ClassName
}

// NewMapAuthority creates an Authority over the declarations. Duplicate class
// names or short names are rejected.
func NewMapAuthority(decls ...*ClassDeclaration) (*MapAuthority, error) {
	a := &MapAuthority{byName: make(map[ast.ClassName]*ClassDeclaration)}
	for _, d := range decls {
		if err := a.Add(d); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Add registers one more declaration
func (a *MapAuthority) Add(d *ClassDeclaration) error {
	for _, name := range []ast.ClassName{d.ClassName, d.ShortName} {
		if name == "" {
			continue
		}
		if prev, ok := a.byName[name]; ok && prev != d {
			return fmt.Errorf("duplicate declaration of %q (already declared by %q)", string(name), string(prev.ClassName))
		}
	}
	a.byName[d.ClassName] = d
	if d.ShortName != "" {
		a.byName[d.ShortName] = d
	}
	a.order = append(a.order, d.ClassName)
	return nil
}

func (a *MapAuthority) ClassDeclaration(name ast.ClassName) (*ClassDeclaration, error) {
	if d, ok := a.byName[name]; ok {
		return d, nil
	}
	return nil, &NotDeclaredError{Name: name}
}

func (a *MapAuthority) AllClassNames() []ast.ClassName {
	return append([]ast.ClassName(nil), a.order...)
}

// Declarations returns every declaration in insertion order
func (a *MapAuthority) Declarations() []*ClassDeclaration {
	out := make([]*ClassDeclaration, len(a.order))
	for i, name := range a.order {
		out[i] = a.byName[name]
	}
	return out
}
