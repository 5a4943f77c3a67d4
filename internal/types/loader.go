// Package types links class declarations into a class table and resolves type
// expressions against it. A Loader is single-use: it loads classes on demand
// until it is frozen, after which it is a read-only universe that may be shared
// between goroutines.
package types

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
)

// StateOracle answers whether a requirement currently holds. It is consulted only
// when a subtype test meets a refinement it cannot decide statically.
type StateOracle interface {
	Has(req ast.Requirement) bool
}

// noState knows nothing, so no refinement is ever satisfied dynamically
type noState struct{}

func (noState) Has(ast.Requirement) bool { return false }

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger; the default discards everything
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithStateOracle sets the oracle used by Type.IsSubtypeOf
func WithStateOracle(oracle StateOracle) Option {
	return func(l *Loader) { l.oracle = oracle }
}

// Loader is the class table. All classes come from here.
type Loader struct {
	authority declaration.Authority
	logger    *slog.Logger
	oracle    StateOracle

	// a nil value marks a class under construction
	classes      map[ast.ClassName]*Class
	order        []*Class
	queue        []ast.ClassName
	constructing []ast.ClassName

	frozen   bool
	broken   error
	problems []error

	cache sync.Map // expression text -> *Type

	component *Class
	class     *Class
}

// NewLoader creates an unfrozen loader over authority, seeded with `Component`
// and `Class`. Their declarations come from the authority when it has them.
func NewLoader(authority declaration.Authority, opts ...Option) (*Loader, error) {
	l := &Loader{
		authority: authority,
		logger:    slog.New(slog.DiscardHandler),
		oracle:    noState{},
		classes:   make(map[ast.ClassName]*Class),
	}
	for _, opt := range opts {
		opt(l)
	}

	componentDecl, err := l.wellKnown(ast.Component, &declaration.ClassDeclaration{
		ClassName: ast.Component,
		Abstract:  true,
		Docstring: "The root of the class hierarchy.",
	})
	if err != nil {
		return nil, err
	}
	if len(componentDecl.Supertypes) > 0 {
		return nil, fmt.Errorf("class %s may not have supertypes", string(ast.Component))
	}

	classDecl, err := l.wellKnown(ast.Class, &declaration.ClassDeclaration{
		ClassName:    ast.Class,
		Dependencies: []*ast.Expression{ast.Component.Expression()},
		Docstring:    "The class of classes, as in `Class<Plant>`.",
	})
	if err != nil {
		return nil, err
	}
	for _, name := range classDecl.SupertypeNames() {
		if name != ast.Component {
			return nil, fmt.Errorf("class %s may only extend %s", string(ast.Class), string(ast.Component))
		}
	}

	l.component = l.register(newClass(componentDecl, l, nil))
	l.class = l.register(newClass(classDecl, l, []*Class{l.component}))
	return l, nil
}

// wellKnown returns the authority's declaration of name, or fallback if it has none
func (l *Loader) wellKnown(name ast.ClassName, fallback *declaration.ClassDeclaration) (*declaration.ClassDeclaration, error) {
	decl, err := l.authority.ClassDeclaration(name)
	var notDeclared *declaration.NotDeclaredError
	switch {
	case errors.As(err, &notDeclared):
		return fallback, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read declaration of %s: %w", string(name), err)
	default:
		return decl, nil
	}
}

func (l *Loader) register(c *Class) *Class {
	l.classes[c.ClassName()] = c
	if short := c.decl.ShortName; short != "" {
		l.classes[short] = c
	}
	l.order = append(l.order, c)
	return c
}

// Authority returns the source of declarations
func (l *Loader) Authority() declaration.Authority { return l.authority }

// Component returns the root class
func (l *Loader) Component() *Class { return l.component }

// ClassClass returns the class of classes, `Class`
func (l *Loader) ClassClass() *Class { return l.class }

// Frozen reports whether Freeze has been called
func (l *Loader) Frozen() bool { return l.frozen }

func (l *Loader) usable() error {
	if l.broken != nil {
		return fmt.Errorf("%w: %w", ErrLoaderBroken, l.broken)
	}
	return nil
}

// GetClass returns an already-loaded class by name or short name
func (l *Loader) GetClass(name ast.ClassName) (*Class, error) {
	if err := l.usable(); err != nil {
		return nil, err
	}
	c, ok := l.classes[name]
	if !ok {
		return nil, &ClassNotFoundError{Name: name}
	}
	if c == nil {
		return nil, &ReentrancyError{What: "class " + string(name)}
	}
	return c, nil
}

// Load returns the class by name or short name, loading it (and everything it
// refers to) first when the loader is not frozen
func (l *Loader) Load(name ast.ClassName) (*Class, error) {
	if !l.frozen {
		if err := l.LoadAll([]ast.ClassName{name}); err != nil {
			return nil, err
		}
	}
	return l.GetClass(name)
}

// LoadAll loads every named class, then drains the queue of classes they refer to
func (l *Loader) LoadAll(names []ast.ClassName) error {
	if err := l.usable(); err != nil {
		return err
	}
	if l.frozen {
		for _, name := range names {
			if _, err := l.GetClass(name); err != nil {
				return err
			}
		}
		return nil
	}

	l.queue = append(l.queue, names...)
	for len(l.queue) > 0 {
		next := l.queue[0]
		l.queue = l.queue[1:]
		if _, err := l.loadAndEnqueueRelated(next); err != nil {
			// the rest stays queued for the next call
			l.queue = slices.DeleteFunc(l.queue, func(n ast.ClassName) bool { return n == next })
			return err
		}
	}
	return nil
}

// LoadEverything loads every class the authority declares, then freezes
func (l *Loader) LoadEverything() error {
	if err := l.LoadAll(l.authority.AllClassNames()); err != nil {
		return err
	}
	return l.Freeze()
}

func (l *Loader) loadAndEnqueueRelated(name ast.ClassName) (*Class, error) {
	if c, ok := l.classes[name]; ok {
		if c == nil {
			return nil, l.cycle(name)
		}
		return c, nil
	}
	decl, err := l.authority.ClassDeclaration(name)
	if err != nil {
		return nil, &ClassNotFoundError{Name: name, Err: err}
	}
	c, err := l.construct(decl)
	if err != nil {
		return nil, err
	}
	for _, ref := range decl.ReferencedClassNames() {
		if _, loaded := l.classes[ref]; !loaded {
			l.queue = append(l.queue, ref)
		}
	}
	return c, nil
}

// cycle records a supertype cycle through name and poisons the loader
func (l *Loader) cycle(name ast.ClassName) error {
	path := []ast.ClassName{name}
	for i, n := range l.constructing {
		if n == name {
			path = append(append([]ast.ClassName(nil), l.constructing[i:]...), name)
			break
		}
	}
	err := &CycleError{Path: path}
	l.broken = err
	l.logger.Error("class table broken", "error", err)
	return err
}

// construct links a declaration to its superclasses. All classes other than the
// two well-known ones are created here.
func (l *Loader) construct(decl *declaration.ClassDeclaration) (_ *Class, err error) {
	if l.frozen {
		return nil, fmt.Errorf("failed to construct %s: %w", string(decl.ClassName), ErrFrozen)
	}
	for _, name := range []ast.ClassName{decl.ClassName, decl.ShortName} {
		if name == "" {
			continue
		}
		if _, ok := l.classes[name]; ok {
			return nil, fmt.Errorf("class name %s is already in use", string(name))
		}
	}
	if decl.ClassName == ast.This {
		return nil, fmt.Errorf("%s is not a valid class name", string(ast.This))
	}

	l.classes[decl.ClassName] = nil
	if decl.ShortName != "" {
		l.classes[decl.ShortName] = nil
	}
	l.constructing = append(l.constructing, decl.ClassName)
	defer func() {
		l.constructing = l.constructing[:len(l.constructing)-1]
		if err != nil {
			delete(l.classes, decl.ClassName)
			delete(l.classes, decl.ShortName)
		}
	}()

	names := decl.SupertypeNames()
	if len(names) == 0 {
		names = []ast.ClassName{ast.Component}
	}
	supers := make([]*Class, 0, len(names))
	for _, name := range names {
		switch name {
		case ast.Component:
			if len(decl.Supertypes) > 0 {
				return nil, fmt.Errorf("class %s: %s is implied and may not be listed as a supertype",
					string(decl.ClassName), string(ast.Component))
			}
		case ast.Class:
			return nil, fmt.Errorf("class %s: %s may not be extended", string(decl.ClassName), string(ast.Class))
		}
		sup, supErr := l.loadAndEnqueueRelated(name)
		if supErr != nil {
			return nil, supErr
		}
		supers = append(supers, sup)
	}

	c := l.register(newClass(decl, l, supers))
	l.logger.Debug("constructed class", "class", string(decl.ClassName), "supertypes", len(supers))
	return c, nil
}

// Freeze closes the table. Every derived class value is computed now so that
// later reads never write; classes whose values failed are listed by Problems.
func (l *Loader) Freeze() error {
	if err := l.usable(); err != nil {
		return err
	}
	if l.frozen {
		return ErrFrozen
	}
	l.frozen = true
	for _, c := range l.order {
		if err := c.warm(); err != nil {
			l.problems = append(l.problems, classProblem(c, err))
			l.logger.Warn("class is unusable", "class", string(c.ClassName()), "error", err)
		}
	}
	l.logger.Debug("froze class table", "classes", len(l.order), "problems", len(l.problems))
	return nil
}

// classProblem prefixes err with the class name unless err already names it
func classProblem(c *Class, err error) error {
	var deps *DependencyConflictError
	if errors.As(err, &deps) && deps.Class == c.ClassName() {
		return err
	}
	var defaults *DefaultsConflictError
	if errors.As(err, &defaults) && defaults.Class == c.ClassName() {
		return err
	}
	return fmt.Errorf("class %s: %w", c.ClassName(), err)
}

// Problems returns the errors found while freezing, one per unusable class
func (l *Loader) Problems() []error {
	return l.problems
}

// AllClasses returns every loaded class in load order. Panics before Freeze.
func (l *Loader) AllClasses() []*Class {
	if !l.frozen {
		panic("types: AllClasses requires a frozen class table")
	}
	return l.order
}

// Resolve returns the type an expression denotes, loading classes as needed
func (l *Loader) Resolve(expr *ast.Expression) (*Type, error) {
	if err := l.usable(); err != nil {
		return nil, err
	}
	key := expr.String()
	if t, ok := l.cache.Load(key); ok {
		return t.(*Type), nil
	}
	t, err := l.resolve(expr)
	if err != nil {
		return nil, &ExpressionError{Expression: expr, Err: err}
	}
	actual, _ := l.cache.LoadOrStore(key, t)
	return actual.(*Type), nil
}

func (l *Loader) resolve(expr *ast.Expression) (*Type, error) {
	c, err := l.Load(expr.ClassName)
	if err != nil {
		return nil, err
	}
	t, err := c.Specialize(expr.Arguments)
	if err != nil {
		return nil, err
	}
	return t.Refine(expr.Refinement, expr.Forgiving)
}

// ResolveType returns t when it belongs to this loader, otherwise the
// equivalent type re-resolved here
func (l *Loader) ResolveType(t *Type) (*Type, error) {
	if t.loader == l {
		return t, nil
	}
	return l.Resolve(t.ExpressionFull())
}
