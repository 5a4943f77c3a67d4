// Package linter reports style problems in a class table. Findings are always
// warnings: a table that loads is usable whatever the linter says.
package linter

import (
	"strings"
	"unicode"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
	"github.com/MartianZoo/solarnet-sub002/internal/types"
)

// Linter walks the classes of a frozen loader collecting warnings
type Linter struct {
	loader *types.Loader
	diag   *diagnostic.Diagnostics
}

// Lint checks every class the loader holds. The loader must be frozen.
func Lint(loader *types.Loader) *diagnostic.Diagnostics {
	l := &Linter{
		loader: loader,
		diag:   diagnostic.New(),
	}
	l.lint()
	return l.diag
}

func (l *Linter) lint() {
	for _, c := range l.loader.AllClasses() {
		l.checkClassNames(c)
		l.checkShortName(c)
		l.checkAbstractLeaf(c)
		l.checkRedundantSupertypes(c)
		l.checkSingleSubclass(c)
	}
}

// --- rules ---

func (l *Linter) checkClassNames(c *types.Class) {
	decl := c.Declaration()
	if !isPascalCase(string(decl.ClassName)) {
		l.diag.WarningInSource(string(decl.ClassName), "class name '%s' should be PascalCase", decl.ClassName)
	}
	if decl.ShortName != "" && !isPascalCase(string(decl.ShortName)) {
		l.diag.WarningInSource(string(decl.ClassName), "short name '%s' should be PascalCase", decl.ShortName)
	}
}

func (l *Linter) checkShortName(c *types.Class) {
	decl := c.Declaration()
	if decl.ShortName == "" {
		return
	}
	if decl.ShortName == decl.ClassName {
		l.diag.WarningInSource(string(decl.ClassName), "short name '%s' repeats the class name", decl.ShortName)
		return
	}
	if len(decl.ShortName) >= len(decl.ClassName) {
		l.diag.WarningInSource(string(decl.ClassName), "short name '%s' is not shorter than '%s'", decl.ShortName, decl.ClassName)
	}
}

func (l *Linter) checkAbstractLeaf(c *types.Class) {
	if c.Abstract() && len(c.DirectSubclasses()) == 0 {
		l.diag.WarningInSource(string(c.ClassName()), "abstract class '%s' has no subclasses and can never have instances", c.ClassName())
	}
}

// checkRedundantSupertypes flags a bare listed superclass that another listed
// superclass already extends. A listed supertype with arguments narrows
// dependencies and is left alone.
func (l *Linter) checkRedundantSupertypes(c *types.Class) {
	direct := c.DirectSuperclasses()
	for _, s := range direct {
		if !listedBare(c, s) {
			continue
		}
		for _, o := range direct {
			if o != s && o.IsSubtypeOf(s) {
				l.diag.WarningInSource(string(c.ClassName()), "supertype '%s' of '%s' is already implied by '%s'", s.ClassName(), c.ClassName(), o.ClassName())
				break
			}
		}
	}
}

// checkSingleSubclass flags an abstract class that adds nothing over its only subclass
func (l *Linter) checkSingleSubclass(c *types.Class) {
	if !c.Abstract() || c.ClassName() == ast.Component {
		return
	}
	subs := c.DirectSubclasses()
	if len(subs) != 1 {
		return
	}
	decl := c.Declaration()
	if len(decl.Dependencies) > 0 || len(decl.Invariants) > 0 || len(decl.Effects) > 0 || !defaultsEmpty(c) {
		return
	}
	l.diag.WarningInSource(string(c.ClassName()), "abstract class '%s' has a single subclass '%s' and declares nothing", c.ClassName(), subs[0].ClassName())
}

// --- helpers ---

// listedBare reports whether c lists sup as a supertype without arguments
func listedBare(c *types.Class, sup *types.Class) bool {
	for _, e := range c.Declaration().Supertypes {
		if e.ClassName == sup.ClassName() || e.ClassName == sup.ShortName() {
			return e.Simple()
		}
	}
	return false
}

func defaultsEmpty(c *types.Class) bool {
	d := c.Declaration().Defaults
	return d.Universal.IsZero() && d.GainOnly.IsZero() && d.RemoveOnly.IsZero()
}

// isPascalCase checks if a name starts with an uppercase letter and has no underscores.
func isPascalCase(name string) bool {
	if len(name) == 0 {
		return false
	}
	runes := []rune(name)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	return !strings.ContainsRune(name, '_')
}
