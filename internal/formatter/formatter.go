// Package formatter prints class declarations as canonical Pets source.
package formatter

import (
	"fmt"
	"strings"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
)

// Format returns Pets source declaring decls. A class whose only supertype is a
// bare earlier class in decls is nested in that class's body, so parsing the
// result yields the same declarations.
func Format(decls []*declaration.ClassDeclaration) string {
	f := &formatter{children: make(map[ast.ClassName][]*declaration.ClassDeclaration)}
	f.formatClasses(decls)
	return f.sb.String()
}

type formatter struct {
	sb       strings.Builder
	indent   int
	children map[ast.ClassName][]*declaration.ClassDeclaration
}

// --- helpers ---

func (f *formatter) emitLine(s string) {
	if s == "" {
		f.sb.WriteString("\n")
	} else {
		f.sb.WriteString(f.indentStr())
		f.sb.WriteString(s)
		f.sb.WriteString("\n")
	}
}

func (f *formatter) emitLinef(format string, args ...any) {
	f.sb.WriteString(f.indentStr())
	f.sb.WriteString(fmt.Sprintf(format, args...))
	f.sb.WriteString("\n")
}

func (f *formatter) incIndent() { f.indent++ }
func (f *formatter) decIndent() { f.indent-- }

func (f *formatter) indentStr() string {
	return strings.Repeat("  ", f.indent)
}

func (f *formatter) blankLine() {
	f.sb.WriteString("\n")
}

// --- classes ---

func (f *formatter) formatClasses(decls []*declaration.ClassDeclaration) {
	seen := make(map[ast.ClassName]bool)
	var top []*declaration.ClassDeclaration
	for _, d := range decls {
		if parent, ok := nestedUnder(d); ok && seen[parent] {
			f.children[parent] = append(f.children[parent], d)
		} else {
			top = append(top, d)
		}
		seen[d.ClassName] = true
	}

	for i, d := range top {
		if i > 0 {
			f.blankLine()
		}
		f.formatClass(d, false)
	}
}

// nestedUnder returns the class d would be nested under
func nestedUnder(d *declaration.ClassDeclaration) (ast.ClassName, bool) {
	if len(d.Supertypes) != 1 || !d.Supertypes[0].Simple() {
		return "", false
	}
	return d.Supertypes[0].ClassName, true
}

func (f *formatter) formatClass(d *declaration.ClassDeclaration, nested bool) {
	f.formatDocstring(d.Docstring)

	header := d.String()
	if nested {
		bare := *d
		bare.Supertypes = nil
		header = bare.String()
	}

	children := f.children[d.ClassName]
	if len(d.Invariants) == 0 && len(d.Effects) == 0 && len(d.Defaults.Clauses()) == 0 && len(children) == 0 {
		f.emitLine(header)
		return
	}

	f.emitLine(header + " {")
	f.incIndent()
	for _, inv := range d.Invariants {
		f.emitLinef("HAS %s", inv)
	}
	for _, clause := range d.Defaults.Clauses() {
		f.emitLinef("DEFAULT %s", clause)
	}
	for _, eff := range d.Effects {
		f.emitLine(eff.String())
	}
	for _, child := range children {
		f.formatClass(child, true)
	}
	f.decIndent()
	f.emitLine("}")
}

// formatDocstring writes a docstring as line comments, which the parser skips
func (f *formatter) formatDocstring(doc string) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		f.emitLine(strings.TrimRight("// "+line, " "))
	}
}
