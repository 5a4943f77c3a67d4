package bundle

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
)

//go:embed schema.cue
var schemaSource string

func decodeCUE(name string, data []byte) ([]*declaration.ClassDeclaration, *diagnostic.Diagnostics) {
	diags := diagnostic.New()
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// the schema is part of the binary
		panic(fmt.Sprintf("bundle: invalid CUE schema: %v", err))
	}

	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		addCUEErrors(diags, name, err)
		return nil, diags
	}
	unified := schema.LookupPath(cue.ParsePath("#Bundle")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		addCUEErrors(diags, name, err)
		return nil, diags
	}

	file := &File{}
	if nv := unified.LookupPath(cue.ParsePath("name")); nv.Exists() {
		file.Name, _ = nv.String()
	}
	list, err := unified.LookupPath(cue.ParsePath("classes")).List()
	if err != nil {
		addCUEErrors(diags, name, err)
		return nil, diags
	}
	var lines []int
	for list.Next() {
		item := list.Value()
		var e Entry
		if s, err := item.String(); err == nil {
			e.Class = s
		} else if err := item.Decode(&e); err != nil {
			addCUEErrors(diags, name, err)
			continue
		}
		file.Classes = append(file.Classes, e)
		lines = append(lines, item.Pos().Line())
	}

	decls, entryDiags := entryDeclarations(name, file, lines)
	diags.Merge(name, entryDiags)
	return decls, diags
}

// addCUEErrors records each CUE error with its position
func addCUEErrors(diags *diagnostic.Diagnostics, name string, err error) {
	for _, e := range cueerrors.Errors(err) {
		d := diagnostic.Diagnostic{Severity: diagnostic.Error, Source: name}
		format, args := e.Msg()
		d.Message = fmt.Sprintf(format, args...)
		if path := e.Path(); len(path) > 0 {
			d.Message = strings.Join(path, ".") + ": " + d.Message
		}
		if pos := e.Position(); pos.IsValid() {
			d.Line, d.Column = pos.Line(), pos.Column()
		}
		diags.Add(d)
	}
}
