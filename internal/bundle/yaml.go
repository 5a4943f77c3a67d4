package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
)

// yamlFile keeps the entries as nodes so each can be reported by line
type yamlFile struct {
	Name    string      `yaml:"name"`
	Classes []yaml.Node `yaml:"classes"`
}

var entryKeys = map[string]bool{
	"class": true, "doc": true, "has": true, "defaults": true, "effects": true, "source": true,
}

func decodeYAML(name string, data []byte) ([]*declaration.ClassDeclaration, *diagnostic.Diagnostics) {
	diags := diagnostic.New()
	var raw yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		diags.ErrorInSource(name, fmt.Errorf("parsing YAML: %w", err))
		return nil, diags
	}

	file := &File{Name: raw.Name}
	var lines []int
	for i := range raw.Classes {
		node := &raw.Classes[i]
		var e Entry
		switch node.Kind {
		case yaml.ScalarNode:
			// a bare string is a one-line class
			e.Class = node.Value
		case yaml.MappingNode:
			for j := 0; j+1 < len(node.Content); j += 2 {
				if key := node.Content[j]; !entryKeys[key.Value] {
					diags.Add(diagnostic.Diagnostic{
						Severity: diagnostic.Warning,
						Message:  fmt.Sprintf("unknown entry key %q", key.Value),
						Line:     key.Line,
						Column:   key.Column,
						Source:   name,
					})
				}
			}
			if err := node.Decode(&e); err != nil {
				diags.Add(diagnostic.Diagnostic{
					Severity: diagnostic.Error,
					Message:  err.Error(),
					Line:     node.Line,
					Column:   node.Column,
					Source:   name,
				})
				continue
			}
		default:
			diags.Add(diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Message:  "a class entry must be a string or a mapping",
				Line:     node.Line,
				Column:   node.Column,
				Source:   name,
			})
			continue
		}
		file.Classes = append(file.Classes, e)
		lines = append(lines, node.Line)
	}

	decls, entryDiags := entryDeclarations(name, file, lines)
	diags.Merge(name, entryDiags)
	return decls, diags
}

// EncodeYAML writes declarations back out in the YAML bundle format
func EncodeYAML(name string, decls []*declaration.ClassDeclaration) ([]byte, error) {
	file := File{Name: name}
	for _, d := range decls {
		file.Classes = append(file.Classes, entryFor(d))
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&file); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func entryFor(d *declaration.ClassDeclaration) Entry {
	e := Entry{Class: d.String(), Doc: d.Docstring}
	for _, inv := range d.Invariants {
		e.Has = append(e.Has, inv.String())
	}
	e.Defaults = d.Defaults.Clauses()
	for _, eff := range d.Effects {
		e.Effects = append(e.Effects, eff.String())
	}
	return e
}
