// Package bundle reads class declarations from files: Pets source (.pets),
// YAML (.yaml, .yml) and CUE (.cue). A bundle is every matching file in a
// directory tree, combined into one Authority for a class table.
package bundle

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
	"github.com/MartianZoo/solarnet-sub002/internal/parser"
)

// DefaultPattern selects every supported file anywhere under the root
const DefaultPattern = "**/*.{pets,yaml,yml,cue}"

// Entry is one class in a YAML or CUE file. Either Class is a one-line
// signature such as `ABSTRACT CLASS Tile<Area> : Owned` and the other fields
// fill its body, or Source holds Pets text with any number of classes.
type Entry struct {
	Class    string   `yaml:"class,omitempty" json:"class,omitempty"`
	Doc      string   `yaml:"doc,omitempty" json:"doc,omitempty"`
	Has      []string `yaml:"has,omitempty" json:"has,omitempty"`
	Defaults []string `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Effects  []string `yaml:"effects,omitempty" json:"effects,omitempty"`
	Source   string   `yaml:"source,omitempty" json:"source,omitempty"`
}

// File is the document shape shared by the YAML and CUE formats
type File struct {
	Name    string  `yaml:"name,omitempty" json:"name,omitempty"`
	Classes []Entry `yaml:"classes,omitempty" json:"classes"`
}

// Pets renders the entry as Pets declaration text
func (e *Entry) Pets() string {
	if e.Source != "" {
		return e.Source
	}
	var body []string
	for _, h := range e.Has {
		body = append(body, "HAS "+h)
	}
	for _, d := range e.Defaults {
		body = append(body, "DEFAULT "+d)
	}
	body = append(body, e.Effects...)
	if len(body) == 0 {
		return e.Class
	}
	return e.Class + " {\n  " + strings.Join(body, "\n  ") + "\n}"
}

func (e *Entry) check() error {
	switch {
	case e.Class == "" && e.Source == "":
		return fmt.Errorf("entry needs either class or source")
	case e.Class != "" && e.Source != "":
		return fmt.Errorf("entry %q has both class and source", e.Class)
	case e.Source != "" && (e.Doc != "" || len(e.Has) > 0 || len(e.Defaults) > 0 || len(e.Effects) > 0):
		return fmt.Errorf("a source entry takes no other fields")
	}
	return nil
}

// Bundle is the combined declarations of a set of files
type Bundle struct {
	*declaration.MapAuthority
	Files       []string // in the order they were read
	Fingerprint string   // BLAKE3 over file names and contents
	Diagnostics *diagnostic.Diagnostics
}

// Decode reads the declarations in one file, choosing the format by extension
func Decode(name string, data []byte) ([]*declaration.ClassDeclaration, *diagnostic.Diagnostics) {
	switch path.Ext(name) {
	case ".pets":
		p := parser.New(string(data))
		decls := p.ParseClasses()
		diags := diagnostic.New()
		diags.Merge(name, p.Diagnostics())
		return decls, diags
	case ".yaml", ".yml":
		return decodeYAML(name, data)
	case ".cue":
		return decodeCUE(name, data)
	default:
		diags := diagnostic.New()
		diags.ErrorInSource(name, fmt.Errorf("unsupported bundle file type %q", path.Ext(name)))
		return nil, diags
	}
}

// entryDeclarations parses the entries of a decoded File
func entryDeclarations(name string, file *File, lines []int) ([]*declaration.ClassDeclaration, *diagnostic.Diagnostics) {
	diags := diagnostic.New()
	var out []*declaration.ClassDeclaration
	for i := range file.Classes {
		e := &file.Classes[i]
		source := fmt.Sprintf("%s entry %d", name, i+1)
		if i < len(lines) && lines[i] > 0 {
			source = fmt.Sprintf("%s line %d", name, lines[i])
		}
		if err := e.check(); err != nil {
			diags.ErrorInSource(source, err)
			continue
		}
		p := parser.New(e.Pets())
		decls := p.ParseClasses()
		diags.Merge(source, p.Diagnostics())
		if len(decls) == 0 {
			continue
		}
		if e.Doc != "" {
			decls[0].Docstring = e.Doc
		}
		out = append(out, decls...)
	}
	return out, diags
}

// Load reads every file under fsys that matches one of the patterns, in path
// order, into one bundle. With no patterns DefaultPattern is used. The error
// carries every error-level diagnostic; warnings stay in Bundle.Diagnostics.
func Load(fsys fs.FS, logger *slog.Logger, patterns ...string) (*Bundle, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid bundle pattern %q", p)
		}
	}

	files, err := matchFiles(fsys, patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no bundle files match %s", strings.Join(patterns, ", "))
	}

	authority, _ := declaration.NewMapAuthority()
	b := &Bundle{
		MapAuthority: authority,
		Files:        files,
		Diagnostics:  diagnostic.New(),
	}
	hash := newFingerprint()
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading bundle file: %w", err)
		}
		hash.add(name, data)

		decls, diags := Decode(name, data)
		b.Diagnostics.Merge(name, diags)
		for _, d := range decls {
			if err := b.Add(d); err != nil {
				b.Diagnostics.ErrorInSource(name, err)
			}
		}
		logger.Debug("read bundle file", "file", name, "classes", len(decls))
	}
	b.Fingerprint = hash.sum()
	logger.Info("loaded bundle", "files", len(files), "classes", len(b.AllClassNames()), "fingerprint", b.Fingerprint[:12])

	if err := b.Diagnostics.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func matchFiles(fsys fs.FS, patterns []string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, name); ok {
				files = append(files, name)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking bundle directory: %w", err)
	}
	slices.Sort(files)
	return files, nil
}
