package bundle

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
)

const petsSource = `
ABSTRACT CLASS Owner { CLASS Player1, Player2 }
ABSTRACT CLASS Owned<Owner>
`

const yamlSource = `
name: cards
classes:
  - "CLASS Tax<Owner>"
  - class: "CLASS Plant[P] : Owned"
    doc: A card resource
    has: [MAX 9 This]
    defaults: ["+This!"]
    effects: ["This: Tax<Owner>"]
`

const cueSource = `
name: "tiles"
classes: [
	"ABSTRACT CLASS Area",
	{
		class: "ABSTRACT CLASS Tile<Area>"
		doc:   "Something on the map"
	},
	{source: "CLASS Mars1 : Area; CLASS Mars2 : Area"},
]
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"base/owner.pets":  {Data: []byte(petsSource)},
		"cards/cards.yaml": {Data: []byte(yamlSource)},
		"map/tiles.cue":    {Data: []byte(cueSource)},
		"README.md":        {Data: []byte("not a bundle file")},
		".hidden/x.pets":   {Data: []byte("CLASS Hidden")},
	}
}

func TestLoad(t *testing.T) {
	b, err := Load(testFS(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := strings.Join(b.Files, " "); got != "base/owner.pets cards/cards.yaml map/tiles.cue" {
		t.Errorf("unexpected files %q", got)
	}

	var names []string
	for _, n := range b.AllClassNames() {
		names = append(names, string(n))
	}
	want := "Owner Player1 Player2 Owned Tax Plant Area Tile Mars1 Mars2"
	if got := strings.Join(names, " "); got != want {
		t.Errorf("expected classes %q, got %q", want, got)
	}

	plant, err := b.ClassDeclaration("P")
	if err != nil {
		t.Fatalf("ClassDeclaration(P): %v", err)
	}
	if plant.ClassName != "Plant" || plant.Docstring != "A card resource" {
		t.Errorf("unexpected Plant declaration %s %q", plant, plant.Docstring)
	}
	if len(plant.Invariants) != 1 || plant.Invariants[0].String() != "MAX 9 This" {
		t.Errorf("unexpected invariants %v", plant.Invariants)
	}
	if plant.Defaults.GainOnly.Intensity != ast.IntensityMandatory {
		t.Errorf("expected a gain-only default intensity")
	}
	if len(plant.Effects) != 1 || plant.Effects[0].String() != "This: Tax<Owner>" {
		t.Errorf("unexpected effects %v", plant.Effects)
	}

	tile, err := b.ClassDeclaration("Tile")
	if err != nil {
		t.Fatalf("ClassDeclaration(Tile): %v", err)
	}
	if !tile.Abstract || tile.Docstring != "Something on the map" {
		t.Errorf("unexpected Tile declaration %s %q", tile, tile.Docstring)
	}
	if len(b.Fingerprint) != 64 {
		t.Errorf("expected a 32-byte hex fingerprint, got %q", b.Fingerprint)
	}
}

func TestLoadPatterns(t *testing.T) {
	b, err := Load(testFS(), nil, "**/*.pets")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Files) != 1 || b.Files[0] != "base/owner.pets" {
		t.Errorf("unexpected files %v", b.Files)
	}

	if _, err := Load(testFS(), nil, "**/*.json"); err == nil {
		t.Error("expected an error when nothing matches")
	}
	if _, err := Load(testFS(), nil, "[unclosed"); err == nil {
		t.Error("expected an error for a bad pattern")
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	fsys := testFS()
	first, err := Load(fsys, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	again, err := Load(fsys, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Fingerprint != again.Fingerprint {
		t.Error("expected the same fingerprint for the same files")
	}

	fsys["base/owner.pets"] = &fstest.MapFile{Data: []byte(petsSource + "CLASS Extra\n")}
	changed, err := Load(fsys, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if changed.Fingerprint == first.Fingerprint {
		t.Error("expected a different fingerprint after an edit")
	}
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a := mustAuthority(t, "CLASS Foo", "CLASS Bar : Foo")
	b := mustAuthority(t, "CLASS Bar : Foo", "CLASS Foo")
	c := mustAuthority(t, "CLASS Foo", "CLASS Bar")
	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fb, _ := Fingerprint(b)
	fc, _ := Fingerprint(c)
	if fa != fb {
		t.Error("expected declaration order not to matter")
	}
	if fa == fc {
		t.Error("expected a different supertype to matter")
	}
}

func mustAuthority(t *testing.T, lines ...string) declaration.Authority {
	t.Helper()
	decls, diags := Decode("test.pets", []byte(strings.Join(lines, "\n")))
	if err := diags.Err(); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	a, err := declaration.NewMapAuthority(decls...)
	if err != nil {
		t.Fatalf("NewMapAuthority: %v", err)
	}
	return a
}

func TestLoadReportsProblems(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want string
	}{
		{"pets syntax", "a.pets", "CLASS Foo<", "a.pets"},
		{"duplicate class", "a.pets", "CLASS Foo\nCLASS Foo", "duplicate declaration"},
		{"yaml syntax", "a.yaml", "classes: [", "parsing YAML"},
		{"yaml unknown field", "a.yaml", "klasses: []", "parsing YAML"},
		{"yaml empty entry", "a.yaml", "classes:\n  - doc: nothing\n", "entry needs either class or source"},
		{"yaml both", "a.yaml", "classes:\n  - class: CLASS Foo\n    source: CLASS Bar\n", "both class and source"},
		{"yaml bad body", "a.yaml", "classes:\n  - class: CLASS Foo\n    has: [\"0 Foo\"]\n", "a.yaml line 2"},
		{"cue syntax", "a.cue", "classes: [", "a.cue"},
		{"cue schema", "a.cue", `classes: [{klass: "CLASS Foo"}]`, "a.cue"},
		{"cue header", "a.cue", `classes: [{class: "Foo"}]`, "a.cue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(fstest.MapFS{tt.file: {Data: []byte(tt.data)}}, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			var list *diagnostic.ListError
			if !errors.As(err, &list) {
				t.Fatalf("expected diagnostics, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestYAMLUnknownEntryKeyIsAWarning(t *testing.T) {
	decls, diags := Decode("a.yaml", []byte("classes:\n  - class: CLASS Foo\n    colour: red\n"))
	if err := diags.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decls) != 1 {
		t.Fatalf("expected one class, got %d", len(decls))
	}
	all := diags.All()
	if len(all) != 1 || all[0].Severity != diagnostic.Warning || all[0].Line != 3 {
		t.Errorf("expected one warning on line 3, got %v", all)
	}
}

func TestEncodeYAMLRoundTrips(t *testing.T) {
	decls, diags := Decode("cards.yaml", []byte(yamlSource))
	if err := diags.Err(); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	data, err := EncodeYAML("cards", decls)
	if err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	again, diags := Decode("again.yaml", data)
	if err := diags.Err(); err != nil {
		t.Fatalf("Decode of encoded: %v\n%s", err, data)
	}
	if len(again) != len(decls) {
		t.Fatalf("expected %d classes, got %d", len(decls), len(again))
	}
	for i := range decls {
		if canonical(decls[i]) != canonical(again[i]) {
			t.Errorf("class %d changed:\n%s\nvs\n%s", i, canonical(decls[i]), canonical(again[i]))
		}
	}
}

func TestEntryPets(t *testing.T) {
	e := Entry{Class: "CLASS Foo", Has: []string{"Bar"}, Defaults: []string{"+This!"}, Effects: []string{"This: Bar"}}
	want := "CLASS Foo {\n  HAS Bar\n  DEFAULT +This!\n  This: Bar\n}"
	if got := e.Pets(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := (&Entry{Class: "CLASS Foo"}).Pets(); got != "CLASS Foo" {
		t.Errorf("expected a one-liner, got %q", got)
	}
}
