package linter

import (
	"strings"
	"testing"

	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
	"github.com/MartianZoo/solarnet-sub002/internal/parser"
	"github.com/MartianZoo/solarnet-sub002/internal/types"
)

func parseAndLint(t *testing.T, source string) []string {
	t.Helper()
	decls, err := parser.ParseClasses(source)
	if err != nil {
		t.Fatalf("Parser errors: %v", err)
	}
	authority, err := declaration.NewMapAuthority(decls...)
	if err != nil {
		t.Fatalf("NewMapAuthority: %v", err)
	}
	loader, err := types.NewLoader(authority)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if err := loader.LoadEverything(); err != nil {
		t.Fatalf("LoadEverything: %v", err)
	}

	diag := Lint(loader)
	if diag.HasErrors() {
		t.Fatalf("linter reported errors: %v", diag.All())
	}
	var warnings []string
	for _, d := range diag.All() {
		if d.Severity != diagnostic.Warning {
			t.Errorf("expected only warnings, got %v", d)
		}
		warnings = append(warnings, d.Message)
	}
	return warnings
}

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestCleanTableHasNoWarnings(t *testing.T) {
	source := `
ABSTRACT CLASS Owner { CLASS Player1, Player2 }
ABSTRACT CLASS Owned<Owner> {
  CLASS Plant[P], Heat
}
`
	if warnings := parseAndLint(t, source); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestLintRules(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"snake case", "CLASS Plant_Tag", "class name 'Plant_Tag' should be PascalCase"},
		{"snake case short name", "CLASS PlantTag[P_T]", "short name 'P_T' should be PascalCase"},
		{"long short name", "CLASS Heat[Temperature]", "short name 'Temperature' is not shorter than 'Heat'"},
		{"repeated short name", "CLASS Heat[Heat]", "repeats the class name"},
		{"abstract leaf", "ABSTRACT CLASS Tag", "abstract class 'Tag' has no subclasses"},
		{"redundant supertype", "ABSTRACT CLASS Owned { CLASS Tile }\nCLASS City : Owned, Tile", "supertype 'Owned' of 'City' is already implied by 'Tile'"},
		{"single subclass", "ABSTRACT CLASS Tag { CLASS SpaceTag }", "abstract class 'Tag' has a single subclass 'SpaceTag'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := parseAndLint(t, tt.source)
			if !containsWarning(warnings, tt.want) {
				t.Errorf("expected %q, got: %v", tt.want, warnings)
			}
		})
	}
}

func TestRedundantSupertypeWithArgumentsNoWarning(t *testing.T) {
	source := `
ABSTRACT CLASS Owner { CLASS Player1, Player2 }
ABSTRACT CLASS Owned<Owner> { CLASS Tile, Plant }
CLASS City : Owned<Player1>, Tile
`
	warnings := parseAndLint(t, source)
	if containsWarning(warnings, "already implied") {
		t.Errorf("did not expect a redundant supertype warning, got: %v", warnings)
	}
}

func TestSingleSubclassThatDeclaresSomethingNoWarning(t *testing.T) {
	source := `
ABSTRACT CLASS Owner { CLASS Player1, Player2 }
ABSTRACT CLASS Owned<Owner> { CLASS Plant }
`
	warnings := parseAndLint(t, source)
	if containsWarning(warnings, "single subclass") {
		t.Errorf("did not expect a single subclass warning, got: %v", warnings)
	}
}

func TestWarningsNameTheClass(t *testing.T) {
	decls, err := parser.ParseClasses("ABSTRACT CLASS Tag")
	if err != nil {
		t.Fatal(err)
	}
	authority, _ := declaration.NewMapAuthority(decls...)
	loader, _ := types.NewLoader(authority)
	if err := loader.LoadEverything(); err != nil {
		t.Fatal(err)
	}
	all := Lint(loader).All()
	if len(all) != 1 || all[0].Source != "Tag" {
		t.Errorf("expected one warning for Tag, got %v", all)
	}
}
