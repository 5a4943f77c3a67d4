package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/parser"
)

func resolve(t *testing.T, l *Loader, text string) *Type {
	t.Helper()
	expr, err := parser.ParseExpression(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	typ, err := l.Resolve(expr)
	if err != nil {
		t.Fatalf("resolve %q: %v", text, err)
	}
	return typ
}

func resolveErr(t *testing.T, l *Loader, text string) error {
	t.Helper()
	expr, err := parser.ParseExpression(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	_, err = l.Resolve(expr)
	return err
}

func complexTable(t *testing.T) *Loader {
	return loadTypes(t,
		"CLASS Foo1",
		"CLASS Foo2 : Foo1",
		"CLASS Foo3 : Foo2",
		"CLASS Bar1",
		"CLASS Bar2 : Bar1",
		"CLASS Bar3 : Bar2",
		"CLASS Qux1",
		"CLASS Qux2 : Qux1",
		"CLASS Qux3 : Qux2",
		"CLASS Complex1<Foo1, Bar1, Qux1>",
		"CLASS Complex2: Complex1<Foo2, Bar2, Qux2>",
		"CLASS Complex3: Complex2<Foo3, Bar3, Qux3>",
		"CLASS TwoSame<Foo2, Foo2>",
	)
}

func TestDepsAndSpecs(t *testing.T) {
	l := loadTypes(t,
		"ABSTRACT CLASS SuperFoo",
		"ABSTRACT CLASS Foo : SuperFoo",
		"CLASS SubFoo : Foo",
		"ABSTRACT CLASS SuperBar<SuperFoo>",
		"CLASS Bar : SuperBar<Foo>",
		"CLASS SubBar : Bar<SubFoo>",
		"CLASS Qux",
	)
	order := []string{"SuperBar<SuperFoo>", "SuperBar<Foo>", "SuperBar<SubFoo>", "Bar<Foo>", "Bar<SubFoo>", "SubBar<SubFoo>"}
	abstract := map[string]bool{
		"SuperBar<SuperFoo>": true, "SuperBar<Foo>": true, "SuperBar<SubFoo>": true,
		"Bar<Foo>": true, "Bar<SubFoo>": false, "SubBar<SubFoo>": false,
	}
	// each type narrows itself and everything before it except where noted
	unrelated := map[[2]string]bool{
		{"Bar<Foo>", "SuperBar<SubFoo>"}: true,
	}
	for i, sub := range order {
		st := resolve(t, l, sub)
		if st.Abstract() != abstract[sub] {
			t.Errorf("%s: expected abstract=%v", sub, abstract[sub])
		}
		for _, sup := range order[:i+1] {
			want := !unrelated[[2]string{sub, sup}]
			if got := st.IsSubtypeOf(resolve(t, l, sup)); got != want {
				t.Errorf("%s subtype of %s: expected %v, got %v", sub, sup, want, got)
			}
		}
	}

	adjust := []struct{ in, out string }{
		{"Bar<SuperFoo>", "Bar<Foo>"},
		{"SubBar<SuperFoo>", "SubBar<SubFoo>"},
		{"SubBar<Foo>", "SubBar<SubFoo>"},
	}
	for _, tt := range adjust {
		if got := resolve(t, l, tt.in).ExpressionFull().String(); got != tt.out {
			t.Errorf("%s: expected %s, got %s", tt.in, tt.out, got)
		}
	}

	// specializing an abstract type canonicalizes like resolving directly
	spec, err := resolve(t, l, "Bar<SuperFoo>").Specialize([]*ast.Expression{ast.ClassName("SubFoo").Expression()})
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if !spec.Equal(resolve(t, l, "Bar<SubFoo>")) {
		t.Errorf("expected Bar<SubFoo>, got %s", spec.ExpressionFull())
	}

	for _, bad := range []string{"Foo<Qux>", "Foo<Bar>", "Bar<Qux>"} {
		var badExpr *BadExpressionError
		if err := resolveErr(t, l, bad); !errors.As(err, &badExpr) {
			t.Errorf("%s: expected BadExpressionError, got %v", bad, err)
		}
	}
}

func TestClassTypes(t *testing.T) {
	l := loadTypes(t, "CLASS Foo", "CLASS Bar", "CLASS Qux")
	for _, bad := range []string{
		"Class<Class<Class>>",
		"Class<Class<Foo>>",
		"Class<Foo<Bar>>",
		"Class<Foo, Bar>",
		"Qux<Class<Foo<Bar>>>",
		"Qux<Class<Foo, Bar>>",
		"Class<Class<Component>>",
	} {
		if err := resolveErr(t, l, bad); err == nil {
			t.Errorf("expected %s to fail", bad)
		}
	}

	classFoo := resolve(t, l, "Class<Foo>")
	if classFoo.Abstract() {
		t.Error("expected Class<Foo> to be concrete")
	}
	if !classFoo.IsSubtypeOf(resolve(t, l, "Class")) {
		t.Error("expected Class<Foo> to be a subtype of Class")
	}
	if got := resolve(t, l, "Class").ExpressionFull().String(); got != "Class<Component>" {
		t.Errorf("expected Class<Component>, got %s", got)
	}
	foo := getClass(t, l, "Foo")
	ct, err := foo.ClassType()
	if err != nil {
		t.Fatalf("ClassType: %v", err)
	}
	if !ct.Equal(classFoo) {
		t.Errorf("expected ClassType %s, got %s", classFoo, ct)
	}
}

func TestCardboundWeirdness(t *testing.T) {
	l := loadTypes(t, `
ABSTRACT CLASS Anyone {
  ABSTRACT CLASS Owner { CLASS Player1, Player2 }
}

ABSTRACT CLASS Owned<Owner> {
  ABSTRACT CLASS CardFront
  ABSTRACT CLASS Cardbound<CardFront>
}

// an extension of Cardbound<ResourceCard<Class<CardResource>>>
ABSTRACT CLASS CardResource : Cardbound<ResourceCard<Class<This>>> {
  CLASS Animal, Microbe
}
ABSTRACT CLASS ResourceCard<Class<CardResource>> : CardFront

CLASS Fish : ResourceCard<Class<Animal>>
CLASS Ants : ResourceCard<Class<Microbe>>
`)

	animal := getClass(t, l, "Animal")
	base, err := animal.BaseType()
	if err != nil {
		t.Fatalf("BaseType: %v", err)
	}
	if got := base.ExpressionFull().String(); got != "Animal<Owner, ResourceCard<Owner, Class<Animal>>>" {
		t.Errorf("unexpected base type %s", got)
	}
	if !resolve(t, l, "Animal<Fish>").Abstract() {
		t.Error("expected Animal<Fish> to be abstract")
	}
	if resolve(t, l, "Animal<Player1, Fish<Player1>>").Abstract() {
		t.Error("expected Animal<Player1, Fish<Player1>> to be concrete")
	}
	if got := resolve(t, l, "Fish").ExpressionFull().String(); got != "Fish<Owner, Class<Animal>>" {
		t.Errorf("unexpected Fish %s", got)
	}
	if err := resolveErr(t, l, "Animal<Ants>"); err == nil {
		t.Error("expected Animal<Ants> to fail")
	}
}

func TestSubtypes(t *testing.T) {
	l := complexTable(t)
	proper := []struct{ sub, sup string }{
		{"Complex1<Foo2, Bar1, Qux1>", "Complex1<Foo1, Bar1, Qux1>"},
		{"Complex1<Foo1, Bar2, Qux1>", "Complex1<Foo1, Bar1, Qux1>"},
		{"Complex1<Foo1, Bar1, Qux2>", "Complex1<Foo1, Bar1, Qux1>"},
		{"Complex2<Foo2, Bar2, Qux2>", "Complex1<Foo2, Bar2, Qux2>"},
		{"Complex2<Foo2, Bar2, Qux2>", "Complex1<Foo1, Bar2, Qux2>"},
		{"Complex2<Foo2, Bar2, Qux2>", "Complex1<Foo2, Bar1, Qux2>"},
		{"Complex2<Foo2, Bar2, Qux2>", "Complex1<Foo2, Bar2, Qux1>"},
		{"Complex2<Foo3, Bar2, Qux2>", "Complex1<Foo3, Bar2, Qux2>"},
		{"Complex1(HAS Foo1)", "Complex1"},
	}
	for _, tt := range proper {
		sub, sup := resolve(t, l, tt.sub), resolve(t, l, tt.sup)
		if !sub.IsSubtypeOf(sup) {
			t.Errorf("expected %s to be a subtype of %s", tt.sub, tt.sup)
		}
		if sup.IsSubtypeOf(sub) {
			t.Errorf("expected %s not to be a subtype of %s", tt.sup, tt.sub)
		}
	}

	unrelated := []struct{ a, b string }{
		{"Complex1<Foo2>", "Complex1<Bar2>"},
		{"Complex1(HAS Foo2)", "Complex1(HAS Foo1)"},
		{"Foo1", "Bar1"},
	}
	for _, tt := range unrelated {
		a, b := resolve(t, l, tt.a), resolve(t, l, tt.b)
		if a.IsSubtypeOf(b) || b.IsSubtypeOf(a) {
			t.Errorf("expected %s and %s to be unrelated", tt.a, tt.b)
		}
	}
}

func TestNarrowingIsReflexiveAndTransitive(t *testing.T) {
	l := complexTable(t)
	chain := []string{"Complex3", "Complex2<Foo3>", "Complex2", "Complex1<Foo2, Bar2>", "Complex1<Foo2>", "Complex1", "Component"}
	types := make([]*Type, len(chain))
	for i, text := range chain {
		types[i] = resolve(t, l, text)
	}
	for i, a := range types {
		for j := i; j < len(types); j++ {
			if !a.IsSubtypeOf(types[j]) {
				t.Errorf("expected %s to narrow %s", chain[i], chain[j])
			}
		}
	}
}

func TestPartialArguments(t *testing.T) {
	l := complexTable(t)
	base := resolve(t, l, "Complex1")
	if got := base.ExpressionFull().String(); got != "Complex1<Foo1, Bar1, Qux1>" {
		t.Errorf("unexpected full expression %s", got)
	}
	if got := base.Expression().String(); got != "Complex1" {
		t.Errorf("unexpected expression %s", got)
	}

	ofFoo2 := resolve(t, l, "Complex1<Foo2>")
	if got := ofFoo2.ExpressionFull().String(); got != "Complex1<Foo2, Bar1, Qux1>" {
		t.Errorf("unexpected full expression %s", got)
	}
	if got := ofFoo2.Expression().String(); got != "Complex1<Foo2>" {
		t.Errorf("unexpected expression %s", got)
	}

	tests := []struct {
		want *Type
		in   []string
	}{
		{base, []string{
			"Complex1<Foo1>", "Complex1<Bar1>", "Complex1<Qux1>",
			"Complex1<Foo1, Bar1>", "Complex1<Foo1, Qux1>", "Complex1<Bar1, Qux1>", "Complex1<Foo1, Bar1, Qux1>",
			"Complex1<Bar1, Foo1>", "Complex1<Qux1, Foo1>", "Complex1<Qux1, Bar1>", "Complex1<Foo1, Qux1, Bar1>",
			"Complex1<Bar1, Qux1, Foo1>", "Complex1<Bar1, Foo1, Qux1>", "Complex1<Qux1, Foo1, Bar1>", "Complex1<Qux1, Bar1, Foo1>",
		}},
		{ofFoo2, []string{
			"Complex1<Foo2, Bar1>", "Complex1<Foo2, Qux1>", "Complex1<Foo2, Bar1, Qux1>",
			"Complex1<Bar1, Foo2>", "Complex1<Qux1, Foo2>", "Complex1<Foo2, Qux1, Bar1>", "Complex1<Bar1, Qux1, Foo2>",
			"Complex1<Bar1, Foo2, Qux1>", "Complex1<Qux1, Foo2, Bar1>", "Complex1<Qux1, Bar1, Foo2>",
		}},
	}
	for _, tt := range tests {
		for _, in := range tt.in {
			if got := resolve(t, l, in); !got.Equal(tt.want) {
				t.Errorf("%s: expected %s, got %s", in, tt.want.ExpressionFull(), got.ExpressionFull())
			}
		}
	}
}

func TestTwoSameSlots(t *testing.T) {
	l := complexTable(t)
	tests := []struct{ in, full, minimal string }{
		{"TwoSame", "TwoSame<Foo2, Foo2>", "TwoSame"},
		{"TwoSame<Foo1>", "TwoSame<Foo2, Foo2>", "TwoSame"},
		{"TwoSame<Foo2>", "TwoSame<Foo2, Foo2>", "TwoSame"},
		{"TwoSame<Foo3>", "TwoSame<Foo3, Foo2>", "TwoSame<Foo3>"},
		{"TwoSame<Foo1, Foo1>", "TwoSame<Foo2, Foo2>", "TwoSame"},
		{"TwoSame<Foo1, Foo2>", "TwoSame<Foo2, Foo2>", "TwoSame"},
		{"TwoSame<Foo2, Foo1>", "TwoSame<Foo2, Foo2>", "TwoSame"},
		{"TwoSame<Foo3, Foo1>", "TwoSame<Foo3, Foo2>", "TwoSame<Foo3>"},
		{"TwoSame<Foo3, Foo2>", "TwoSame<Foo3, Foo2>", "TwoSame<Foo3>"},
		{"TwoSame<Foo3, Foo3>", "TwoSame<Foo3, Foo3>", "TwoSame<Foo3, Foo3>"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ := resolve(t, l, tt.in)
			if got := typ.ExpressionFull().String(); got != tt.full {
				t.Errorf("expected full %s, got %s", tt.full, got)
			}
			if got := typ.Expression().String(); got != tt.minimal {
				t.Errorf("expected minimal %s, got %s", tt.minimal, got)
			}
		})
	}
}

func TestExpressionFullRoundTrips(t *testing.T) {
	l := complexTable(t)
	for _, text := range []string{
		"Complex1", "Complex2<Foo3>", "Complex3", "TwoSame<Foo3>", "Class<Complex2>",
		"Complex1<Bar2>(HAS Foo1)", "Complex1(HAS? MAX 2 Qux1)", "Complex1<Foo2(HAS Bar1)>",
	} {
		typ := resolve(t, l, text)
		again, err := l.Resolve(typ.ExpressionFull())
		if err != nil {
			t.Errorf("%s: re-resolving %s: %v", text, typ.ExpressionFull(), err)
			continue
		}
		if !again.Equal(typ) {
			t.Errorf("%s: expected %s, got %s", text, typ.ExpressionFull(), again.ExpressionFull())
		}
		same, err := l.ResolveType(typ)
		if err != nil || same != typ {
			t.Errorf("%s: expected ResolveType to return the same type", text)
		}
	}
}

func TestGlbAndLub(t *testing.T) {
	l := complexTable(t)
	tests := []struct {
		a, b string
		glb  string // empty when there is none
		lub  string
	}{
		{"Complex1<Foo2>", "Complex1<Bar2>", "Complex1<Foo2, Bar2, Qux1>", "Complex1<Foo1, Bar1, Qux1>"},
		{"Complex2", "Complex1<Foo3>", "Complex2<Foo3, Bar2, Qux2>", "Complex1<Foo2, Bar1, Qux1>"},
		{"Complex3", "Complex2", "Complex3<Foo3, Bar3, Qux3>", "Complex2<Foo2, Bar2, Qux2>"},
		{"Foo2", "Bar2", "", "Component"},
		{"Complex1<Foo2>(HAS Bar1)", "Complex1<Bar2>(HAS Qux1)", "Complex1<Foo2, Bar2, Qux1>(HAS Bar1, Qux1)", "Complex1<Foo1, Bar1, Qux1>"},
		{"Complex1<Foo2>(HAS Bar1)", "Complex1<Foo3>(HAS Bar1)", "Complex1<Foo3, Bar1, Qux1>(HAS Bar1)", "Complex1<Foo2, Bar1, Qux1>(HAS Bar1)"},
		{"Class<Foo2>", "Class<Foo3>", "Class<Foo3>", "Class<Foo2>"},
		{"Class<Foo2>", "Class<Bar2>", "", "Class<Component>"},
	}
	for _, tt := range tests {
		t.Run(tt.a+" "+tt.b, func(t *testing.T) {
			a, b := resolve(t, l, tt.a), resolve(t, l, tt.b)
			glb, ok := a.Glb(b)
			switch {
			case tt.glb == "" && ok:
				t.Errorf("expected no glb, got %s", glb.ExpressionFull())
			case tt.glb != "" && !ok:
				t.Errorf("expected glb %s, got none", tt.glb)
			case ok:
				if got := glb.ExpressionFull().String(); got != tt.glb {
					t.Errorf("expected glb %s, got %s", tt.glb, got)
				}
				if !glb.IsSubtypeOf(a) || !glb.IsSubtypeOf(b) {
					t.Errorf("expected glb %s to narrow both", fullText(glb))
				}
			}

			lub := a.Lub(b)
			if got := lub.ExpressionFull().String(); got != tt.lub {
				t.Errorf("expected lub %s, got %s", tt.lub, got)
			}
			if !a.IsSubtypeOf(lub) || !b.IsSubtypeOf(lub) {
				t.Errorf("expected both to narrow lub %s", fullText(lub))
			}
		})
	}
}

func fullText(t *Type) string { return t.ExpressionFull().String() }

func TestGlbThroughIntersectionType(t *testing.T) {
	l := loadTypes(t,
		"ABSTRACT CLASS Owner", "CLASS Player1 : Owner",
		"ABSTRACT CLASS Area", "CLASS MarsArea : Area",
		"ABSTRACT CLASS Owned<Owner>",
		"ABSTRACT CLASS Tile<Area>",
		"ABSTRACT CLASS OwnedTile : Owned, Tile",
		"CLASS CityTile : OwnedTile",
	)
	glb, ok := resolve(t, l, "Owned<Player1>").Glb(resolve(t, l, "Tile<MarsArea>"))
	if !ok {
		t.Fatal("expected a glb")
	}
	if s := fullText(glb); s != "OwnedTile<Player1, MarsArea>" {
		t.Errorf("expected OwnedTile<Player1, MarsArea>, got %s", s)
	}
}

type recordingOracle struct {
	answer bool
	asked  []string
}

func (o *recordingOracle) Has(req ast.Requirement) bool {
	o.asked = append(o.asked, req.String())
	return o.answer
}

func TestRefinements(t *testing.T) {
	l := complexTable(t)
	refined := resolve(t, l, "Complex1(HAS Foo1)")
	if !refined.Abstract() {
		t.Error("expected a refined type to be abstract")
	}
	if got := refined.String(); got != "Complex1(HAS Foo1)" {
		t.Errorf("unexpected expression %s", got)
	}

	plain := resolve(t, l, "Complex1<Foo2, Bar1, Qux1>")
	yes := &recordingOracle{answer: true}
	if !plain.Narrows(refined, yes) {
		t.Error("expected the oracle to decide the refinement")
	}
	if len(yes.asked) != 1 || yes.asked[0] != "Foo1" {
		t.Errorf("unexpected oracle questions %v", yes.asked)
	}
	if plain.Narrows(refined, &recordingOracle{}) {
		t.Error("expected a refusing oracle to fail the refinement")
	}

	both := resolve(t, l, "Complex1(HAS Foo1, Bar1)")
	none := &recordingOracle{}
	if !both.Narrows(refined, none) {
		t.Error("expected a stronger refinement to narrow without the oracle")
	}
	if len(none.asked) != 0 {
		t.Errorf("expected no oracle questions, got %v", none.asked)
	}

	forgiving := resolve(t, l, "Complex1(HAS? Foo1)")
	ask := &recordingOracle{}
	plain.Narrows(forgiving, ask)
	if len(ask.asked) != 1 || !strings.HasPrefix(ask.asked[0], "Foo1 OR MAX 0 Complex1<Foo1, Bar1, Qux1>(HAS Foo1)") {
		t.Errorf("unexpected forgiving question %v", ask.asked)
	}

	twice, err := refined.Refine(&ast.Min{Scaled: &ast.ScaledExpression{Scalar: 2, Expression: ast.ClassName("Bar1").Expression()}}, false)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if got := twice.String(); got != "Complex1(HAS Foo1, 2 Bar1)" {
		t.Errorf("expected conjoined refinement, got %s", got)
	}
}

func TestRefinementMustRoundTrip(t *testing.T) {
	l := complexTable(t)
	zero := &ast.Min{Scaled: &ast.ScaledExpression{Scalar: 0, Expression: ast.ClassName("Foo1").Expression()}}
	_, err := resolve(t, l, "Complex1").Refine(zero, false)
	var bad *BadExpressionError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadExpressionError, got %v", err)
	}

	expr := ast.ClassName("Complex1").Expression().Has(zero, false)
	_, err = l.Resolve(expr)
	var exprErr *ExpressionError
	if !errors.As(err, &exprErr) || !errors.As(err, &bad) {
		t.Errorf("expected ExpressionError wrapping BadExpressionError, got %v", err)
	}

	if err := resolveErr(t, l, "Complex1(HAS Nope)"); err == nil {
		t.Error("expected an unresolvable refinement to fail")
	}
}

func TestToComponentPanicsOnAbstractType(t *testing.T) {
	l := complexTable(t)
	defer func() {
		if recover() == nil {
			t.Error("expected ToComponent to panic")
		}
	}()
	resolve(t, l, "Complex1(HAS Foo1)").ToComponent()
}

func TestTypesAreSharedAfterFreeze(t *testing.T) {
	l := complexTable(t)
	done := make(chan *Type)
	for range 8 {
		go func() {
			expr := ast.ClassName("Complex2").Of(ast.ClassName("Foo3").Expression())
			typ, err := l.Resolve(expr)
			if err != nil {
				done <- nil
				return
			}
			_ = typ.ExpressionFull()
			done <- typ
		}()
	}
	var first *Type
	for range 8 {
		typ := <-done
		if typ == nil {
			t.Fatal("resolve failed")
		}
		if first == nil {
			first = typ
		} else if !typ.Equal(first) {
			t.Errorf("expected equal types, got %s and %s", fullText(first), fullText(typ))
		}
	}
}
