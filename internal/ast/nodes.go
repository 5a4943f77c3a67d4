// Package ast holds the parsed form of Pets type expressions, requirements
// and effects. Nodes are plain immutable data; transformations return copies.
package ast

// ClassName is the UpperCamelCase name (or short name) of a class
type ClassName string

// Well-known class names
const (
	Component ClassName = "Component" // root of every class hierarchy
	Class     ClassName = "Class"     // class of classes: Class<Plant>
	This      ClassName = "This"      // stands for the declaring class inside a declaration
)

// Expression returns the simple expression consisting of only this name
func (n ClassName) Expression() *Expression {
	return &Expression{ClassName: n}
}

// Of returns the expression naming this class with the given arguments
func (n ClassName) Of(args ...*Expression) *Expression {
	return &Expression{ClassName: n, Arguments: args}
}

// Node is implemented by every AST node
type Node interface {
	String() string
	// Children returns the direct child nodes, in source order
	Children() []Node
}

// Expression is a noun expression such as `Microbe<Player1, Ants>` or
// `Card(HAS VenusTag)`. It is a representation of a type, not the type itself:
// `Tile` and `Tile<Area>` are distinct expressions for one type.
type Expression struct {
	ClassName  ClassName
	Arguments  []*Expression
	Refinement Requirement // nil when absent
	Forgiving  bool        // `HAS?` rather than `HAS`
}

func (e *Expression) Children() []Node {
	nodes := make([]Node, 0, len(e.Arguments)+1)
	for _, arg := range e.Arguments {
		nodes = append(nodes, arg)
	}
	if e.Refinement != nil {
		nodes = append(nodes, e.Refinement)
	}
	return nodes
}

// Simple reports whether the expression is a bare class name
func (e *Expression) Simple() bool {
	return len(e.Arguments) == 0 && e.Refinement == nil
}

// WithArguments returns a copy of e with its argument list replaced
func (e *Expression) WithArguments(args []*Expression) *Expression {
	c := *e
	c.Arguments = args
	return &c
}

// Has returns a copy of e carrying the refinement. A nil requirement returns e unchanged.
func (e *Expression) Has(req Requirement, forgiving bool) *Expression {
	if req == nil {
		return e
	}
	c := *e
	c.Refinement = req
	c.Forgiving = forgiving
	return &c
}

// Unrefined returns e without its refinement
func (e *Expression) Unrefined() *Expression {
	if e.Refinement == nil {
		return e
	}
	c := *e
	c.Refinement = nil
	c.Forgiving = false
	return &c
}

// Requirement is a condition that is either true or false in a given game state,
// such as `MAX 4 OxygenStep`. Implemented by *Min, *Max, *Exact, *Or and *And.
type Requirement interface {
	Node
	requirement()
}

// ScaledExpression is an expression with a count, like `3 Plant`
type ScaledExpression struct {
	Scalar     int
	Expression *Expression
}

func (s *ScaledExpression) Children() []Node { return []Node{s.Expression} }

// Min requires at least Scalar instances of the expression
type Min struct{ Scaled *ScaledExpression }

// Max requires at most Scalar instances of the expression
type Max struct{ Scaled *ScaledExpression }

// Exact requires exactly Scalar instances of the expression
type Exact struct{ Scaled *ScaledExpression }

// Or requires at least one of its requirements
type Or struct{ Requirements []Requirement }

// And requires all of its requirements
type And struct{ Requirements []Requirement }

func (*Min) requirement()   {}
func (*Max) requirement()   {}
func (*Exact) requirement() {}
func (*Or) requirement()    {}
func (*And) requirement()   {}

func (r *Min) Children() []Node   { return []Node{r.Scaled} }
func (r *Max) Children() []Node   { return []Node{r.Scaled} }
func (r *Exact) Children() []Node { return []Node{r.Scaled} }
func (r *Or) Children() []Node    { return requirementNodes(r.Requirements) }
func (r *And) Children() []Node   { return requirementNodes(r.Requirements) }

func requirementNodes(reqs []Requirement) []Node {
	nodes := make([]Node, len(reqs))
	for i, r := range reqs {
		nodes[i] = r
	}
	return nodes
}

// Join conjoins two optional requirements. Nested conjunctions are flattened
// and a requirement already present is not repeated.
func Join(one, two Requirement) Requirement {
	var parts []Requirement
	seen := make(map[string]bool)
	for _, r := range append(Split(one), Split(two)...) {
		if key := r.String(); !seen[key] {
			seen[key] = true
			parts = append(parts, r)
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return &And{Requirements: parts}
	}
}

// Split breaks apart any conjunctions, recursively
func Split(req Requirement) []Requirement {
	switch r := req.(type) {
	case nil:
		return nil
	case *And:
		var out []Requirement
		for _, sub := range r.Requirements {
			out = append(out, Split(sub)...)
		}
		return out
	default:
		return []Requirement{req}
	}
}

// Intensity says how strictly an instruction must be carried out
type Intensity int

const (
	IntensityUnset     Intensity = iota
	IntensityMandatory           // !
	IntensityAmap                // . (as many as possible)
	IntensityOptional            // ?
)

// Symbol returns the suffix used in source text
func (i Intensity) Symbol() string {
	switch i {
	case IntensityMandatory:
		return "!"
	case IntensityAmap:
		return "."
	case IntensityOptional:
		return "?"
	default:
		return ""
	}
}

// Instruction gains or removes a scaled expression
type Instruction struct {
	Remove    bool
	Scaled    *ScaledExpression
	Intensity Intensity
}

func (i *Instruction) Children() []Node { return []Node{i.Scaled} }

// Trigger fires when an expression is gained (or removed)
type Trigger struct {
	OnRemove   bool
	Expression *Expression
}

func (t *Trigger) Children() []Node { return []Node{t.Expression} }

// Effect pairs a trigger with the instructions it causes, e.g. `Plant: Heat, -Steel`.
// The type engine only inspects effects for the class names they mention.
type Effect struct {
	Trigger      *Trigger
	Instructions []*Instruction
}

func (e *Effect) Children() []Node {
	nodes := []Node{e.Trigger}
	for _, i := range e.Instructions {
		nodes = append(nodes, i)
	}
	return nodes
}
