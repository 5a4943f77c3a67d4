package ast

// Walk visits node and its descendants depth-first. If visit returns false the
// node's children are skipped.
func Walk(node Node, visit func(Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, visit)
	}
}

// ClassNames returns every class name mentioned anywhere under the nodes, in
// first-seen order without duplicates.
func ClassNames(nodes ...Node) []ClassName {
	var names []ClassName
	seen := make(map[ClassName]bool)
	for _, n := range nodes {
		Walk(n, func(node Node) bool {
			if e, ok := node.(*Expression); ok && !seen[e.ClassName] {
				seen[e.ClassName] = true
				names = append(names, e.ClassName)
			}
			return true
		})
	}
	return names
}

// Expressions returns the outermost expressions under a requirement; nested
// arguments and refinements belong to their enclosing expression.
func Expressions(req Requirement) []*Expression {
	var out []*Expression
	Walk(req, func(node Node) bool {
		if e, ok := node.(*Expression); ok {
			out = append(out, e)
			return false
		}
		return true
	})
	return out
}

// MapExpressions rebuilds a requirement with every outermost expression passed
// through fn. The input is not modified.
func MapExpressions(req Requirement, fn func(*Expression) *Expression) Requirement {
	scale := func(s *ScaledExpression) *ScaledExpression {
		return &ScaledExpression{Scalar: s.Scalar, Expression: fn(s.Expression)}
	}
	switch r := req.(type) {
	case nil:
		return nil
	case *Min:
		return &Min{Scaled: scale(r.Scaled)}
	case *Max:
		return &Max{Scaled: scale(r.Scaled)}
	case *Exact:
		return &Exact{Scaled: scale(r.Scaled)}
	case *Or:
		return &Or{Requirements: mapAll(r.Requirements, fn)}
	case *And:
		return &And{Requirements: mapAll(r.Requirements, fn)}
	default:
		panic("ast: unknown requirement type")
	}
}

func mapAll(reqs []Requirement, fn func(*Expression) *Expression) []Requirement {
	out := make([]Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = MapExpressions(r, fn)
	}
	return out
}

// ReplaceClassName returns a copy of e in which every occurrence of from, at any
// depth (arguments and refinements included), is renamed to to.
func ReplaceClassName(e *Expression, from, to ClassName) *Expression {
	return ReplaceExpressions(e, func(x *Expression) *Expression {
		if x.ClassName == from {
			c := *x
			c.ClassName = to
			return &c
		}
		return x
	})
}

// ReplaceExpressions rebuilds e bottom-up, passing each rebuilt expression
// (including e itself) through fn.
func ReplaceExpressions(e *Expression, fn func(*Expression) *Expression) *Expression {
	if e == nil {
		return nil
	}
	c := *e
	if len(e.Arguments) > 0 {
		c.Arguments = make([]*Expression, len(e.Arguments))
		for i, arg := range e.Arguments {
			c.Arguments[i] = ReplaceExpressions(arg, fn)
		}
	}
	if e.Refinement != nil {
		c.Refinement = MapExpressions(e.Refinement, func(x *Expression) *Expression {
			return ReplaceExpressions(x, fn)
		})
	}
	return fn(&c)
}

// ReplaceInEffect applies ReplaceExpressions to every expression in an effect
func ReplaceInEffect(eff *Effect, fn func(*Expression) *Expression) *Effect {
	out := &Effect{
		Trigger: &Trigger{
			OnRemove:   eff.Trigger.OnRemove,
			Expression: ReplaceExpressions(eff.Trigger.Expression, fn),
		},
	}
	for _, instr := range eff.Instructions {
		out.Instructions = append(out.Instructions, &Instruction{
			Remove:    instr.Remove,
			Intensity: instr.Intensity,
			Scaled: &ScaledExpression{
				Scalar:     instr.Scaled.Scalar,
				Expression: ReplaceExpressions(instr.Scaled.Expression, fn),
			},
		})
	}
	return out
}

// Equal reports structural equality via canonical text
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
