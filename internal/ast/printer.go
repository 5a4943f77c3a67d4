package ast

import (
	"strconv"
	"strings"
)

// String renders the expression in canonical Pets syntax, e.g. `Tile<Area>(HAS 2 City)`
func (e *Expression) String() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(string(e.ClassName))
	if len(e.Arguments) > 0 {
		sb.WriteByte('<')
		for i, arg := range e.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.String())
		}
		sb.WriteByte('>')
	}
	if e.Refinement != nil {
		sb.WriteString("(HAS")
		if e.Forgiving {
			sb.WriteByte('?')
		}
		sb.WriteByte(' ')
		sb.WriteString(e.Refinement.String())
		sb.WriteByte(')')
	}
	return sb.String()
}

// String omits a scalar of one: `Plant`, `3 Plant`
func (s *ScaledExpression) String() string {
	if s.Scalar == 1 {
		return s.Expression.String()
	}
	return s.full()
}

func (s *ScaledExpression) full() string {
	return strconv.Itoa(s.Scalar) + " " + s.Expression.String()
}

func (r *Min) String() string   { return r.Scaled.String() }
func (r *Max) String() string   { return "MAX " + r.Scaled.full() }
func (r *Exact) String() string { return "=" + r.Scaled.full() }

func (r *Or) String() string {
	parts := make([]string, len(r.Requirements))
	for i, sub := range r.Requirements {
		switch sub.(type) {
		case *And, *Or:
			parts[i] = "(" + sub.String() + ")"
		default:
			parts[i] = sub.String()
		}
	}
	return strings.Join(parts, " OR ")
}

func (r *And) String() string {
	parts := make([]string, len(r.Requirements))
	for i, sub := range r.Requirements {
		if _, ok := sub.(*And); ok {
			parts[i] = "(" + sub.String() + ")"
		} else {
			parts[i] = sub.String()
		}
	}
	return strings.Join(parts, ", ")
}

func (i *Instruction) String() string {
	s := i.Scaled.String()
	if i.Remove {
		s = "-" + s
	}
	return s + i.Intensity.Symbol()
}

func (t *Trigger) String() string {
	if t.OnRemove {
		return "-" + t.Expression.String()
	}
	return t.Expression.String()
}

func (e *Effect) String() string {
	parts := make([]string, len(e.Instructions))
	for i, instr := range e.Instructions {
		parts[i] = instr.String()
	}
	return e.Trigger.String() + ": " + strings.Join(parts, ", ")
}

// Print returns a tree-like rendering of a node for debugging
func Print(node Node) string {
	var sb strings.Builder
	printNode(&sb, node, 0)
	return sb.String()
}

func printNode(sb *strings.Builder, node Node, indent int) {
	if node == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *Expression:
		sb.WriteString(prefix + "Expression: " + string(n.ClassName) + "\n")
	case *ScaledExpression:
		sb.WriteString(prefix + "Scaled: " + strconv.Itoa(n.Scalar) + "\n")
	case *Min:
		sb.WriteString(prefix + "Min\n")
	case *Max:
		sb.WriteString(prefix + "Max\n")
	case *Exact:
		sb.WriteString(prefix + "Exact\n")
	case *Or:
		sb.WriteString(prefix + "Or\n")
	case *And:
		sb.WriteString(prefix + "And\n")
	case *Effect:
		sb.WriteString(prefix + "Effect\n")
	case *Trigger:
		if n.OnRemove {
			sb.WriteString(prefix + "Trigger (remove)\n")
		} else {
			sb.WriteString(prefix + "Trigger\n")
		}
	case *Instruction:
		if n.Remove {
			sb.WriteString(prefix + "Remove" + n.Intensity.Symbol() + "\n")
		} else {
			sb.WriteString(prefix + "Gain" + n.Intensity.Symbol() + "\n")
		}
	default:
		sb.WriteString(prefix + node.String() + "\n")
	}

	for _, child := range node.Children() {
		printNode(sb, child, indent+1)
	}
}
