// Package parser turns Pets source text into ast nodes and class declarations.
package parser

import (
	"strconv"
	"unicode"

	"github.com/MartianZoo/solarnet-sub002/internal/ast"
	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
	"github.com/MartianZoo/solarnet-sub002/internal/lexer"
)

// New creates a new parser
func New(source string) *Parser {
	l := lexer.New(source)
	return &Parser{
		tokens: l.Tokenize(),
		pos:    0,
		diags:  diagnostic.New(),
	}
}

// Diagnostics returns the parser's diagnostics
func (p *Parser) Diagnostics() *diagnostic.Diagnostics {
	return p.diags
}

// ParseExpression parses a single type expression such as `Tile<MarsArea>(HAS City)`
func ParseExpression(text string) (*ast.Expression, error) {
	p := New(text)
	return whole(p, "expression", p.parseExpression)
}

// ParseRequirement parses a requirement such as `MAX 4 OxygenStep, 2 Plant OR Heat`
func ParseRequirement(text string) (ast.Requirement, error) {
	p := New(text)
	return whole(p, "requirement", p.parseRequirement)
}

// ParseEffect parses an effect such as `-Plant: Heat!, 2 Steel.`
func ParseEffect(text string) (*ast.Effect, error) {
	p := New(text)
	return whole(p, "effect", p.parseEffect)
}

// ParseClasses parses any number of class declarations, one-line or with braced bodies
func ParseClasses(text string) ([]*declaration.ClassDeclaration, error) {
	p := New(text)
	decls := p.ParseClasses()
	if err := p.diags.Err(); err != nil {
		return nil, err
	}
	return decls, nil
}

// whole runs one entry point and requires that it consumes all of the input
func whole[T any](p *Parser, what string, parse func() T) (T, error) {
	p.skipNewlines()
	result := parse()
	p.skipNewlines()
	if !p.check(lexer.EOF) {
		p.errorAt(p.current(), "unexpected %s after %s", describe(p.current()), what)
	}
	if err := p.diags.Err(); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// ParseClasses parses a sequence of declaration groups separated by newlines or semicolons
func (p *Parser) ParseClasses() []*declaration.ClassDeclaration {
	var decls []*declaration.ClassDeclaration
	p.skipSeparators()
	for !p.check(lexer.EOF) {
		if p.check(lexer.ABSTRACT) || p.check(lexer.CLASS) {
			decls = append(decls, p.parseGroup(nil)...)
		} else {
			p.errorAt(p.current(), "expected class declaration, got %s", describe(p.current()))
			start := p.pos
			p.synchronize()
			if p.pos == start {
				p.advance() // ensure forward progress to avoid infinite loop
			}
		}
		p.skipSeparators()
	}
	return decls
}

// parseGroup parses: [ABSTRACT] CLASS sig (body | {, sig})
// A signature with explicit supertypes ends the group, since its commas belong
// to the supertype list. Declarations nested in a body without supertypes take
// the enclosing class as their supertype.
func (p *Parser) parseGroup(outer *declaration.ClassDeclaration) []*declaration.ClassDeclaration {
	abstract := p.match(lexer.ABSTRACT)
	p.expect(lexer.CLASS)

	first, explicit := p.parseSignature(abstract, outer)
	if p.check(lexer.LBRACE) {
		return append([]*declaration.ClassDeclaration{first}, p.parseBody(first)...)
	}

	group := []*declaration.ClassDeclaration{first}
	for !explicit && p.match(lexer.COMMA) {
		var next *declaration.ClassDeclaration
		next, explicit = p.parseSignature(abstract, outer)
		group = append(group, next)
	}
	return group
}

// parseSignature parses: Name [ '[' Short ']' ] [<deps>] [: supertypes]
func (p *Parser) parseSignature(abstract bool, outer *declaration.ClassDeclaration) (*declaration.ClassDeclaration, bool) {
	decl := &declaration.ClassDeclaration{
		ClassName: p.parseClassName(),
		Abstract:  abstract,
	}
	if p.match(lexer.LBRACKET) {
		decl.ShortName = p.parseClassName()
		p.expect(lexer.RBRACKET)
	}
	if p.match(lexer.LT) {
		decl.Dependencies = p.parseExpressionList()
		p.expect(lexer.GT)
	}
	if p.match(lexer.COLON) {
		decl.Supertypes = p.parseExpressionList()
		return decl, true
	}
	if outer != nil {
		decl.Supertypes = []*ast.Expression{outer.ClassName.Expression()}
	}
	return decl, false
}

// parseBody parses a braced class body into decl, returning any nested declarations
func (p *Parser) parseBody(decl *declaration.ClassDeclaration) []*declaration.ClassDeclaration {
	var nested []*declaration.ClassDeclaration
	p.expect(lexer.LBRACE)
	for {
		p.skipSeparators()
		if p.match(lexer.RBRACE) {
			return nested
		}
		if p.check(lexer.EOF) {
			p.errorAt(p.current(), "unterminated body of class %s", string(decl.ClassName))
			return nested
		}

		start := p.pos
		switch p.current().Type {
		case lexer.HAS:
			p.advance()
			decl.Invariants = append(decl.Invariants, p.parseRequirement())
		case lexer.DEFAULT:
			p.parseDefault(decl)
		case lexer.ABSTRACT, lexer.CLASS:
			nested = append(nested, p.parseGroup(decl)...)
			continue
		default:
			decl.Effects = append(decl.Effects, p.parseEffect())
		}

		if !p.check(lexer.NEWLINE) && !p.check(lexer.SEMICOLON) && !p.check(lexer.RBRACE) {
			p.errorAt(p.current(), "unexpected %s in body of class %s", describe(p.current()), string(decl.ClassName))
			p.synchronize()
			if p.pos == start {
				p.advance()
			}
		}
	}
}

// parseDefault parses: DEFAULT [+|-] This<specs> [intensity]
func (p *Parser) parseDefault(decl *declaration.ClassDeclaration) {
	tok := p.expect(lexer.DEFAULT)
	kind := declaration.AllUsages
	if p.match(lexer.PLUS) {
		kind = declaration.GainOnly
	} else if p.match(lexer.MINUS) {
		kind = declaration.RemoveOnly
	}
	expr := p.parseExpression()
	intensity := p.parseIntensity()

	if expr.ClassName != ast.This && expr.ClassName != decl.ClassName {
		p.errorAt(tok, "default must describe This, got %s", expr)
		return
	}
	if expr.Refinement != nil {
		p.errorAt(tok, "default may not be refined: %s", expr)
		return
	}

	one := decl.Defaults.Default(kind)
	if len(expr.Arguments) > 0 {
		if len(one.Specs) > 0 {
			p.errorAt(tok, "duplicate %s default specs for %s", kind, string(decl.ClassName))
			return
		}
		one.Specs = expr.Arguments
	}
	if intensity != ast.IntensityUnset {
		if one.Intensity != ast.IntensityUnset {
			p.errorAt(tok, "duplicate %s default intensity for %s", kind, string(decl.ClassName))
			return
		}
		one.Intensity = intensity
	}

	switch kind {
	case declaration.GainOnly:
		decl.Defaults.GainOnly = one
	case declaration.RemoveOnly:
		decl.Defaults.RemoveOnly = one
	default:
		decl.Defaults.Universal = one
	}
}

// parseClassName parses an UpperCamelCase identifier
func (p *Parser) parseClassName() ast.ClassName {
	tok := p.expect(lexer.IDENT)
	if tok.Type != lexer.IDENT {
		return ""
	}
	if r := rune(tok.Literal[0]); !unicode.IsUpper(r) {
		p.errorAt(tok, "class name %q must start with an upper-case letter", tok.Literal)
	}
	return ast.ClassName(tok.Literal)
}

// parseExpression parses: Name [<expr, ...>] [(HAS[?] requirement)]
func (p *Parser) parseExpression() *ast.Expression {
	expr := &ast.Expression{ClassName: p.parseClassName()}
	if p.match(lexer.LT) {
		expr.Arguments = p.parseExpressionList()
		p.expect(lexer.GT)
	}
	if p.check(lexer.LPAREN) && p.peek().Type == lexer.HAS {
		p.advance()
		p.advance()
		expr.Forgiving = p.match(lexer.QUESTION)
		expr.Refinement = p.parseRequirement()
		p.expect(lexer.RPAREN)
	}
	return expr
}

func (p *Parser) parseExpressionList() []*ast.Expression {
	list := []*ast.Expression{p.parseExpression()}
	for p.match(lexer.COMMA) {
		list = append(list, p.parseExpression())
	}
	return list
}

// parseRequirement parses a comma-separated conjunction of OR chains
func (p *Parser) parseRequirement() ast.Requirement {
	reqs := []ast.Requirement{p.parseOrChain()}
	for p.match(lexer.COMMA) {
		reqs = append(reqs, p.parseOrChain())
	}
	if len(reqs) == 1 {
		return reqs[0]
	}
	return &ast.And{Requirements: reqs}
}

func (p *Parser) parseOrChain() ast.Requirement {
	reqs := []ast.Requirement{p.parseAtom()}
	for p.match(lexer.OR) {
		reqs = append(reqs, p.parseAtom())
	}
	if len(reqs) == 1 {
		return reqs[0]
	}
	return &ast.Or{Requirements: reqs}
}

// parseAtom parses: MAX scaled | =scaled | (requirement) | scaled
func (p *Parser) parseAtom() ast.Requirement {
	tok := p.current()
	switch tok.Type {
	case lexer.MAX:
		p.advance()
		return &ast.Max{Scaled: p.parseScaled()}
	case lexer.ASSIGN:
		p.advance()
		return &ast.Exact{Scaled: p.parseScaled()}
	case lexer.LPAREN:
		p.advance()
		req := p.parseRequirement()
		p.expect(lexer.RPAREN)
		return req
	default:
		scaled := p.parseScaled()
		if scaled.Scalar == 0 {
			p.errorAt(tok, "a minimum of zero is always met; use MAX or = instead")
		}
		return &ast.Min{Scaled: scaled}
	}
}

// parseScaled parses: [INT] expression
func (p *Parser) parseScaled() *ast.ScaledExpression {
	scalar := 1
	if tok := p.current(); tok.Type == lexer.INT_LIT {
		p.advance()
		n, err := strconv.Atoi(tok.Literal)
		if err != nil {
			p.errorAt(tok, "invalid count %q", tok.Literal)
		}
		scalar = n
	}
	return &ast.ScaledExpression{Scalar: scalar, Expression: p.parseExpression()}
}

// parseEffect parses: [-]expression : instruction, ...
func (p *Parser) parseEffect() *ast.Effect {
	trigger := &ast.Trigger{OnRemove: p.match(lexer.MINUS)}
	trigger.Expression = p.parseExpression()
	p.expect(lexer.COLON)

	eff := &ast.Effect{Trigger: trigger}
	eff.Instructions = append(eff.Instructions, p.parseInstruction())
	for p.match(lexer.COMMA) {
		eff.Instructions = append(eff.Instructions, p.parseInstruction())
	}
	return eff
}

// parseInstruction parses: [-][INT]expression[!|.|?]
func (p *Parser) parseInstruction() *ast.Instruction {
	remove := p.match(lexer.MINUS)
	return &ast.Instruction{
		Remove:    remove,
		Scaled:    p.parseScaled(),
		Intensity: p.parseIntensity(),
	}
}

func (p *Parser) parseIntensity() ast.Intensity {
	switch {
	case p.match(lexer.BANG):
		return ast.IntensityMandatory
	case p.match(lexer.DOT):
		return ast.IntensityAmap
	case p.match(lexer.QUESTION):
		return ast.IntensityOptional
	default:
		return ast.IntensityUnset
	}
}
