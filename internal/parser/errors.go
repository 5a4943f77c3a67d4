package parser

import (
	"github.com/MartianZoo/solarnet-sub002/internal/diagnostic"
	"github.com/MartianZoo/solarnet-sub002/internal/lexer"
)

// syncTokens are tokens the parser can synchronize to after an error
var syncTokens = map[lexer.TokenType]bool{
	lexer.NEWLINE:   true,
	lexer.SEMICOLON: true,
	lexer.RBRACE:    true,
	lexer.CLASS:     true,
	lexer.ABSTRACT:  true,
	lexer.EOF:       true,
}

// Parser holds the parser state
type Parser struct {
	tokens []lexer.Token
	pos    int
	diags  *diagnostic.Diagnostics
}

// current returns the current token
func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without consuming
func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token and returns the consumed token
func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches the expected type,
// otherwise reports an error
func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	tok := p.current()
	if tok.Type != tt {
		p.errorAt(tok, "expected %s, got %s", tt, describe(tok))
		return tok
	}
	return p.advance()
}

// check returns true if the current token is of the given type
func (p *Parser) check(tt lexer.TokenType) bool {
	return p.current().Type == tt
}

// match consumes the current token if it matches, returns true if consumed
func (p *Parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

// skipSeparators consumes any run of newlines and semicolons
func (p *Parser) skipSeparators() {
	for p.check(lexer.NEWLINE) || p.check(lexer.SEMICOLON) {
		p.advance()
	}
}

// skipNewlines consumes any run of newlines
func (p *Parser) skipNewlines() {
	for p.check(lexer.NEWLINE) {
		p.advance()
	}
}

// synchronize skips tokens until a sync point is found
func (p *Parser) synchronize() {
	for !syncTokens[p.current().Type] {
		p.advance()
	}
}

func (p *Parser) errorAt(tok lexer.Token, format string, args ...any) {
	p.diags.Errorf(tok.Line, tok.Column, format, args...)
}

// describe names a token for error messages, quoting its text when it has any
func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF, lexer.NEWLINE:
		return tok.Type.String()
	default:
		return tok.Type.String() + " " + `"` + tok.Literal + `"`
	}
}
