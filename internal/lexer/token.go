package lexer

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF
	NEWLINE

	// Literals
	IDENT   // Plant, OceanTile, This
	INT_LIT // 3

	// Keywords
	CLASS
	ABSTRACT
	HAS
	MAX
	OR
	DEFAULT

	// Operators
	PLUS     // +
	MINUS    // -
	ASSIGN   // =
	BANG     // !
	QUESTION // ?
	DOT      // .
	LT       // <
	GT       // >

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	COLON     // :
	SEMICOLON // ;
)

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

var tokenNames = map[TokenType]string{
	ILLEGAL:   "ILLEGAL",
	EOF:       "EOF",
	NEWLINE:   "NEWLINE",
	IDENT:     "IDENT",
	INT_LIT:   "INT_LIT",
	CLASS:     "CLASS",
	ABSTRACT:  "ABSTRACT",
	HAS:       "HAS",
	MAX:       "MAX",
	OR:        "OR",
	DEFAULT:   "DEFAULT",
	PLUS:      "PLUS",
	MINUS:     "MINUS",
	ASSIGN:    "ASSIGN",
	BANG:      "BANG",
	QUESTION:  "QUESTION",
	DOT:       "DOT",
	LT:        "LT",
	GT:        "GT",
	LPAREN:    "LPAREN",
	RPAREN:    "RPAREN",
	LBRACE:    "LBRACE",
	RBRACE:    "RBRACE",
	LBRACKET:  "LBRACKET",
	RBRACKET:  "RBRACKET",
	COMMA:     "COMMA",
	COLON:     "COLON",
	SEMICOLON: "SEMICOLON",
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// keywords are upper case and reserved; class names are UpperCamelCase so they never collide.
var keywords = map[string]TokenType{
	"CLASS":    CLASS,
	"ABSTRACT": ABSTRACT,
	"HAS":      HAS,
	"MAX":      MAX,
	"OR":       OR,
	"DEFAULT":  DEFAULT,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
