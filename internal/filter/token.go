// Package filter translates RSQL filter expressions into predicates over the
// entity schemas declared in the domain package.
//
// The dialect is the one async query clients already use for cleanup and
// timeout sweeps:
//
//	status=in=(PROCESSING,QUEUED);createdOn=le='2020-04-22T13:28Z'
//
// ";" (or "and") joins terms with AND, "," (or "or") with OR, and parentheses
// group. Comparison operators are ==, !=, =in=, =out=, =lt=, =le=, =gt=, =ge=
// and the short forms <, <=, >, >=. A "*" inside an ==/!= value on a string
// field is a case-insensitive wildcard.
package filter

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character

	TOKEN_IDENT  // selector or unquoted argument
	TOKEN_STRING // 'quoted' or "quoted" argument
	TOKEN_OP     // comparison operator, e.g. ==, =in=, <=

	TOKEN_SEMICOLON // ;
	TOKEN_COMMA     // ,
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "end of input",
	TOKEN_ILLEGAL:   "illegal",
	TOKEN_IDENT:     "identifier",
	TOKEN_STRING:    "string",
	TOKEN_OP:        "operator",
	TOKEN_SEMICOLON: "';'",
	TOKEN_COMMA:     "','",
	TOKEN_LPAREN:    "'('",
	TOKEN_RPAREN:    "')'",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a lexical token with its byte offset in the input.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}
