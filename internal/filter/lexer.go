package filter

import "strings"

// Lexer tokenizes an RSQL filter expression.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	start := l.pos
	switch l.ch {
	case 0:
		return Token{Type: TOKEN_EOF, Pos: start}
	case ';':
		l.readChar()
		return Token{Type: TOKEN_SEMICOLON, Literal: ";", Pos: start}
	case ',':
		l.readChar()
		return Token{Type: TOKEN_COMMA, Literal: ",", Pos: start}
	case '(':
		l.readChar()
		return Token{Type: TOKEN_LPAREN, Literal: "(", Pos: start}
	case ')':
		l.readChar()
		return Token{Type: TOKEN_RPAREN, Literal: ")", Pos: start}
	case '\'', '"':
		return l.readString()
	case '=', '!', '<', '>':
		return l.readOperator()
	}

	if isReserved(l.ch) {
		tok := Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch), Pos: start}
		l.readChar()
		return tok
	}
	for l.ch != 0 && !isReserved(l.ch) && !isSpace(l.ch) {
		l.readChar()
	}
	return Token{Type: TOKEN_IDENT, Literal: l.input[start:l.pos], Pos: start}
}

// readOperator reads ==, !=, <, <=, >, >= or a FIQL operator such as =in=.
// An unterminated FIQL operator is returned as TOKEN_ILLEGAL.
func (l *Lexer) readOperator() Token {
	start := l.pos
	switch l.ch {
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_OP, Literal: "!=", Pos: start}
		}
		l.readChar()
		return Token{Type: TOKEN_ILLEGAL, Literal: "!", Pos: start}
	case '<', '>':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
		}
		return Token{Type: TOKEN_OP, Literal: l.input[start:l.pos], Pos: start}
	}

	// l.ch == '='
	l.readChar()
	if l.ch == '=' {
		l.readChar()
		return Token{Type: TOKEN_OP, Literal: "==", Pos: start}
	}
	for isLetter(l.ch) {
		l.readChar()
	}
	if l.ch != '=' || l.pos == start+1 {
		return Token{Type: TOKEN_ILLEGAL, Literal: l.input[start:l.pos], Pos: start}
	}
	l.readChar()
	return Token{Type: TOKEN_OP, Literal: l.input[start:l.pos], Pos: start}
}

// readString reads a quoted argument. A backslash escapes the next character.
func (l *Lexer) readString() Token {
	start := l.pos
	quote := l.ch
	var sb strings.Builder
	l.readChar()
	for {
		switch l.ch {
		case 0:
			return Token{Type: TOKEN_ILLEGAL, Literal: l.input[start:l.pos], Pos: start}
		case '\\':
			l.readChar()
			if l.ch == 0 {
				return Token{Type: TOKEN_ILLEGAL, Literal: l.input[start:l.pos], Pos: start}
			}
			sb.WriteByte(l.ch)
		case quote:
			l.readChar()
			return Token{Type: TOKEN_STRING, Literal: sb.String(), Pos: start}
		default:
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
}

func (l *Lexer) skipWhitespace() {
	for isSpace(l.ch) {
		l.readChar()
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isReserved reports characters that cannot appear in an unquoted argument.
func isReserved(ch byte) bool {
	switch ch {
	case '"', '\'', '(', ')', ';', ',', '=', '!', '~', '<', '>':
		return true
	}
	return false
}
