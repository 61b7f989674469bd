package filter

import (
	"strings"

	"asyncq/internal/domain"
)

// Parser parses RSQL into an AST.
type Parser struct {
	lexer *Lexer
	input string
	token Token // current token
	peek  Token // lookahead token
	err   *domain.TranslationError
}

// NewParser creates a new parser for the given filter input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input), input: input}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a filter expression into its AST. Errors are
// *domain.TranslationError.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, domain.ErrTranslation(input, -1, "empty expression")
	}

	p := NewParser(input)
	node := p.parseOr()
	if p.err != nil {
		return nil, p.err
	}
	if p.token.Type != TOKEN_EOF {
		return nil, domain.ErrTranslation(input, p.token.Pos, "unexpected %s %q", p.token.Type, p.token.Literal)
	}
	return node, nil
}

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) fail(pos int, format string, args ...interface{}) {
	if p.err == nil {
		p.err = domain.ErrTranslation(p.input, pos, format, args...)
	}
}

// isKeyword reports whether the current token is the bare word kw.
func (p *Parser) isKeyword(kw string) bool {
	return p.token.Type == TOKEN_IDENT && strings.EqualFold(p.token.Literal, kw)
}

// parseOr := parseAnd ( ("," | "or") parseAnd )*
func (p *Parser) parseOr() Node {
	first := p.parseAnd()
	if p.err != nil {
		return nil
	}
	children := []Node{first}
	for p.token.Type == TOKEN_COMMA || p.isKeyword("or") {
		p.nextToken()
		next := p.parseAnd()
		if p.err != nil {
			return nil
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first
	}
	return &OrNode{Children: children}
}

// parseAnd := parseTerm ( (";" | "and") parseTerm )*
func (p *Parser) parseAnd() Node {
	first := p.parseTerm()
	if p.err != nil {
		return nil
	}
	children := []Node{first}
	for p.token.Type == TOKEN_SEMICOLON || p.isKeyword("and") {
		p.nextToken()
		next := p.parseTerm()
		if p.err != nil {
			return nil
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first
	}
	return &AndNode{Children: children}
}

// parseTerm := "(" parseOr ")" | comparison
func (p *Parser) parseTerm() Node {
	if p.token.Type == TOKEN_LPAREN {
		open := p.token.Pos
		p.nextToken()
		inner := p.parseOr()
		if p.err != nil {
			return nil
		}
		if p.token.Type != TOKEN_RPAREN {
			p.fail(open, "unbalanced parenthesis")
			return nil
		}
		p.nextToken()
		return inner
	}
	return p.parseComparison()
}

// comparison := IDENT OP arguments
func (p *Parser) parseComparison() Node {
	if p.token.Type != TOKEN_IDENT {
		p.fail(p.token.Pos, "expected selector, got %s %q", p.token.Type, p.token.Literal)
		return nil
	}
	cmp := &Comparison{Selector: p.token.Literal, Pos: p.token.Pos}
	p.nextToken()

	if p.token.Type != TOKEN_OP {
		p.fail(p.token.Pos, "expected comparison operator after %q, got %s %q", cmp.Selector, p.token.Type, p.token.Literal)
		return nil
	}
	op, ok := lookupOperator(p.token.Literal)
	if !ok {
		p.fail(p.token.Pos, "unknown operator %q", p.token.Literal)
		return nil
	}
	cmp.Operator = op
	p.nextToken()

	p.parseArguments(cmp)
	if p.err != nil {
		return nil
	}
	return cmp
}

// arguments := value | "(" value ("," value)* ")"
func (p *Parser) parseArguments(cmp *Comparison) {
	if p.token.Type != TOKEN_LPAREN {
		p.parseValue(cmp)
		return
	}
	open := p.token.Pos
	p.nextToken()
	for {
		p.parseValue(cmp)
		if p.err != nil {
			return
		}
		if p.token.Type == TOKEN_COMMA {
			p.nextToken()
			continue
		}
		if p.token.Type != TOKEN_RPAREN {
			p.fail(open, "unbalanced parenthesis in argument list")
			return
		}
		p.nextToken()
		return
	}
}

func (p *Parser) parseValue(cmp *Comparison) {
	switch p.token.Type {
	case TOKEN_IDENT, TOKEN_STRING:
		cmp.Args = append(cmp.Args, p.token.Literal)
		cmp.ArgPos = append(cmp.ArgPos, p.token.Pos)
		p.nextToken()
	case TOKEN_ILLEGAL:
		p.fail(p.token.Pos, "malformed argument %q", p.token.Literal)
	default:
		p.fail(p.token.Pos, "expected argument for %q, got %s", cmp.Selector, p.token.Type)
	}
}
