package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/lexer"
)

// parser is a one-token-lookahead reader over the gqlparser lexer shared by
// the schema and query grammars. The first error sticks; after it every read
// returns the previous token so callers can unwind without extra checks.
type parser struct {
	source *ast.Source
	lexer  lexer.Lexer
	err    *gqlerror.Error

	peeked    bool
	peekToken lexer.Token
	peekError error

	prev lexer.Token
}

func newParser(src *ast.Source) *parser {
	return &parser{source: src, lexer: lexer.New(src)}
}

func (p *parser) read() (lexer.Token, error) {
	for {
		tok, err := p.lexer.ReadToken()
		if err != nil || tok.Kind != lexer.Comment {
			return tok, err
		}
	}
}

func (p *parser) peek() lexer.Token {
	if p.err != nil {
		return p.prev
	}
	if !p.peeked {
		p.peekToken, p.peekError = p.read()
		p.peeked = true
	}
	if p.peekError != nil {
		p.fail(p.peekError)
		return p.prev
	}
	return p.peekToken
}

func (p *parser) next() lexer.Token {
	if p.err != nil {
		return p.prev
	}
	if p.peeked {
		p.peeked = false
		if p.peekError != nil {
			p.fail(p.peekError)
			return p.prev
		}
		p.prev = p.peekToken
		return p.prev
	}
	tok, err := p.read()
	if err != nil {
		p.fail(err)
		return p.prev
	}
	p.prev = tok
	return tok
}

func (p *parser) fail(err error) {
	if p.err != nil {
		return
	}
	if ge, ok := err.(*gqlerror.Error); ok {
		p.err = ge
		return
	}
	p.err = &gqlerror.Error{Message: err.Error()}
}

func (p *parser) error(tok lexer.Token, format string, args ...any) {
	if p.err != nil {
		return
	}
	pos := tok.Pos
	p.err = gqlerror.ErrorPosf(&pos, format, args...)
}

func (p *parser) unexpected(tok lexer.Token) {
	switch tok.Kind {
	case lexer.Name, lexer.String, lexer.BlockString, lexer.Int, lexer.Float:
		p.error(tok, "Unexpected %s %q", tok.Kind.String(), tok.Value)
	default:
		p.error(tok, "Unexpected %s", tok.Kind.String())
	}
}

func (p *parser) expect(kind lexer.Type) lexer.Token {
	tok := p.next()
	if p.err != nil {
		return tok
	}
	if tok.Kind != kind {
		p.error(tok, "Expected %s, found %s", kind.String(), tok.Kind.String())
	}
	return tok
}

// skip consumes the next token when it has the given kind.
func (p *parser) skip(kind lexer.Type) bool {
	if p.err != nil {
		return false
	}
	if p.peek().Kind != kind {
		return false
	}
	p.next()
	return true
}

func position(tok lexer.Token) *Position {
	pos := tok.Pos
	return &pos
}
