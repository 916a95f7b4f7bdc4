package language

import "github.com/vektah/gqlparser/v2/lexer"

// matchKeyword introduces an equality constraint or a non-empty requirement.
const matchKeyword = "match"

func (p *parser) parseQueryDocument() *QueryDocument {
	tok := p.expect(lexer.Name)
	if p.err != nil {
		return nil
	}
	doc := &QueryDocument{Type: tok.Value, Position: position(tok)}
	doc.SelectionSet = p.parseSelectionSet()
	if p.err != nil {
		return nil
	}
	if tok := p.next(); p.err == nil && tok.Kind != lexer.EOF {
		p.unexpected(tok)
	}
	if p.err != nil {
		return nil
	}
	return doc
}

func (p *parser) parseSelectionSet() SelectionSet {
	p.expect(lexer.BraceL)
	var set SelectionSet
	for !p.skip(lexer.BraceR) {
		if p.err != nil {
			return nil
		}
		set = append(set, p.parseSelection())
	}
	if p.err == nil && len(set) == 0 {
		p.error(p.prev, "Expected Name, found }")
	}
	return set
}

// parseSelection accepts both `match <literal> field` and
// `match field [<literal>]`.
func (p *parser) parseSelection() *Selection {
	tok := p.next()
	if p.err != nil {
		return nil
	}
	if tok.Kind != lexer.Name {
		p.unexpected(tok)
		return nil
	}
	sel := &Selection{Name: tok.Value, Position: position(tok)}
	if tok.Value == matchKeyword && p.startsMatch() {
		sel.Match = true
		sel.Value = p.parseLiteral()
		name := p.expect(lexer.Name)
		sel.Name = name.Value
		sel.Position = position(name)
		if sel.Value == nil {
			sel.Value = p.parseLiteral()
		}
	}
	if p.err != nil {
		return nil
	}
	if p.peek().Kind == lexer.BraceL {
		sel.SelectionSet = p.parseSelectionSet()
	}
	return sel
}

func (p *parser) startsMatch() bool {
	switch p.peek().Kind {
	case lexer.Name, lexer.String, lexer.BlockString, lexer.Int, lexer.Float:
		return true
	}
	return false
}

func (p *parser) parseLiteral() *Value {
	if p.err != nil {
		return nil
	}
	tok := p.peek()
	var kind ValueKind
	switch tok.Kind {
	case lexer.String, lexer.BlockString:
		kind = StringValue
	case lexer.Int:
		kind = IntValue
	case lexer.Float:
		kind = FloatValue
	default:
		return nil
	}
	p.next()
	return &Value{Kind: kind, Raw: tok.Value, Position: position(tok)}
}
