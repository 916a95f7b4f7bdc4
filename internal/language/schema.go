package language

import "github.com/vektah/gqlparser/v2/lexer"

func (p *parser) parseSchemaDocument() *SchemaDocument {
	doc := &SchemaDocument{Name: p.source.Name}
	for p.peek().Kind != lexer.EOF {
		if p.err != nil {
			return nil
		}
		def := p.parseDefinition()
		if p.err != nil {
			return nil
		}
		doc.Definitions = append(doc.Definitions, def)
	}
	if p.err != nil {
		return nil
	}
	return doc
}

func (p *parser) parseDefinition() *Definition {
	tok := p.next()
	if tok.Kind != lexer.Name {
		p.unexpected(tok)
		return nil
	}
	switch DefinitionKind(tok.Value) {
	case Scalar:
		name := p.expect(lexer.Name)
		return &Definition{Kind: Scalar, Name: name.Value, Position: position(tok)}
	case Compound:
		name := p.expect(lexer.Name)
		def := &Definition{Kind: Compound, Name: name.Value, Position: position(tok)}
		p.expect(lexer.BraceL)
		for !p.skip(lexer.BraceR) {
			if p.err != nil {
				return nil
			}
			def.Fields = append(def.Fields, p.parseFieldDefinition())
		}
		return def
	default:
		p.error(tok, "Unexpected Name %q, expected \"scalar\" or \"type\"", tok.Value)
		return nil
	}
}

// parseFieldDefinition reads `Type name`, `[Type] name` or `Type[] name`.
func (p *parser) parseFieldDefinition() *FieldDefinition {
	typ := p.parseTypeReference()
	name := p.expect(lexer.Name)
	return &FieldDefinition{Name: name.Value, Type: typ, Position: position(name)}
}

func (p *parser) parseTypeReference() *Type {
	if p.skip(lexer.BracketL) {
		start := p.prev
		name := p.expect(lexer.Name)
		p.expect(lexer.BracketR)
		return &Type{NamedType: name.Value, List: true, Position: position(start)}
	}
	name := p.next()
	if name.Kind != lexer.Name {
		p.unexpected(name)
		return nil
	}
	typ := &Type{NamedType: name.Value, Position: position(name)}
	if p.skip(lexer.BracketL) {
		p.expect(lexer.BracketR)
		typ.List = true
	}
	return typ
}
