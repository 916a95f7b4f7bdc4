package language

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// ParseSchema parses schema DSL text. name is used in error locations.
func ParseSchema(name, source string) (*SchemaDocument, error) {
	p := newParser(&ast.Source{Name: name, Input: source})
	doc := p.parseSchemaDocument()
	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}

// ParseQuery parses query DSL text.
func ParseQuery(source string) (*QueryDocument, error) {
	p := newParser(&ast.Source{Input: source})
	doc := p.parseQueryDocument()
	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}
