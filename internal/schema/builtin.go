package schema

var stringType = &Type{Name: "String", Kind: TypeKindScalar, Builtin: true}

var integerType = &Type{Name: "Integer", Kind: TypeKindScalar, Builtin: true}

var floatType = &Type{Name: "Float", Kind: TypeKindScalar, Builtin: true}

var booleanType = &Type{Name: "Boolean", Kind: TypeKindScalar, Builtin: true}

// Builtins returns the scalar types every schema starts with.
func Builtins() []*Type {
	return []*Type{stringType, integerType, floatType, booleanType}
}
