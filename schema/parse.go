package schema

import (
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"gopkg.in/yaml.v3"
)

// ParseLibrary builds the named object descriptors declared in a suite
// document's schemas section. Each entry maps a schema name to a shape in
// the compact declarative syntax:
//
//	id: string            primitive, required
//	seed: int?            trailing ? marks the field optional
//	object: enum(chat.completion|chat.completion.chunk)
//	content: union(string|null)
//	tags: [string]        single-element list declares element shape
//	usage: {...}          nested mapping declares a nested object
//	metadata: map         free-form object, members not traversed
//	delta: "@delta"       reference to another named schema
//
// A mapping whose single key is "union" or "enum" declares a union of the
// listed shapes or a literal enumeration of the listed values. References
// may point forward; an undeclared reference is a load error.
//
// Parsing works on yaml.Node so field declaration order survives; the
// validator walks fields and union alternatives in that order.
func ParseLibrary(node *yaml.Node) (map[string]*Object, error) {
	if node == nil || node.IsZero() {
		return map[string]*Object{}, nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("schemas section must be a mapping of name to shape")
	}

	p := &parser{library: make(map[string]*Object)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		p.library[node.Content[i].Value] = &Object{Name: node.Content[i].Value}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		shape := node.Content[i+1]
		if shape.Kind != yaml.MappingNode {
			return nil, errors.Errorf("schema %q: top level must be a mapping", name)
		}
		fields, err := p.parseFields(shape)
		if err != nil {
			return nil, errors.Wrapf(err, "schema %q", name)
		}
		p.library[name].Fields = fields
	}

	if p.missingRef != "" {
		return nil, errors.Errorf("undeclared schema reference %q", p.missingRef)
	}
	return p.library, nil
}

type parser struct {
	library    map[string]*Object
	missingRef string
}

func (p *parser) parseFields(mapping *yaml.Node) ([]Field, error) {
	fields := make([]Field, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value
		required := true
		if strings.HasSuffix(name, "?") {
			name = strings.TrimSuffix(name, "?")
			required = false
		}
		form, err := p.parseForm(mapping.Content[i+1])
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", name)
		}
		fields = append(fields, Field{Name: name, Form: form, Required: required})
	}
	return fields, nil
}

func (p *parser) parseForm(node *yaml.Node) (*Form, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return p.parseExpr(node.Value)
	case yaml.MappingNode:
		if len(node.Content) == 2 {
			switch node.Content[0].Value {
			case "union":
				return p.parseUnionList(node.Content[1])
			case "enum":
				return p.parseEnumList(node.Content[1])
			}
		}
		fields, err := p.parseFields(node)
		if err != nil {
			return nil, err
		}
		return ObjectOf(&Object{Fields: fields}), nil
	case yaml.SequenceNode:
		if len(node.Content) != 1 {
			return nil, errors.Errorf("list shape must declare exactly one element, got %d", len(node.Content))
		}
		elem, err := p.parseForm(node.Content[0])
		if err != nil {
			return nil, err
		}
		return ListOf(elem), nil
	default:
		return nil, errors.Errorf("unsupported shape node at line %d", node.Line)
	}
}

func (p *parser) parseUnionList(node *yaml.Node) (*Form, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) == 0 {
		return nil, errors.New("union must list at least one alternative")
	}
	alts := make([]*Form, 0, len(node.Content))
	for _, item := range node.Content {
		alt, err := p.parseForm(item)
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	return UnionOf(alts...), nil
}

func (p *parser) parseEnumList(node *yaml.Node) (*Form, error) {
	if node.Kind != yaml.SequenceNode || len(node.Content) == 0 {
		return nil, errors.New("enum must list at least one value")
	}
	values := make([]any, 0, len(node.Content))
	for _, item := range node.Content {
		var v any
		if err := item.Decode(&v); err != nil {
			return nil, errors.Wrap(err, "decode enum value")
		}
		values = append(values, normalizeLiteral(v))
	}
	return LiteralOf(values...), nil
}

func (p *parser) parseExpr(expr string) (*Form, error) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "string":
		return Primitive(KindString), nil
	case "int":
		return Primitive(KindInt), nil
	case "float", "number":
		return Primitive(KindFloat), nil
	case "bool":
		return Primitive(KindBool), nil
	case "null":
		return Null(), nil
	case "map":
		return MapOf(), nil
	}

	if ref, ok := strings.CutPrefix(expr, "@"); ok {
		obj, exists := p.library[ref]
		if !exists {
			if p.missingRef == "" {
				p.missingRef = ref
			}
			return MapOf(), nil
		}
		return ObjectOf(obj), nil
	}

	if inner, ok := cutCall(expr, "enum"); ok {
		parts := splitTopLevel(inner)
		if len(parts) == 0 {
			return nil, errors.Errorf("empty enum in %q", expr)
		}
		values := make([]any, 0, len(parts))
		for _, part := range parts {
			values = append(values, literalValue(part))
		}
		return LiteralOf(values...), nil
	}

	if inner, ok := cutCall(expr, "union"); ok {
		parts := splitTopLevel(inner)
		if len(parts) == 0 {
			return nil, errors.Errorf("empty union in %q", expr)
		}
		alts := make([]*Form, 0, len(parts))
		for _, part := range parts {
			alt, err := p.parseExpr(part)
			if err != nil {
				return nil, err
			}
			alts = append(alts, alt)
		}
		return UnionOf(alts...), nil
	}

	return nil, errors.Errorf("unknown shape expression %q", expr)
}

// cutCall extracts the argument of name(...) expressions.
func cutCall(expr, name string) (string, bool) {
	if strings.HasPrefix(expr, name+"(") && strings.HasSuffix(expr, ")") {
		return expr[len(name)+1 : len(expr)-1], true
	}
	return "", false
}

// splitTopLevel splits on | while respecting nested parentheses, so
// union(enum(a|b)|null) keeps the inner enum intact.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

// literalValue interprets an enum token as a bool, number, or string.
func literalValue(token string) any {
	switch token {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return n
	}
	return token
}

// normalizeLiteral aligns decoded YAML numbers with decoded JSON numbers so
// literal comparison does not depend on the source format.
func normalizeLiteral(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
