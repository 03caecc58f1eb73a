// Package schema holds the declarative response-shape descriptors and the
// structural validator that compares a decoded JSON value against them.
package schema

import (
	"fmt"
	"strings"
)

// Kind identifies a primitive JSON kind.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// FormType discriminates the closed set of type forms a field may declare.
type FormType int

const (
	FormPrimitive FormType = iota
	FormObject
	FormList
	FormMap
	FormUnion
	FormLiteral
)

// Form is one node of a descriptor tree. Exactly the members relevant to its
// Type are populated. Forms are built once at suite-load time and shared
// read-only across concurrent validations.
type Form struct {
	Type FormType

	// Prim is set for FormPrimitive.
	Prim Kind
	// Object is set for FormObject.
	Object *Object
	// Elem is set for FormList.
	Elem *Form
	// Alternatives is set for FormUnion, in declaration order.
	Alternatives []*Form
	// Literals is set for FormLiteral, in declaration order.
	Literals []any
}

// Field declares one named member of an object shape.
type Field struct {
	Name     string
	Form     *Form
	Required bool
}

// Object is a named object shape with fields in declaration order.
type Object struct {
	Name   string
	Fields []Field
}

// Primitive returns a primitive form of the given kind.
func Primitive(kind Kind) *Form {
	return &Form{Type: FormPrimitive, Prim: kind}
}

// Null returns the null primitive form.
func Null() *Form {
	return Primitive(KindNull)
}

// ObjectOf returns an object form over the given shape.
func ObjectOf(obj *Object) *Form {
	return &Form{Type: FormObject, Object: obj}
}

// ListOf returns a homogeneous list form.
func ListOf(elem *Form) *Form {
	return &Form{Type: FormList, Elem: elem}
}

// MapOf returns the free-form object form. Validation only checks that the
// value is an object; members are not traversed.
func MapOf() *Form {
	return &Form{Type: FormMap}
}

// UnionOf returns a union form over the alternatives in declaration order.
func UnionOf(alternatives ...*Form) *Form {
	return &Form{Type: FormUnion, Alternatives: alternatives}
}

// LiteralOf returns a literal enumeration form.
func LiteralOf(values ...any) *Form {
	return &Form{Type: FormLiteral, Literals: values}
}

// Describe renders a short human-readable description of the expected type,
// used in field results.
func (f *Form) Describe() string {
	if f == nil {
		return "unknown"
	}
	switch f.Type {
	case FormPrimitive:
		return f.Prim.String()
	case FormObject:
		if f.Object != nil && f.Object.Name != "" {
			return "object " + f.Object.Name
		}
		return "object"
	case FormList:
		return "list of " + f.Elem.Describe()
	case FormMap:
		return "map"
	case FormUnion:
		parts := make([]string, 0, len(f.Alternatives))
		for _, alt := range f.Alternatives {
			parts = append(parts, alt.Describe())
		}
		return "one of [" + strings.Join(parts, ", ") + "]"
	case FormLiteral:
		parts := make([]string, 0, len(f.Literals))
		for _, v := range f.Literals {
			parts = append(parts, fmt.Sprintf("%v", v))
		}
		return "literal in {" + strings.Join(parts, ", ") + "}"
	default:
		return "unknown"
	}
}

// allowsNull reports whether a null value satisfies this form.
func (f *Form) allowsNull() bool {
	if f.Type == FormPrimitive && f.Prim == KindNull {
		return true
	}
	if f.Type == FormUnion {
		for _, alt := range f.Alternatives {
			if alt.Type == FormPrimitive && alt.Prim == KindNull {
				return true
			}
		}
	}
	return false
}

// discriminator returns the literal values of a nested object's "type" field
// when the form is an object declaring one as a literal enumeration. Union
// probing uses it to resolve tagged membership unambiguously.
func (f *Form) discriminator() ([]any, bool) {
	if f.Type != FormObject || f.Object == nil {
		return nil, false
	}
	for _, field := range f.Object.Fields {
		if field.Name == "type" && field.Form.Type == FormLiteral {
			return field.Form.Literals, true
		}
	}
	return nil, false
}
