// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package catalog

// Type represents a database type resolved by the Introspector, or
// constructed by the Schema Loader's shadow-database round trip. The set
// of implementations is closed.
type Type interface {
	typ()
	typeName() string
}

type (
	// NamedType is a direct reference to a named type (a domain, enum,
	// composite, range, or a built-in scalar identified by its PostgreSQL
	// type name, e.g. "int4", "text", "timestamptz").
	NamedType struct {
		Schema string // empty for pg_catalog built-ins
		Name   string
	}

	// ArrayType wraps an element type; array dimensions are carried
	// alongside the column/parameter/attribute that uses it: the
	// dependency is always on the element type, never the wrapper.
	ArrayType struct {
		Elem Type
	}

	// UnsupportedType is a type the engine could not resolve to any of
	// the above; its raw spelling is preserved so it still round-trips
	// through rendering even though the Differ cannot compare it
	// structurally.
	UnsupportedType struct {
		Raw string
	}
)

func (t *NamedType) typ() {}
func (t *ArrayType) typ()  {}
func (t *UnsupportedType) typ() {}

func (t *NamedType) typeName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
func (t *ArrayType) typeName() string       { return t.Elem.typeName() + "[]" }
func (t *UnsupportedType) typeName() string { return t.Raw }

// Expr is an SQL expression captured verbatim (a default value, a CHECK
// body, a USING clause, ...). The engine never parses expressions beyond
// storing their text: comparing two Exprs is a textual comparison only.
type Expr interface {
	expr()
	Text() string
}

// TypeName returns the canonical name used to compare function
// parameter/return types for signature identity.
func TypeName(t Type) string { return t.typeName() }

// RawExpr is the only Expr implementation: every captured expression is
// opaque SQL text, post-parsed only to the extent the catalog's own
// pretty-printers (pg_get_expr, etc.) normalize it.
type RawExpr struct {
	X string
}

func (*RawExpr) expr()        {}
func (e *RawExpr) Text() string { return e.X }
