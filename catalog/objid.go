// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package catalog holds the strongly typed, deterministic model of every
// object a database schema manages: the identity scheme (ObjectId), the
// per-kind attribute shapes, and the immutable in-memory snapshot
// (Catalog) that the Introspector builds and the Differ compares.
package catalog

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a managed database object. The set is
// closed: every Kind below has a corresponding struct type and a case in
// every switch that handles objects generically (diffing, rendering,
// ordering).
type Kind uint8

// The full set of object kinds recognised by the engine.
const (
	KindSchema Kind = iota + 1
	KindExtension
	KindEnum
	KindDomain
	KindComposite
	KindRange
	KindSequence
	KindTable
	KindIndex
	KindView
	KindFunction
	KindProcedure
	KindAggregate
	KindTrigger
	KindPolicy
	KindGrant
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindExtension:
		return "extension"
	case KindEnum:
		return "enum"
	case KindDomain:
		return "domain"
	case KindComposite:
		return "composite"
	case KindRange:
		return "range"
	case KindSequence:
		return "sequence"
	case KindTable:
		return "table"
	case KindIndex:
		return "index"
	case KindView:
		return "view"
	case KindFunction:
		return "function"
	case KindProcedure:
		return "procedure"
	case KindAggregate:
		return "aggregate"
	case KindTrigger:
		return "trigger"
	case KindPolicy:
		return "policy"
	case KindGrant:
		return "grant"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// QualifiedName is a schema-qualified database identifier. Schema is
// empty for objects that are not schema-qualified (a schema itself, an
// extension, a trigger or a policy), which carry their whole name in Name.
type QualifiedName struct {
	Schema string
	Name   string
}

func (q QualifiedName) String() string {
	if q.Schema == "" {
		return q.Name
	}
	if q.Name == "" {
		return q.Schema
	}
	return q.Schema + "." + q.Name
}

// ID is the canonical identity of a managed object: its kind, its
// qualified name, and a discriminator that disambiguates objects that
// would otherwise collide on kind+name. Only functions, procedures and
// aggregates (overloads, disambiguated by parameter types) and grants
// (disambiguated by grantee+privilege) use a non-empty discriminator.
//
// ID values are totally ordered; Less is used as the tiebreaker in every
// topological sort performed by the engine, which is what makes plan
// computation deterministic.
type ID struct {
	Kind           Kind
	Name           QualifiedName
	Discriminator  string
}

// NewID builds an ObjectId for a simple (non-overloaded) object.
func NewID(kind Kind, schema, name string) ID {
	return ID{Kind: kind, Name: QualifiedName{Schema: schema, Name: name}}
}

// NewFuncID builds an ObjectId for a function/procedure/aggregate, whose
// identity includes its parameter signature (overloads are distinct
// objects).
func NewFuncID(kind Kind, schema, name string, paramTypes []string) ID {
	return ID{Kind: kind, Name: QualifiedName{Schema: schema, Name: name}, Discriminator: strings.Join(paramTypes, ",")}
}

// NewGrantID builds an ObjectId for a grant, keyed by the triple that
// makes a grant unique among the grants on one object.
func NewGrantID(schema, object, grantee, privilege string) ID {
	return ID{Kind: KindGrant, Name: QualifiedName{Schema: schema, Name: object}, Discriminator: grantee + ":" + privilege}
}

func (id ID) String() string {
	if id.Discriminator == "" {
		return fmt.Sprintf("%s %s", id.Kind, id.Name)
	}
	return fmt.Sprintf("%s %s(%s)", id.Kind, id.Name, id.Discriminator)
}

// Less defines the total order over ObjectIds used for deterministic
// iteration and as the tiebreaker in topological sorts.
func (id ID) Less(other ID) bool {
	if id.Kind != other.Kind {
		return id.Kind < other.Kind
	}
	if id.Name.Schema != other.Name.Schema {
		return id.Name.Schema < other.Name.Schema
	}
	if id.Name.Name != other.Name.Name {
		return id.Name.Name < other.Name.Name
	}
	return id.Discriminator < other.Discriminator
}

// Bootstrap identities referenced only symbolically (e.g. built-in
// pg_catalog types) are never present as Catalog keys and are ignored by
// ordering; they are recognised by their well-known schema name.
func (id ID) isBootstrap() bool {
	return id.Name.Schema == "pg_catalog" || id.Name.Schema == "information_schema"
}
