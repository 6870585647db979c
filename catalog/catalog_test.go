// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/catalog"
)

func TestObjectIDOrdering(t *testing.T) {
	a := catalog.NewID(catalog.KindTable, "public", "accounts")
	b := catalog.NewID(catalog.KindTable, "public", "users")
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))

	// Kind is the primary sort key.
	schemaID := catalog.NewID(catalog.KindSchema, "", "public")
	require.True(t, schemaID.Less(a))
}

func TestCatalogDepsAndRefs(t *testing.T) {
	c := catalog.New()
	tbl := &catalog.Table{QName: catalog.QualifiedName{Schema: "public", Name: "t"}}
	view := &catalog.View{QName: catalog.QualifiedName{Schema: "public", Name: "v"}, Def: "SELECT 1 FROM public.t"}
	c.Add(tbl)
	c.Add(view)
	c.DependsOn(view.ID(), tbl.ID())

	require.Equal(t, []catalog.ID{tbl.ID()}, c.Deps(view.ID()))
	require.Equal(t, []catalog.ID{view.ID()}, c.Refs(tbl.ID()))
	require.NoError(t, c.CheckInvariants())
}

func TestCatalogInvariantViolations(t *testing.T) {
	c := catalog.New()
	tbl := &catalog.Table{QName: catalog.QualifiedName{Schema: "public", Name: "t"}}
	c.Add(tbl)
	// An edge to an unknown, non-bootstrap object violates the invariant.
	c.DependsOn(tbl.ID(), catalog.NewID(catalog.KindTable, "public", "ghost"))
	require.Error(t, c.CheckInvariants())
}

func TestFunctionSignatureIdentity(t *testing.T) {
	f1 := &catalog.Function{
		QName:    catalog.QualifiedName{Schema: "public", Name: "f"},
		FuncKind: catalog.KindFunction,
		Params:   []catalog.Param{{Type: &catalog.NamedType{Name: "int4"}}},
	}
	f2 := &catalog.Function{
		QName:    catalog.QualifiedName{Schema: "public", Name: "f"},
		FuncKind: catalog.KindFunction,
		Params:   []catalog.Param{{Type: &catalog.NamedType{Name: "text"}}},
	}
	require.NotEqual(t, f1.ID(), f2.ID())
}

func TestArrayTypeNeverNamedByUnderscorePrefix(t *testing.T) {
	// A genuine array type is modelled as ArrayType wrapping its element;
	// a scalar type that merely starts with "_" in PostgreSQL's own
	// naming (rare, but legal) must stay a NamedType.
	weirdScalar := &catalog.NamedType{Name: "_weird_but_scalar"}
	arr := &catalog.ArrayType{Elem: &catalog.NamedType{Name: "int4"}}
	require.Equal(t, "_weird_but_scalar", catalog.TypeName(weirdScalar))
	require.Equal(t, "int4[]", catalog.TypeName(arr))
}
