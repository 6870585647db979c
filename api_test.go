// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package pgmt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

func TestComputePlan_CreateTableFromEmpty(t *testing.T) {
	current := catalog.New()
	desired := catalog.New()
	desired.Add(&catalog.Table{
		QName: catalog.QualifiedName{Schema: "app", Name: "users"},
		Columns: []catalog.Column{
			{Name: "id", Type: &catalog.NamedType{Name: "int4"}, Nullable: false},
		},
	})

	ops, err := ComputePlan(current, desired, Options{})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	_, ok := ops[0].(*plan.Create)
	require.True(t, ok)
}

func TestComputePlan_IdempotentOnEqualCatalogs(t *testing.T) {
	c := catalog.New()
	c.Add(&catalog.Schema{SchemaName: "app"})

	ops, err := ComputePlan(c, c, Options{})
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestRenderPlan_AndEmitPlan(t *testing.T) {
	current := catalog.New()
	desired := catalog.New()
	desired.Add(&catalog.Schema{SchemaName: "billing"})

	ops, err := ComputePlan(current, desired, Options{})
	require.NoError(t, err)

	stmts, err := RenderPlan(ops)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	var buf bytes.Buffer
	require.NoError(t, EmitPlan(stmts, &buf))
	require.Contains(t, buf.String(), `CREATE SCHEMA "billing"`)
}

func TestParseMigration_RoundTripsEmittedPlan(t *testing.T) {
	stmts := []plan.RenderedSql{{SQL: `CREATE SCHEMA "billing";`, Safety: plan.Safe}}
	var buf bytes.Buffer
	require.NoError(t, EmitPlan(stmts, &buf))

	sections, err := ParseMigration(buf.String())
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Statements, 1)
}
