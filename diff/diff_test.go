// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/diff"
	"github.com/go-pgmt/pgmt/plan"
)

func tableWithColumns(name string, cols ...catalog.Column) *catalog.Table {
	return &catalog.Table{QName: catalog.QualifiedName{Schema: "public", Name: name}, Columns: cols}
}

func col(name, typeName string) catalog.Column {
	return catalog.Column{Name: name, Type: &catalog.NamedType{Name: typeName}}
}

func TestDiffCreateAndDrop(t *testing.T) {
	current := catalog.New()
	current.Add(tableWithColumns("old"))

	desired := catalog.New()
	desired.Add(tableWithColumns("new"))

	d := diff.New(diff.Options{})
	ops, err := d.Diff(current, desired)
	require.NoError(t, err)

	var created, dropped bool
	for _, op := range ops {
		switch o := op.(type) {
		case *plan.Create:
			require.Equal(t, "new", o.Object.ID().Name.Name)
			created = true
		case *plan.Drop:
			require.Equal(t, "old", o.Object.ID().Name.Name)
			dropped = true
		}
	}
	require.True(t, created)
	require.True(t, dropped)
}

func TestDiffAlterColumnType(t *testing.T) {
	current := catalog.New()
	current.Add(tableWithColumns("t", col("a", "int4")))
	desired := catalog.New()
	desired.Add(tableWithColumns("t", col("a", "int8")))

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	alter, ok := ops[0].(*plan.AlterColumnType)
	require.True(t, ok)
	require.Equal(t, "a", alter.Column)
	require.Equal(t, "int8", catalog.TypeName(alter.To))
}

func TestDiffEnumAddValue(t *testing.T) {
	current := catalog.New()
	current.Add(&catalog.Enum{QName: catalog.QualifiedName{Schema: "public", Name: "status"}, Values: []string{"active"}})
	desired := catalog.New()
	desired.Add(&catalog.Enum{QName: catalog.QualifiedName{Schema: "public", Name: "status"}, Values: []string{"active", "archived"}})

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	add, ok := ops[0].(*plan.EnumAddValue)
	require.True(t, ok)
	require.Equal(t, "archived", add.Value)
	require.Equal(t, "active", add.After)
}

func TestDiffEnumRemoveValueIsUnsupported(t *testing.T) {
	current := catalog.New()
	current.Add(&catalog.Enum{QName: catalog.QualifiedName{Schema: "public", Name: "status"}, Values: []string{"active", "archived"}})
	desired := catalog.New()
	desired.Add(&catalog.Enum{QName: catalog.QualifiedName{Schema: "public", Name: "status"}, Values: []string{"active"}})

	_, err := diff.New(diff.Options{}).Diff(current, desired)
	require.Error(t, err)
	perr, ok := err.(*plan.Error)
	require.True(t, ok)
	require.Equal(t, plan.KindUnsupported, perr.Kind)
}

func TestDiffColumnOrderStrictRejectsOutOfOrderAdd(t *testing.T) {
	current := catalog.New()
	current.Add(tableWithColumns("t", col("a", "int4"), col("b", "int4")))
	desired := catalog.New()
	desired.Add(tableWithColumns("t", col("a", "int4"), col("new", "text"), col("b", "int4")))

	_, err := diff.New(diff.Options{ColumnOrderPolicy: diff.Strict}).Diff(current, desired)
	require.Error(t, err)
}

func TestDiffColumnOrderRelaxedAllowsOutOfOrderAdd(t *testing.T) {
	current := catalog.New()
	current.Add(tableWithColumns("t", col("a", "int4"), col("b", "int4")))
	desired := catalog.New()
	desired.Add(tableWithColumns("t", col("a", "int4"), col("new", "text"), col("b", "int4")))

	ops, err := diff.New(diff.Options{ColumnOrderPolicy: diff.Relaxed}).Diff(current, desired)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	_, ok := ops[0].(*plan.AddColumn)
	require.True(t, ok)
}

func TestDiffColumnCommentChanged(t *testing.T) {
	current := catalog.New()
	t1 := tableWithColumns("t", col("a", "int4"))
	t1.ColumnComments = map[string]string{"a": "old text"}
	current.Add(t1)

	desired := catalog.New()
	t2 := tableWithColumns("t", col("a", "int4"))
	t2.ColumnComments = map[string]string{"a": "new text"}
	desired.Add(t2)

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	cc, ok := ops[0].(*plan.ColumnComment)
	require.True(t, ok)
	require.Equal(t, "a", cc.Column)
	require.Equal(t, "new text", cc.Text)
}

func TestDiffColumnCommentClearedRendersAsEmptyText(t *testing.T) {
	current := catalog.New()
	t1 := tableWithColumns("t", col("a", "int4"))
	t1.ColumnComments = map[string]string{"a": "old text"}
	current.Add(t1)

	desired := catalog.New()
	desired.Add(tableWithColumns("t", col("a", "int4"))) // no comment

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	cc, ok := ops[0].(*plan.ColumnComment)
	require.True(t, ok)
	require.Equal(t, "", cc.Text)
}

func TestDiffColumnCommentUnchangedEmitsNothing(t *testing.T) {
	current := catalog.New()
	t1 := tableWithColumns("t", col("a", "int4"))
	t1.ColumnComments = map[string]string{"a": "same"}
	current.Add(t1)

	desired := catalog.New()
	t2 := tableWithColumns("t", col("a", "int4"))
	t2.ColumnComments = map[string]string{"a": "same"}
	desired.Add(t2)

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestDiffNewColumnCommentEmittedAlongsideAddColumn(t *testing.T) {
	current := catalog.New()
	current.Add(tableWithColumns("t", col("a", "int4")))

	desired := catalog.New()
	t2 := tableWithColumns("t", col("a", "int4"), col("b", "text"))
	t2.ColumnComments = map[string]string{"b": "new column"}
	desired.Add(t2)

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	_, addOK := ops[0].(*plan.AddColumn)
	require.True(t, addOK)
	cc, ccOK := ops[1].(*plan.ColumnComment)
	require.True(t, ccOK)
	require.Equal(t, "b", cc.Column)
	require.Equal(t, "new column", cc.Text)
}

func TestGrantDiffFiltersRevokeOnDroppedObject(t *testing.T) {
	tbl := tableWithColumns("t")
	current := catalog.New()
	current.Add(tbl)
	current.Add(&catalog.Grant{Grantee: "app", Privilege: "SELECT", On: tbl.ID()})

	desired := catalog.New() // table dropped entirely

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)
	for _, op := range ops {
		_, isRevoke := op.(*plan.RevokeOp)
		require.False(t, isRevoke, "revoke must not be emitted for a grant whose object is being dropped")
	}
}

func TestGrantDiffEmitsGrantAndRevoke(t *testing.T) {
	tbl := tableWithColumns("t")
	current := catalog.New()
	current.Add(tbl)
	current.Add(&catalog.Grant{Grantee: "app", Privilege: "SELECT", On: tbl.ID()})

	desired := catalog.New()
	desired.Add(tbl)
	desired.Add(&catalog.Grant{Grantee: "app", Privilege: "INSERT", On: tbl.ID()})

	ops, err := diff.New(diff.Options{}).Diff(current, desired)
	require.NoError(t, err)

	var grants, revokes int
	for _, op := range ops {
		switch op.(type) {
		case *plan.GrantOp:
			grants++
		case *plan.RevokeOp:
			revokes++
		}
	}
	require.Equal(t, 1, grants)
	require.Equal(t, 1, revokes)
}
