// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package cascade_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/cascade"
	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

func TestExpandAlterColumnTypeDropsAndRecreatesDependentView(t *testing.T) {
	tbl := &catalog.Table{
		QName:   catalog.QualifiedName{Schema: "public", Name: "accounts"},
		Columns: []catalog.Column{{Name: "balance", Type: &catalog.NamedType{Name: "int4"}}},
	}
	view := &catalog.View{
		QName: catalog.QualifiedName{Schema: "public", Name: "balances_view"},
		Def:   "SELECT balance FROM public.accounts",
	}

	current := catalog.New()
	current.Add(tbl)
	current.Add(view)
	current.DependsOn(view.ID(), tbl.ID())

	desired := catalog.New()
	desiredTbl := &catalog.Table{
		QName:   tbl.QName,
		Columns: []catalog.Column{{Name: "balance", Type: &catalog.NamedType{Name: "int8"}}},
	}
	desiredView := &catalog.View{QName: view.QName, Def: view.Def}
	desired.Add(desiredTbl)
	desired.Add(desiredView)
	desired.DependsOn(desiredView.ID(), desiredTbl.ID())

	alter := &plan.AlterColumnType{
		Table: tbl.ID(), Column: "balance",
		From: &catalog.NamedType{Name: "int4"}, To: &catalog.NamedType{Name: "int8"},
	}
	ops, err := cascade.New().Expand([]plan.Operation{alter}, current, desired)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	drop, ok := ops[0].(*plan.Drop)
	require.True(t, ok)
	require.Equal(t, view.ID(), drop.Object.ID())

	_, ok = ops[1].(*plan.AlterColumnType)
	require.True(t, ok)

	create, ok := ops[2].(*plan.Create)
	require.True(t, ok)
	require.Equal(t, view.ID(), create.Object.ID())

	require.Equal(t, ops[0].Meta().Chain, ops[1].Meta().Chain)
	require.Equal(t, ops[1].Meta().Chain, ops[2].Meta().Chain)
	require.True(t, ops[0].Meta().Seq < ops[1].Meta().Seq)
	require.True(t, ops[1].Meta().Seq < ops[2].Meta().Seq)
}

func TestExpandDropTableCascadesToDependentsAndFiltersTheirGrants(t *testing.T) {
	tbl := &catalog.Table{QName: catalog.QualifiedName{Schema: "public", Name: "accounts"}}
	view := &catalog.View{QName: catalog.QualifiedName{Schema: "public", Name: "accounts_view"}, Def: "SELECT * FROM public.accounts"}

	current := catalog.New()
	current.Add(tbl)
	current.Add(view)
	current.DependsOn(view.ID(), tbl.ID())
	current.Add(&catalog.Grant{Grantee: "app", Privilege: "SELECT", On: view.ID()})

	desired := catalog.New() // both table and view removed entirely

	drop := &plan.Drop{Object: tbl}
	ops, err := cascade.New().Expand([]plan.Operation{drop}, current, desired)
	require.NoError(t, err)

	var drops int
	for _, op := range ops {
		if _, ok := op.(*plan.Drop); ok {
			drops++
		}
		_, isGrant := op.(*plan.GrantOp)
		require.False(t, isGrant, "a dependent that does not survive must not be re-granted")
	}
	require.Equal(t, 2, drops) // the view's cascade drop, plus the table's own drop
}

func TestExpandDeduplicatesDependentAlreadyScheduled(t *testing.T) {
	tbl := &catalog.Table{QName: catalog.QualifiedName{Schema: "public", Name: "accounts"}}
	view := &catalog.View{QName: catalog.QualifiedName{Schema: "public", Name: "accounts_view"}, Def: "SELECT 1"}

	current := catalog.New()
	current.Add(tbl)
	current.Add(view)
	current.DependsOn(view.ID(), tbl.ID())

	desired := catalog.New()
	desired.Add(&catalog.Table{QName: tbl.QName})
	newView := &catalog.View{QName: view.QName, Def: "SELECT 2"}
	desired.Add(newView)

	// The plain differ already scheduled the view's own structural
	// change as a Drop+Create pair (its definition text changed).
	viewDrop := &plan.Drop{Object: view}
	viewCreate := &plan.Create{Object: newView}
	alter := &plan.AlterColumnType{Table: tbl.ID(), Column: "id"}

	ops, err := cascade.New().Expand([]plan.Operation{alter, viewDrop, viewCreate}, current, desired)
	require.NoError(t, err)

	var drops, creates int
	for _, op := range ops {
		switch op.(type) {
		case *plan.Drop:
			drops++
		case *plan.Create:
			creates++
		}
	}
	require.Equal(t, 1, drops, "the view's drop must not be duplicated")
	require.Equal(t, 1, creates, "the view's create must not be duplicated")
}
