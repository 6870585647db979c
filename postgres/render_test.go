// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

func TestRender_CreateSchema(t *testing.T) {
	r := NewRenderer()
	frags, err := r.Render(&plan.Create{Object: &catalog.Schema{SchemaName: "billing"}})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, plan.Safe, frags[0].Safety)
	require.Contains(t, frags[0].SQL, `"billing"`)
}

func TestRender_CreateTable(t *testing.T) {
	r := NewRenderer()
	tbl := &catalog.Table{
		QName: catalog.QualifiedName{Schema: "app", Name: "users"},
		Columns: []catalog.Column{
			{Name: "id", Type: &catalog.NamedType{Name: "int4"}, Nullable: false},
			{Name: "email", Type: &catalog.NamedType{Name: "text"}, Nullable: true},
		},
		PrimaryKey: &catalog.PrimaryKey{Name: "users_pkey", Columns: []string{"id"}},
	}
	frags, err := r.Render(&plan.Create{Object: tbl})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, plan.Safe, frags[0].Safety)
	require.Contains(t, frags[0].SQL, `CREATE TABLE "app"."users"`)
	require.Contains(t, frags[0].SQL, `"id"`)
	require.Contains(t, frags[0].SQL, "users_pkey")
}

func TestRender_DropTableIsDestructive(t *testing.T) {
	r := NewRenderer()
	tbl := &catalog.Table{QName: catalog.QualifiedName{Schema: "app", Name: "users"}}
	frags, err := r.Render(&plan.Drop{Object: tbl})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, plan.Destructive, frags[0].Safety)
	require.Contains(t, frags[0].SQL, `DROP TABLE "app"."users"`)
}

func TestRender_DropFunctionIsSafe(t *testing.T) {
	r := NewRenderer()
	fn := &catalog.Function{
		QName:    catalog.QualifiedName{Schema: "app", Name: "touch_updated_at"},
		FuncKind: catalog.KindFunction,
	}
	frags, err := r.Render(&plan.Drop{Object: fn})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, plan.Safe, frags[0].Safety)
}

func TestRender_AddColumn(t *testing.T) {
	r := NewRenderer()
	tblID := catalog.NewID(catalog.KindTable, "app", "users")
	frags, err := r.Render(&plan.AddColumn{
		Table:  tblID,
		Column: catalog.Column{Name: "nickname", Type: &catalog.NamedType{Name: "text"}, Nullable: true},
	})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, plan.Safe, frags[0].Safety)
	require.Contains(t, frags[0].SQL, `ADD COLUMN "nickname"`)
}

func TestRender_DropColumnIsDestructive(t *testing.T) {
	r := NewRenderer()
	tblID := catalog.NewID(catalog.KindTable, "app", "users")
	frags, err := r.Render(&plan.DropColumn{Table: tblID, Column: "nickname"})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, plan.Destructive, frags[0].Safety)
	require.Contains(t, frags[0].SQL, `DROP COLUMN "nickname"`)
}

func TestRender_AlterColumnType(t *testing.T) {
	r := NewRenderer()
	tblID := catalog.NewID(catalog.KindTable, "app", "users")
	frags, err := r.Render(&plan.AlterColumnType{
		Table:  tblID,
		Column: "age",
		From:   &catalog.NamedType{Name: "int4"},
		To:     &catalog.NamedType{Name: "int8"},
	})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Contains(t, frags[0].SQL, "TYPE int8")
	require.Contains(t, frags[0].SQL, "USING")
}

func TestRender_EnumAddValue(t *testing.T) {
	r := NewRenderer()
	enumID := catalog.NewID(catalog.KindEnum, "app", "status")
	frags, err := r.Render(&plan.EnumAddValue{Enum: enumID, Value: "archived", After: "active"})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.True(t, strings.Contains(frags[0].SQL, "ADD VALUE 'archived'"))
	require.True(t, strings.Contains(frags[0].SQL, "AFTER 'active'"))
}

func TestRender_CreateTableCarriesComment(t *testing.T) {
	r := NewRenderer()
	tbl := &catalog.Table{
		QName: catalog.QualifiedName{Schema: "app", Name: "users"},
		Columns: []catalog.Column{
			{Name: "id", Type: &catalog.NamedType{Name: "int4"}},
			{Name: "email", Type: &catalog.NamedType{Name: "text"}},
		},
		Comment:        "application end users",
		ColumnComments: map[string]string{"email": "login identifier"},
	}
	frags, err := r.Render(&plan.Create{Object: tbl})
	require.NoError(t, err)
	require.Len(t, frags, 3)
	require.Contains(t, frags[0].SQL, "CREATE TABLE")
	require.Equal(t, plan.Safe, frags[1].Safety)
	require.Equal(t, `COMMENT ON TABLE "app"."users" IS 'application end users'`, frags[1].SQL)
	require.Equal(t, `COMMENT ON COLUMN "app"."users"."email" IS 'login identifier'`, frags[2].SQL)
}

func TestRender_CreateWithoutCommentHasNoCommentFragment(t *testing.T) {
	r := NewRenderer()
	frags, err := r.Render(&plan.Create{Object: &catalog.Schema{SchemaName: "billing"}})
	require.NoError(t, err)
	require.Len(t, frags, 1)
}

func TestRender_CreateEnumCarriesComment(t *testing.T) {
	r := NewRenderer()
	enum := &catalog.Enum{
		QName:   catalog.QualifiedName{Schema: "app", Name: "status"},
		Values:  []string{"active", "archived"},
		Comment: "lifecycle state",
	}
	frags, err := r.Render(&plan.Create{Object: enum})
	require.NoError(t, err)
	require.Len(t, frags, 2)
	require.Equal(t, `COMMENT ON TYPE "app"."status" IS 'lifecycle state'`, frags[1].SQL)
}

func TestRender_CreatePolicyCarriesComment(t *testing.T) {
	r := NewRenderer()
	pol := &catalog.Policy{
		Name:    "app.users.self_access",
		OnTable: "app.users",
		Comment: "restricts rows to the owning user",
	}
	frags, err := r.Render(&plan.Create{Object: pol})
	require.NoError(t, err)
	require.Len(t, frags, 2)
	require.Equal(t, `COMMENT ON POLICY "self_access" ON "app"."users" IS 'restricts rows to the owning user'`, frags[1].SQL)
}

func TestRender_SetColumnComment(t *testing.T) {
	r := NewRenderer()
	tblID := catalog.NewID(catalog.KindTable, "app", "users")
	frags, err := r.Render(&plan.ColumnComment{Table: tblID, Column: "email", Text: "login identifier"})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, plan.Safe, frags[0].Safety)
	require.Equal(t, `COMMENT ON COLUMN "app"."users"."email" IS 'login identifier'`, frags[0].SQL)
}

func TestRender_ClearColumnComment(t *testing.T) {
	r := NewRenderer()
	tblID := catalog.NewID(catalog.KindTable, "app", "users")
	frags, err := r.Render(&plan.ColumnComment{Table: tblID, Column: "email", Text: ""})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Equal(t, `COMMENT ON COLUMN "app"."users"."email" IS NULL`, frags[0].SQL)
}

func TestRender_GrantAndRevoke(t *testing.T) {
	r := NewRenderer()
	g := catalog.Grant{Grantee: "reporting", Privilege: "SELECT", On: catalog.NewID(catalog.KindTable, "app", "users")}

	frags, err := r.Render(&plan.GrantOp{Grant: g})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Contains(t, frags[0].SQL, "GRANT SELECT")
	require.Contains(t, frags[0].SQL, `"reporting"`)

	frags, err = r.Render(&plan.RevokeOp{Grant: g})
	require.NoError(t, err)
	require.Len(t, frags, 1)
	require.Contains(t, frags[0].SQL, "REVOKE SELECT")
}
