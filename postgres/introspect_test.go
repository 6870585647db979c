// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/catalog"
)

// expectRows registers an expectation for query returning rows, in the
// fixed sequential order Inspect issues its fetchers.
func expectRows(mock sqlmock.Sqlmock, query, rows string) {
	mock.ExpectQuery(escapeQuery(query)).WillReturnRows(rowsFromTable(rows))
}

func TestInspect_MinimalSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(escapeQuery(versionQuery)).WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("160003"))
	expectRows(mock, typesQuery, `
	oid | nspname    | typname | typelem | typcategory
	23  | pg_catalog | int4    | 0       | N
	25  | pg_catalog | text    | 0       | S
	`)

	expectRows(mock, schemasQuery, `
	nspname | comment
	app     | nil
	`)
	expectRows(mock, extensionsQuery, `extname | nspname | extversion | comment`)
	expectRows(mock, enumsQuery, `nspname | typname | oid | enumlabel | comment`)
	expectRows(mock, domainsQuery, `nspname | typname | oid | typbasetype | typnotnull | default | comment`)
	expectRows(mock, domainChecksQuery, `conrelid | oid | conname | def`)
	expectRows(mock, compositesQuery, `nspname | typname | oid | comment`)
	expectRows(mock, rangesQuery, `nspname | typname | oid | rngsubtype | comment`)
	expectRows(mock, sequencesQuery, `
	nspname | relname    | oid | ot_relname | oa_attname | comment
	app     | users_id_s | 500 | users      | id         | nil
	`)
	expectRows(mock, tablesQuery, `
	nspname | relname | oid | relrowsecurity | comment
	app     | users   | 100 | false          | nil
	`)
	expectRows(mock, columnsQuery, `
	attrelid | attname | attnum | atttypid | attndims | attnotnull | default                           | attgenerated | comment
	100      | id      | 1      | 23       | 0        | true       | nextval('app.users_id_s'::regclass) |              | nil
	100      | name    | 2      | 25       | 0        | false      | nil                                | | nil
	`)
	expectRows(mock, primaryKeysQuery, `
	conrelid | conname    | conkey
	100      | users_pkey | {1}
	`)
	expectRows(mock, uniqueConstraintsQuery, `conrelid | conname | conkey`)
	expectRows(mock, checkConstraintsQuery, `conrelid | conname | def`)
	expectRows(mock, exclusionConstraintsQuery, `conrelid | conname | amname | def`)
	expectRows(mock, foreignKeysQuery, `conrelid | conname | conkey | confrelid | confkey | confupdtype | confdeltype`)
	expectRows(mock, indexesQuery, `nspname | relname | oid | t_relname | indisunique | def | comment`)
	expectRows(mock, viewsQuery, `nspname | relname | oid | relkind | def | comment`)
	expectRows(mock, functionsQuery, `nspname | proname | oid | prokind | prorettype | proretset | provolatile | proisstrict | prosecdef | proparallel | lanname | def | comment`)
	expectRows(mock, triggersQuery, `nspname | tgname | relname | def | comment`)
	expectRows(mock, policiesQuery, `nspname | polname | relname | roles | using | withcheck`)
	expectRows(mock, grantsQuery, `
	table_schema | table_name | grantee | privilege_type | is_grantable
	app          | users      | app_rw  | SELECT         | NO
	`)
	expectRows(mock, dependQuery, `classid | objid | refclassid | refobjid`)

	insp := New(db, Options{})
	c, err := insp.Inspect(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	_, ok := c.Object(catalog.NewID(catalog.KindSchema, "", "app"))
	require.True(t, ok)

	tblID := catalog.NewID(catalog.KindTable, "app", "users")
	obj, ok := c.Object(tblID)
	require.True(t, ok)
	tbl := obj.(*catalog.Table)
	require.Len(t, tbl.Columns, 2)
	require.Equal(t, "id", tbl.Columns[0].Name)
	require.False(t, tbl.Columns[0].Nullable)
	require.NotNil(t, tbl.PrimaryKey)
	require.Equal(t, []string{"id"}, tbl.PrimaryKey.Columns)

	seqID := catalog.NewID(catalog.KindSequence, "app", "users_id_s")
	seqObj, ok := c.Object(seqID)
	require.True(t, ok)
	seq := seqObj.(*catalog.Sequence)
	require.Equal(t, "users", seq.OwnerTable)
	deps := c.Deps(seqID)
	found := false
	for _, d := range deps {
		if d == tblID {
			found = true
		}
	}
	require.True(t, found, "sequence should depend on its owning table")
}
