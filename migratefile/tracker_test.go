// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migratefile

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestTracker_HasAppliedCreatesTableOnFirstUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "pgmt_migrations"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM "pgmt_migrations" WHERE version = $1 AND section = $2)`)).
		WithArgs("20260101120000", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	tr := &Tracker{DB: db}
	ok, err := tr.HasApplied(context.Background(), "20260101120000", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTracker_MarkAppliedInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "pgmt_migrations"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "pgmt_migrations"`)).
		WithArgs("20260101120000", "swap", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tr := &Tracker{DB: db}
	err = tr.MarkApplied(context.Background(), "20260101120000", "swap")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTracker_CustomTableName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "schema_history"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM "schema_history" WHERE version = $1 AND section = $2)`)).
		WithArgs("v1", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	tr := &Tracker{DB: db, Table: "schema_history"}
	ok, err := tr.HasApplied(context.Background(), "v1", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemTracker_MarksAndReportsApplied(t *testing.T) {
	var tr MemTracker
	ctx := context.Background()

	ok, err := tr.HasApplied(ctx, "v1", "swap")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, tr.MarkApplied(ctx, "v1", "swap"))

	ok, err = tr.HasApplied(ctx, "v1", "swap")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tr.HasApplied(ctx, "v1", "reindex")
	require.NoError(t, err)
	require.False(t, ok, "a different section under the same version is tracked independently")
}
