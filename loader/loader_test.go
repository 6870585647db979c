// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

func writeFile(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
}

func TestLoad_LexicographicBaseline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.sql", "CREATE TABLE b (id int);")
	writeFile(t, dir, "a.sql", "CREATE TABLE a (id int);")

	files, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.sql", files[0].RelPath)
	require.Equal(t, "b.sql", files[1].RelPath)
}

func TestLoad_RequireOverridesBaseline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", "-- require: z\nCREATE TABLE a (id int REFERENCES z(id));")
	writeFile(t, dir, "z.sql", "CREATE TABLE z (id int);")

	files, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "z.sql", files[0].RelPath)
	require.Equal(t, "a.sql", files[1].RelPath)
}

func TestLoad_RequireWithSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", "-- require: z.sql\nselect 1;")
	writeFile(t, dir, "z.sql", "select 1;")

	files, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"z.sql", "a.sql"}, []string{files[0].RelPath, files[1].RelPath})
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", "-- require: missing\nselect 1;")

	_, err := Load(dir)
	require.Error(t, err)
	var perr *plan.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, plan.KindInvalidInput, perr.Kind)
}

func TestLoad_Cycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", "-- require: b\nselect 1;")
	writeFile(t, dir, "b.sql", "-- require: a\nselect 1;")

	_, err := Load(dir)
	require.Error(t, err)
	var perr *plan.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, plan.KindCycle, perr.Kind)
}

func TestAugment_AddsCrossFileDependency(t *testing.T) {
	c := catalog.New()
	tableA := &catalog.Table{QName: catalog.QualifiedName{Schema: "public", Name: "a"}}
	tableZ := &catalog.Table{QName: catalog.QualifiedName{Schema: "public", Name: "z"}}
	c.Add(tableA)
	c.Add(tableZ)

	files := []File{
		{RelPath: "a.sql", Requires: []string{"z.sql"}},
		{RelPath: "z.sql"},
	}
	origin := map[catalog.ID]string{
		tableA.ID(): "a.sql",
		tableZ.ID(): "z.sql",
	}
	Augment(c, files, origin)

	deps := c.Deps(tableA.ID())
	require.Contains(t, deps, tableZ.ID())
}
