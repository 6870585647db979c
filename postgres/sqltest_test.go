// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"database/sql/driver"
	"regexp"
	"strings"
	"unicode"

	"github.com/DATA-DOG/go-sqlmock"
)

// rowsFromTable converts a pipe-delimited ASCII table into sqlmock.Rows.
// Cells spelled "nil" or "NULL" scan as SQL NULL.
func rowsFromTable(table string) *sqlmock.Rows {
	var (
		nc    int
		rows  *sqlmock.Rows
		lines = strings.Split(table, "\n")
	)
	for _, line := range lines {
		line = strings.TrimFunc(line, unicode.IsSpace)
		if line == "" || strings.IndexAny(line, "+-") == 0 {
			continue
		}
		columns := strings.FieldsFunc(line, func(r rune) bool { return r == '|' })
		for i, c := range columns {
			columns[i] = strings.TrimSpace(c)
		}
		if rows == nil {
			nc = len(columns)
			rows = sqlmock.NewRows(columns)
			continue
		}
		values := make([]driver.Value, nc)
		for i, c := range columns {
			switch c {
			case "nil", "NULL":
			default:
				values[i] = c
			}
		}
		rows.AddRow(values...)
	}
	if rows == nil {
		rows = sqlmock.NewRows(nil)
	}
	return rows
}

// escapeQuery turns a multi-line query constant into the regexp sqlmock's
// ExpectQuery matches against.
func escapeQuery(query string) string {
	lines := strings.Split(query, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return regexp.QuoteMeta(strings.TrimSpace(strings.Join(lines, " ")))
}
