// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"context"
	"database/sql"

	"github.com/go-pgmt/pgmt/plan"
)

// serverVersion is PostgreSQL's server_version_num, e.g. 160003 for
// 16.3. Only the major version (the value divided by 10000) gates
// feature queries.
type serverVersion int

func (v serverVersion) major() int { return int(v) / 10000 }

func (v serverVersion) atLeast(major int) bool { return v.major() >= major }

func fetchServerVersion(ctx context.Context, db *sql.DB) (serverVersion, error) {
	var raw string
	if err := db.QueryRowContext(ctx, versionQuery).Scan(&raw); err != nil {
		return 0, plan.IntrospectionError("server_version", err)
	}
	var v int
	for _, c := range raw {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int(c-'0')
	}
	return serverVersion(v), nil
}
