// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"context"
	"database/sql"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// typeInfo is one row of pg_type, enough to resolve a column, parameter,
// or attribute's declared type to a catalog.Type.
type typeInfo struct {
	oid      uint32
	schema   string
	name     string
	typelem  uint32 // non-zero for true arrays
	category string
}

// typeResolver maps a pg_type oid to a catalog.Type, following typelem to
// resolve an array type to its element rather than trusting the
// leading-underscore naming convention PostgreSQL happens to use for its
// own array types.
type typeResolver struct {
	byOID map[uint32]typeInfo
}

const typesQuery = `
SELECT t.oid, n.nspname, t.typname, t.typelem, t.typcategory
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
ORDER BY t.oid`

func loadTypeResolver(ctx context.Context, db *sql.DB) (*typeResolver, error) {
	rows, err := db.QueryContext(ctx, typesQuery)
	if err != nil {
		return nil, plan.IntrospectionError("types", err)
	}
	defer rows.Close()

	r := &typeResolver{byOID: make(map[uint32]typeInfo)}
	for rows.Next() {
		var info typeInfo
		if err := rows.Scan(&info.oid, &info.schema, &info.name, &info.typelem, &info.category); err != nil {
			return nil, plan.IntrospectionError("types", err)
		}
		r.byOID[info.oid] = info
	}
	if err := rows.Err(); err != nil {
		return nil, plan.IntrospectionError("types", err)
	}
	return r, nil
}

// Resolve returns the catalog.Type for oid plus the array dimensions to
// carry alongside the column/parameter/attribute that uses it. A
// genuine array (typcategory 'A' with a non-zero typelem) resolves to the
// element's NamedType with the dimensions raised to at least 1; it is not
// wrapped in an ArrayType here (the function fetcher wraps parameter and
// return types itself). Everything else, including a scalar whose own
// name happens to start with "_", resolves to NamedType with 0 dimensions.
func (r *typeResolver) Resolve(oid uint32, ndims int) (catalog.Type, int) {
	info, ok := r.byOID[oid]
	if !ok {
		return &catalog.UnsupportedType{Raw: "unknown"}, 0
	}
	if info.category == "A" && info.typelem != 0 {
		elem, ok := r.byOID[info.typelem]
		if ok {
			if ndims < 1 {
				ndims = 1
			}
			return r.named(elem), ndims
		}
	}
	return r.named(info), 0
}

func (r *typeResolver) named(info typeInfo) catalog.Type {
	schema := info.schema
	if schema == "pg_catalog" {
		schema = ""
	}
	return &catalog.NamedType{Schema: schema, Name: info.name}
}
