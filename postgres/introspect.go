// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package postgres implements the Introspector (building a Catalog from a
// live connection) and the Renderer (turning an Operation into executable
// SQL) against PostgreSQL's system catalogs.
package postgres

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// Options configures an Introspector.
type Options struct {
	// Concurrent runs the per-kind queries on separate connections from
	// the pool, merging results in a deterministic order. Correctness
	// does not depend on this; it is a performance option.
	Concurrent bool
}

// Introspector builds a Catalog from a live PostgreSQL connection.
type Introspector struct {
	db   *sql.DB
	opts Options
}

// New returns an Introspector bound to db.
func New(db *sql.DB, opts Options) *Introspector {
	return &Introspector{db: db, opts: opts}
}

// oidIndex maps a pg_catalog oid to the ObjectId it was resolved to, kept
// per introspection run so dependency extraction can translate
// pg_depend's oid pairs.
type oidIndex map[uint32]catalog.ID

// Inspect runs every per-kind query and returns a fully populated,
// invariant-checked Catalog. Any query error is fatal; there is no
// partial catalog.
func (insp *Introspector) Inspect(ctx context.Context) (*catalog.Catalog, error) {
	version, err := fetchServerVersion(ctx, insp.db)
	if err != nil {
		return nil, err
	}
	types, err := loadTypeResolver(ctx, insp.db)
	if err != nil {
		return nil, err
	}

	fetchers := []func(context.Context) error{}
	var (
		schemas    []*catalog.Schema
		extensions []*catalog.Extension
		enums      []*catalog.Enum
		domains    []*catalog.Domain
		composites []*catalog.Composite
		ranges     []*catalog.Range
		sequences  []*catalog.Sequence
		tables     []*catalog.Table
		indexes    []*catalog.Index
		views      []*catalog.View
		functions  []*catalog.Function
		triggers   []*catalog.Trigger
		policies   []*catalog.Policy
		grants     []*catalog.Grant

		enumOIDs, domainOIDs, compositeOIDs, rangeOIDs oidIndex
		sequenceOIDs, tableOIDs, indexOIDs, viewOIDs    oidIndex
		functionOIDs                                    oidIndex
	)

	fetchers = append(fetchers,
		func(ctx context.Context) (err error) { schemas, err = insp.fetchSchemas(ctx); return },
		func(ctx context.Context) (err error) { extensions, err = insp.fetchExtensions(ctx); return },
		func(ctx context.Context) error {
			es, oids, err := insp.fetchEnums(ctx)
			enums, enumOIDs = es, oids
			return err
		},
		func(ctx context.Context) error {
			ds, oids, err := insp.fetchDomains(ctx, types)
			domains, domainOIDs = ds, oids
			return err
		},
		func(ctx context.Context) error {
			cs, oids, err := insp.fetchComposites(ctx, types)
			composites, compositeOIDs = cs, oids
			return err
		},
		func(ctx context.Context) error {
			rs, oids, err := insp.fetchRanges(ctx, types)
			ranges, rangeOIDs = rs, oids
			return err
		},
		func(ctx context.Context) error {
			ss, oids, err := insp.fetchSequences(ctx)
			sequences, sequenceOIDs = ss, oids
			return err
		},
		func(ctx context.Context) error {
			ts, oids, err := insp.fetchTables(ctx, types)
			tables, tableOIDs = ts, oids
			return err
		},
		func(ctx context.Context) error {
			is, oids, err := insp.fetchIndexes(ctx)
			indexes, indexOIDs = is, oids
			return err
		},
		func(ctx context.Context) error {
			vs, oids, err := insp.fetchViews(ctx, version)
			views, viewOIDs = vs, oids
			return err
		},
		func(ctx context.Context) error {
			fs, oids, err := insp.fetchFunctions(ctx, types)
			functions, functionOIDs = fs, oids
			return err
		},
		func(ctx context.Context) (err error) { triggers, err = insp.fetchTriggers(ctx); return },
		func(ctx context.Context) (err error) { policies, err = insp.fetchPolicies(ctx); return },
		func(ctx context.Context) (err error) { grants, err = insp.fetchGrants(ctx); return },
	)

	if insp.opts.Concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for _, f := range fetchers {
			f := f
			g.Go(func() error { return f(gctx) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, f := range fetchers {
			if err := f(ctx); err != nil {
				return nil, err
			}
		}
	}

	c := catalog.New()
	for _, s := range schemas {
		c.Add(s)
	}
	for _, e := range extensions {
		c.Add(e)
	}
	for _, e := range enums {
		c.Add(e)
	}
	for _, d := range domains {
		c.Add(d)
	}
	for _, cp := range composites {
		c.Add(cp)
	}
	for _, r := range ranges {
		c.Add(r)
	}
	for _, s := range sequences {
		c.Add(s)
	}
	for _, t := range tables {
		c.Add(t)
	}
	for _, i := range indexes {
		c.Add(i)
	}
	for _, v := range views {
		c.Add(v)
	}
	for _, f := range functions {
		c.Add(f)
	}
	for _, t := range triggers {
		c.Add(t)
	}
	for _, p := range policies {
		c.Add(p)
	}
	for _, g := range grants {
		c.Add(g)
	}

	relOIDs := oidIndex{}
	merge := func(src oidIndex) {
		for oid, id := range src {
			relOIDs[oid] = id
		}
	}
	merge(sequenceOIDs)
	merge(tableOIDs)
	merge(indexOIDs)
	merge(viewOIDs)

	typeOIDs := oidIndex{}
	merge2 := func(src oidIndex) {
		for oid, id := range src {
			typeOIDs[oid] = id
		}
	}
	merge2(enumOIDs)
	merge2(domainOIDs)
	merge2(compositeOIDs)
	merge2(rangeOIDs)

	deps := dependencyOIDs{relations: relOIDs, functions: functionOIDs, types: typeOIDs}
	if err := insp.extractDependencies(ctx, c, deps, sequences); err != nil {
		return nil, err
	}
	if err := c.CheckInvariants(); err != nil {
		return nil, plan.IntrospectionError("catalog", err)
	}
	return c, nil
}
