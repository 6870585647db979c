// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package pgmt is the root facade: compute a plan between two catalogs,
// apply it to a live database, or emit it as a migration file. It wires
// together catalog, diff, cascade, postgres, and plan without adding any
// semantics of its own.
package pgmt

import (
	"context"
	"database/sql"
	"io"

	"github.com/go-pgmt/pgmt/cascade"
	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/diff"
	"github.com/go-pgmt/pgmt/loader"
	"github.com/go-pgmt/pgmt/migratefile"
	"github.com/go-pgmt/pgmt/plan"
	"github.com/go-pgmt/pgmt/postgres"
	"github.com/go-pgmt/pgmt/shadow"
)

// Options configures ComputePlan's diffing behavior. Zero value is the
// Differ's default (Strict column-order policy, no warnings sink).
type Options struct {
	Diff diff.Options
}

// Inspect introspects the live database behind db and returns its
// Catalog.
func Inspect(ctx context.Context, db *sql.DB, opts postgres.Options) (*catalog.Catalog, error) {
	return postgres.New(db, opts).Inspect(ctx)
}

// LoadDesired reads the schema files under root, provisions a shadow
// database per shadowCfg, applies the files in dependency order, adds
// the cross-file dependency edges loader.Augment derives from their
// `-- require:` directives, and returns the resulting Catalog. The
// shadow database is torn down before returning, on every exit path.
func LoadDesired(ctx context.Context, root string, shadowCfg shadow.Config) (*catalog.Catalog, error) {
	files, err := loader.Load(root)
	if err != nil {
		return nil, err
	}

	sh, err := shadow.Provision(ctx, shadowCfg)
	if err != nil {
		return nil, err
	}
	defer sh.Teardown(ctx)

	origin := make(map[catalog.ID]string, len(files))
	insp := postgres.New(sh.DB(), postgres.Options{})
	before := catalog.New()

	for _, f := range files {
		if err := sh.Apply(ctx, f.Text); err != nil {
			return nil, err
		}
		after, err := insp.Inspect(ctx)
		if err != nil {
			return nil, err
		}
		markOrigins(origin, before, after, f.RelPath)
		before = after
	}

	loader.Augment(before, files, origin)
	return before, nil
}

// markOrigins records f as the origin file of every id present in after
// but not in before.
func markOrigins(origin map[catalog.ID]string, before, after *catalog.Catalog, f string) {
	for _, id := range after.IDs() {
		if _, existed := before.Object(id); existed {
			continue
		}
		if _, already := origin[id]; already {
			continue
		}
		origin[id] = f
	}
}

// ComputePlan diffs current against desired, expands the result for
// cascading effects, and orders the combined operation set into an
// executable sequence. It does not render SQL; callers render with a
// postgres.Renderer before emitting or applying.
func ComputePlan(current, desired *catalog.Catalog, opts Options) ([]plan.Operation, error) {
	d := diff.New(opts.Diff)
	ops, err := d.Diff(current, desired)
	if err != nil {
		return nil, err
	}
	ops, err = cascade.New().Expand(ops, current, desired)
	if err != nil {
		return nil, err
	}
	return plan.Order(ops, current, desired)
}

// RenderPlan renders every ordered operation into executable SQL
// fragments, preserving operation order.
func RenderPlan(ops []plan.Operation) ([]plan.RenderedSql, error) {
	r := postgres.NewRenderer()
	var out []plan.RenderedSql
	for _, op := range ops {
		frags, err := r.Render(op)
		if err != nil {
			return nil, err
		}
		out = append(out, frags...)
	}
	return out, nil
}

// ApplyPlan executes sections against conn, tracking progress in tracker
// (typically a *migratefile.Tracker). version identifies the migration
// for tracking purposes.
func ApplyPlan(ctx context.Context, conn *sql.DB, version string, sections []plan.Section, mode plan.Mode, tracker plan.Tracker, log plan.Logger) (plan.Outcome, error) {
	return plan.ApplyPlan(ctx, conn, version, sections, mode, tracker, log)
}

// EmitPlan writes the rendered plan to sink as a single migration file,
// wrapping it in one implicit transactional section.
func EmitPlan(stmts []plan.RenderedSql, sink io.Writer) error {
	return plan.EmitPlan([]plan.Section{{Mode: plan.Transactional, Statements: stmts}}, sink)
}

// ParseMigration parses a previously emitted or hand-authored migration
// file's text into its sections, honoring `-- pgmt:section ...` markers.
func ParseMigration(text string) ([]plan.Section, error) {
	return migratefile.Parse(text)
}
