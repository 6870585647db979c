// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"context"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// dependencyOIDs groups the oid->ObjectId maps dependency extraction needs
// to translate pg_depend's raw oid pairs, keyed by which system catalog
// the oid belongs to (dependQuery reports that catalog's name directly).
type dependencyOIDs struct {
	relations oidIndex // pg_class: tables, views, indexes, sequences
	functions oidIndex // pg_proc
	types     oidIndex // pg_type: enums, domains, composites, ranges
}

func (d dependencyOIDs) resolve(catalogName string, oid uint32) (catalog.ID, bool) {
	var idx oidIndex
	switch catalogName {
	case "pg_class":
		idx = d.relations
	case "pg_proc":
		idx = d.functions
	case "pg_type":
		idx = d.types
	default:
		return catalog.ID{}, false
	}
	id, ok := idx[oid]
	return id, ok
}

// extractDependencies populates current's forward dependency edges from
// pg_depend and from relationships PostgreSQL doesn't record there: a
// sequence owned by a column default, a policy's owning table, a
// trigger's owning table.
func (insp *Introspector) extractDependencies(ctx context.Context, c *catalog.Catalog, oids dependencyOIDs, sequences []*catalog.Sequence) error {
	rows, err := insp.db.QueryContext(ctx, dependQuery)
	if err != nil {
		return plan.IntrospectionError("depend", err)
	}
	defer rows.Close()

	for rows.Next() {
		var classid, refclassid string
		var objid, refobjid uint32
		if err := rows.Scan(&classid, &objid, &refclassid, &refobjid); err != nil {
			return plan.IntrospectionError("depend", err)
		}
		id, ok := oids.resolve(classid, objid)
		if !ok {
			continue
		}
		refID, ok := oids.resolve(refclassid, refobjid)
		if !ok || refID == id {
			continue
		}
		if _, ok := c.Object(id); !ok {
			continue
		}
		if _, ok := c.Object(refID); !ok {
			continue
		}
		c.DependsOn(id, refID)
	}
	if err := rows.Err(); err != nil {
		return plan.IntrospectionError("depend", err)
	}

	for _, s := range sequences {
		if s.OwnerTable == "" {
			continue
		}
		tableID := catalog.NewID(catalog.KindTable, s.QName.Schema, s.OwnerTable)
		if _, ok := c.Object(tableID); ok {
			c.DependsOn(s.ID(), tableID)
		}
	}

	for _, o := range c.Kind(catalog.KindPolicy) {
		p := o.(*catalog.Policy)
		if tableID, ok := tableIDFromQualified(c, p.OnTable); ok {
			c.DependsOn(p.ID(), tableID)
		}
	}
	for _, o := range c.Kind(catalog.KindTrigger) {
		t := o.(*catalog.Trigger)
		if tableID, ok := tableIDFromQualified(c, t.OnTable); ok {
			c.DependsOn(t.ID(), tableID)
		}
	}
	return nil
}

// tableIDFromQualified resolves a "schema.table" string (as stored on
// Policy.OnTable / Trigger.OnTable) against whichever of Table or View
// the catalog actually holds under that name.
func tableIDFromQualified(c *catalog.Catalog, qualified string) (catalog.ID, bool) {
	schema, name, ok := splitQualified(qualified)
	if !ok {
		return catalog.ID{}, false
	}
	if id := catalog.NewID(catalog.KindTable, schema, name); mustExist(c, id) {
		return id, true
	}
	if id := catalog.NewID(catalog.KindView, schema, name); mustExist(c, id) {
		return id, true
	}
	return catalog.ID{}, false
}

func mustExist(c *catalog.Catalog, id catalog.ID) bool {
	_, ok := c.Object(id)
	return ok
}

func splitQualified(s string) (schema, name string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
