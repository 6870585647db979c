// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func (insp *Introspector) fetchSchemas(ctx context.Context) ([]*catalog.Schema, error) {
	rows, err := insp.db.QueryContext(ctx, schemasQuery)
	if err != nil {
		return nil, plan.IntrospectionError("schemas", err)
	}
	defer rows.Close()

	var out []*catalog.Schema
	for rows.Next() {
		var name string
		var comment sql.NullString
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, plan.IntrospectionError("schemas", err)
		}
		out = append(out, &catalog.Schema{SchemaName: name, Comment: nullStr(comment)})
	}
	if err := rows.Err(); err != nil {
		return nil, plan.IntrospectionError("schemas", err)
	}
	return out, nil
}

func (insp *Introspector) fetchExtensions(ctx context.Context) ([]*catalog.Extension, error) {
	rows, err := insp.db.QueryContext(ctx, extensionsQuery)
	if err != nil {
		return nil, plan.IntrospectionError("extensions", err)
	}
	defer rows.Close()

	var out []*catalog.Extension
	for rows.Next() {
		var name, schema, version string
		var comment sql.NullString
		if err := rows.Scan(&name, &schema, &version, &comment); err != nil {
			return nil, plan.IntrospectionError("extensions", err)
		}
		out = append(out, &catalog.Extension{ExtName: name, SchemaName: schema, Version: version, Comment: nullStr(comment)})
	}
	if err := rows.Err(); err != nil {
		return nil, plan.IntrospectionError("extensions", err)
	}
	return out, nil
}

func (insp *Introspector) fetchEnums(ctx context.Context) ([]*catalog.Enum, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, enumsQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("enums", err)
	}
	defer rows.Close()

	byName := map[catalog.QualifiedName]*catalog.Enum{}
	oids := oidIndex{}
	var order []catalog.QualifiedName
	for rows.Next() {
		var schema, name, label string
		var oid uint32
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &label, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("enums", err)
		}
		qn := catalog.QualifiedName{Schema: schema, Name: name}
		e, ok := byName[qn]
		if !ok {
			e = &catalog.Enum{QName: qn, Comment: nullStr(comment)}
			byName[qn] = e
			order = append(order, qn)
			oids[oid] = e.ID()
		}
		e.Values = append(e.Values, label)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("enums", err)
	}
	out := make([]*catalog.Enum, len(order))
	for i, qn := range order {
		out[i] = byName[qn]
	}
	return out, oids, nil
}

func (insp *Introspector) fetchDomains(ctx context.Context, types *typeResolver) ([]*catalog.Domain, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, domainsQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("domains", err)
	}
	defer rows.Close()

	byOID := map[uint32]*catalog.Domain{}
	oids := oidIndex{}
	var out []*catalog.Domain
	for rows.Next() {
		var schema, name string
		var oid, baseOID uint32
		var notNull bool
		var def, comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &baseOID, &notNull, &def, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("domains", err)
		}
		base, _ := types.Resolve(baseOID, 0)
		d := &catalog.Domain{
			QName:    catalog.QualifiedName{Schema: schema, Name: name},
			BaseType: base,
			NotNull:  notNull,
			Comment:  nullStr(comment),
		}
		if def.Valid {
			d.Default = &catalog.RawExpr{X: def.String}
		}
		byOID[oid] = d
		oids[oid] = d.ID()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("domains", err)
	}

	crows, err := insp.db.QueryContext(ctx, domainChecksQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("domain_checks", err)
	}
	defer crows.Close()
	for crows.Next() {
		var conrelid, typeOID uint32
		var name, def string
		if err := crows.Scan(&conrelid, &typeOID, &name, &def); err != nil {
			return nil, nil, plan.IntrospectionError("domain_checks", err)
		}
		if d, ok := byOID[typeOID]; ok {
			d.Checks = append(d.Checks, catalog.CheckConstraint{Name: name, Expr: def})
		}
	}
	if err := crows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("domain_checks", err)
	}
	return out, oids, nil
}

func (insp *Introspector) fetchComposites(ctx context.Context, types *typeResolver) ([]*catalog.Composite, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, compositesQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("composites", err)
	}
	defer rows.Close()

	byOID := map[uint32]*catalog.Composite{}
	oids := oidIndex{}
	var out []*catalog.Composite
	for rows.Next() {
		var schema, name string
		var oid uint32
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("composites", err)
		}
		cp := &catalog.Composite{QName: catalog.QualifiedName{Schema: schema, Name: name}, Comment: nullStr(comment)}
		byOID[oid] = cp
		oids[oid] = cp.ID()
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("composites", err)
	}
	if len(byOID) == 0 {
		return out, oids, nil
	}

	arows, err := insp.db.QueryContext(ctx, compositeAttrsQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("composite_attrs", err)
	}
	defer arows.Close()
	for arows.Next() {
		var relid, typOID uint32
		var name string
		var num, ndims int
		if err := arows.Scan(&relid, &name, &num, &typOID, &ndims); err != nil {
			return nil, nil, plan.IntrospectionError("composite_attrs", err)
		}
		cp, ok := byOID[relid]
		if !ok {
			continue
		}
		t, resolvedDims := types.Resolve(typOID, ndims)
		cp.Attributes = append(cp.Attributes, catalog.CompositeAttr{Name: name, Type: t, NDims: resolvedDims})
	}
	if err := arows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("composite_attrs", err)
	}
	return out, oids, nil
}

func (insp *Introspector) fetchRanges(ctx context.Context, types *typeResolver) ([]*catalog.Range, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, rangesQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("ranges", err)
	}
	defer rows.Close()

	oids := oidIndex{}
	var out []*catalog.Range
	for rows.Next() {
		var schema, name string
		var oid, subOID uint32
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &subOID, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("ranges", err)
		}
		sub, _ := types.Resolve(subOID, 0)
		r := &catalog.Range{QName: catalog.QualifiedName{Schema: schema, Name: name}, Subtype: sub, Comment: nullStr(comment)}
		oids[oid] = r.ID()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("ranges", err)
	}
	return out, oids, nil
}

func (insp *Introspector) fetchSequences(ctx context.Context) ([]*catalog.Sequence, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, sequencesQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("sequences", err)
	}
	defer rows.Close()

	oids := oidIndex{}
	var out []*catalog.Sequence
	for rows.Next() {
		var schema, name, ownerTable, ownerColumn string
		var oid uint32
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &ownerTable, &ownerColumn, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("sequences", err)
		}
		s := &catalog.Sequence{
			QName:       catalog.QualifiedName{Schema: schema, Name: name},
			OwnerTable:  ownerTable,
			OwnerColumn: ownerColumn,
			Comment:     nullStr(comment),
		}
		oids[oid] = s.ID()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("sequences", err)
	}
	return out, oids, nil
}

func (insp *Introspector) fetchTables(ctx context.Context, types *typeResolver) ([]*catalog.Table, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("tables", err)
	}
	defer rows.Close()

	byOID := map[uint32]*catalog.Table{}
	oids := oidIndex{}
	var out []*catalog.Table
	for rows.Next() {
		var schema, name string
		var oid uint32
		var rowSecurity bool
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &rowSecurity, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("tables", err)
		}
		t := &catalog.Table{
			QName:          catalog.QualifiedName{Schema: schema, Name: name},
			RowSecurity:    rowSecurity,
			Comment:        nullStr(comment),
			ColumnComments: map[string]string{},
		}
		byOID[oid] = t
		oids[oid] = t.ID()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("tables", err)
	}
	if len(byOID) == 0 {
		return out, oids, nil
	}

	if err := insp.loadColumns(ctx, byOID, types); err != nil {
		return nil, nil, err
	}
	if err := insp.loadPrimaryKeys(ctx, byOID); err != nil {
		return nil, nil, err
	}
	if err := insp.loadUniqueConstraints(ctx, byOID); err != nil {
		return nil, nil, err
	}
	if err := insp.loadCheckConstraints(ctx, byOID); err != nil {
		return nil, nil, err
	}
	if err := insp.loadExclusionConstraints(ctx, byOID); err != nil {
		return nil, nil, err
	}
	if err := insp.loadForeignKeys(ctx, byOID, oids); err != nil {
		return nil, nil, err
	}
	return out, oids, nil
}

func (insp *Introspector) loadColumns(ctx context.Context, byOID map[uint32]*catalog.Table, types *typeResolver) error {
	rows, err := insp.db.QueryContext(ctx, columnsQuery)
	if err != nil {
		return plan.IntrospectionError("columns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var relid, typOID uint32
		var name string
		var num, ndims int
		var notNull bool
		var def sql.NullString
		var generated string
		var comment sql.NullString
		if err := rows.Scan(&relid, &name, &num, &typOID, &ndims, &notNull, &def, &generated, &comment); err != nil {
			return plan.IntrospectionError("columns", err)
		}
		t, ok := byOID[relid]
		if !ok {
			continue
		}
		typ, resolvedDims := types.Resolve(typOID, ndims)
		col := catalog.Column{
			Name:     name,
			Type:     typ,
			NDims:    resolvedDims,
			Nullable: !notNull,
			Position: num,
		}
		if generated != "" {
			col.Generated = nullStr(def)
		} else if def.Valid {
			col.Default = &catalog.RawExpr{X: def.String}
		}
		t.Columns = append(t.Columns, col)
		if comment.Valid {
			t.ColumnComments[name] = comment.String
		}
	}
	if err := rows.Err(); err != nil {
		return plan.IntrospectionError("columns", err)
	}
	return nil
}

// parseConkey decodes a pg_constraint.conkey int2vector (formatted by the
// driver as "{1,2}") into 1-based attribute numbers.
func parseConkey(raw string) []int {
	raw = strings.Trim(raw, "{}")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func columnNames(t *catalog.Table, attnums []int) []string {
	byNum := map[int]string{}
	for _, c := range t.Columns {
		byNum[c.Position] = c.Name
	}
	out := make([]string, 0, len(attnums))
	for _, n := range attnums {
		out = append(out, byNum[n])
	}
	return out
}

func (insp *Introspector) loadPrimaryKeys(ctx context.Context, byOID map[uint32]*catalog.Table) error {
	rows, err := insp.db.QueryContext(ctx, primaryKeysQuery)
	if err != nil {
		return plan.IntrospectionError("primary_keys", err)
	}
	defer rows.Close()
	for rows.Next() {
		var relid uint32
		var name, conkey string
		if err := rows.Scan(&relid, &name, &conkey); err != nil {
			return plan.IntrospectionError("primary_keys", err)
		}
		t, ok := byOID[relid]
		if !ok {
			continue
		}
		t.PrimaryKey = &catalog.PrimaryKey{Name: name, Columns: columnNames(t, parseConkey(conkey))}
	}
	if err := rows.Err(); err != nil {
		return plan.IntrospectionError("primary_keys", err)
	}
	return nil
}

func (insp *Introspector) loadUniqueConstraints(ctx context.Context, byOID map[uint32]*catalog.Table) error {
	rows, err := insp.db.QueryContext(ctx, uniqueConstraintsQuery)
	if err != nil {
		return plan.IntrospectionError("unique_constraints", err)
	}
	defer rows.Close()
	for rows.Next() {
		var relid uint32
		var name, conkey string
		if err := rows.Scan(&relid, &name, &conkey); err != nil {
			return plan.IntrospectionError("unique_constraints", err)
		}
		t, ok := byOID[relid]
		if !ok {
			continue
		}
		t.UniqueKeys = append(t.UniqueKeys, catalog.UniqueConstraint{Name: name, Columns: columnNames(t, parseConkey(conkey))})
	}
	if err := rows.Err(); err != nil {
		return plan.IntrospectionError("unique_constraints", err)
	}
	return nil
}

func (insp *Introspector) loadCheckConstraints(ctx context.Context, byOID map[uint32]*catalog.Table) error {
	rows, err := insp.db.QueryContext(ctx, checkConstraintsQuery)
	if err != nil {
		return plan.IntrospectionError("check_constraints", err)
	}
	defer rows.Close()
	for rows.Next() {
		var relid uint32
		var name, def string
		if err := rows.Scan(&relid, &name, &def); err != nil {
			return plan.IntrospectionError("check_constraints", err)
		}
		t, ok := byOID[relid]
		if !ok {
			continue
		}
		t.Checks = append(t.Checks, catalog.CheckConstraint{Name: name, Expr: def})
	}
	if err := rows.Err(); err != nil {
		return plan.IntrospectionError("check_constraints", err)
	}
	return nil
}

func (insp *Introspector) loadExclusionConstraints(ctx context.Context, byOID map[uint32]*catalog.Table) error {
	rows, err := insp.db.QueryContext(ctx, exclusionConstraintsQuery)
	if err != nil {
		return plan.IntrospectionError("exclusion_constraints", err)
	}
	defer rows.Close()
	for rows.Next() {
		var relid uint32
		var name, method, def string
		if err := rows.Scan(&relid, &name, &method, &def); err != nil {
			return plan.IntrospectionError("exclusion_constraints", err)
		}
		t, ok := byOID[relid]
		if !ok {
			continue
		}
		t.Exclusions = append(t.Exclusions, catalog.ExclusionConstraint{Name: name, Method: method, Def: def})
	}
	if err := rows.Err(); err != nil {
		return plan.IntrospectionError("exclusion_constraints", err)
	}
	return nil
}

func (insp *Introspector) loadForeignKeys(ctx context.Context, byOID map[uint32]*catalog.Table, oids oidIndex) error {
	rows, err := insp.db.QueryContext(ctx, foreignKeysQuery)
	if err != nil {
		return plan.IntrospectionError("foreign_keys", err)
	}
	defer rows.Close()
	for rows.Next() {
		var relid, refrelid uint32
		var name, conkey, confkey string
		var onUpdate, onDelete string
		if err := rows.Scan(&relid, &name, &conkey, &refrelid, &confkey, &onUpdate, &onDelete); err != nil {
			return plan.IntrospectionError("foreign_keys", err)
		}
		t, ok := byOID[relid]
		if !ok {
			continue
		}
		refID, ok := oids[refrelid]
		if !ok {
			continue
		}
		reft, ok := byOID[refrelid]
		var refCols []string
		if ok {
			refCols = columnNames(reft, parseConkey(confkey))
		}
		t.ForeignKeys = append(t.ForeignKeys, catalog.ForeignKey{
			Name:       name,
			Columns:    columnNames(t, parseConkey(conkey)),
			RefSchema:  refID.Name.Schema,
			RefTable:   refID.Name.Name,
			RefColumns: refCols,
			OnUpdate:   refActionText(onUpdate),
			OnDelete:   refActionText(onDelete),
		})
	}
	if err := rows.Err(); err != nil {
		return plan.IntrospectionError("foreign_keys", err)
	}
	return nil
}

// refActionText translates pg_constraint's single-letter confupdtype /
// confdeltype code into the clause text a renderer would emit.
func refActionText(code string) string {
	switch code {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

func (insp *Introspector) fetchIndexes(ctx context.Context) ([]*catalog.Index, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, indexesQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("indexes", err)
	}
	defer rows.Close()

	oids := oidIndex{}
	var out []*catalog.Index
	for rows.Next() {
		var schema, name, ownerTable string
		var oid uint32
		var unique bool
		var def string
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &ownerTable, &unique, &def, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("indexes", err)
		}
		ix := &catalog.Index{
			QName:      catalog.QualifiedName{Schema: schema, Name: name},
			OwnerTable: ownerTable,
			Unique:     unique,
			Def:        def,
			Comment:    nullStr(comment),
		}
		oids[oid] = ix.ID()
		out = append(out, ix)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("indexes", err)
	}
	return out, oids, nil
}

func (insp *Introspector) fetchViews(ctx context.Context, version serverVersion) ([]*catalog.View, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, viewsQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("views", err)
	}
	defer rows.Close()

	byOID := map[uint32]*catalog.View{}
	oids := oidIndex{}
	var out []*catalog.View
	for rows.Next() {
		var schema, name, relkind, def string
		var oid uint32
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &relkind, &def, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("views", err)
		}
		v := &catalog.View{
			QName:        catalog.QualifiedName{Schema: schema, Name: name},
			Def:          strings.TrimSuffix(strings.TrimSpace(def), ";"),
			Materialized: relkind == "m",
			Comment:      nullStr(comment),
		}
		byOID[oid] = v
		oids[oid] = v.ID()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("views", err)
	}
	if len(byOID) == 0 {
		return out, oids, nil
	}

	if version.atLeast(15) {
		srows, err := insp.db.QueryContext(ctx, viewSecurityInvokerQuery)
		if err != nil {
			return nil, nil, plan.IntrospectionError("view_security_invoker", err)
		}
		defer srows.Close()
		for srows.Next() {
			var oid uint32
			var invoker bool
			if err := srows.Scan(&oid, &invoker); err != nil {
				return nil, nil, plan.IntrospectionError("view_security_invoker", err)
			}
			if v, ok := byOID[oid]; ok {
				v.SecurityInvoke = invoker
			}
		}
		if err := srows.Err(); err != nil {
			return nil, nil, plan.IntrospectionError("view_security_invoker", err)
		}
	}

	crows, err := insp.db.QueryContext(ctx, viewColumnsQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("view_columns", err)
	}
	defer crows.Close()
	for crows.Next() {
		var relid uint32
		var name string
		if err := crows.Scan(&relid, &name); err != nil {
			return nil, nil, plan.IntrospectionError("view_columns", err)
		}
		if v, ok := byOID[relid]; ok {
			v.Columns = append(v.Columns, name)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("view_columns", err)
	}
	return out, oids, nil
}

func (insp *Introspector) fetchFunctions(ctx context.Context, types *typeResolver) ([]*catalog.Function, oidIndex, error) {
	rows, err := insp.db.QueryContext(ctx, functionsQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("functions", err)
	}
	defer rows.Close()

	byOID := map[uint32]*catalog.Function{}
	oids := oidIndex{}
	var out []*catalog.Function
	for rows.Next() {
		var schema, name, prokind string
		var oid, rettypeOID uint32
		var retset, strict, secdef bool
		var volatility, parallel, lang, body string
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &oid, &prokind, &rettypeOID, &retset,
			&volatility, &strict, &secdef, &parallel, &lang, &body, &comment); err != nil {
			return nil, nil, plan.IntrospectionError("functions", err)
		}
		f := &catalog.Function{
			QName:      catalog.QualifiedName{Schema: schema, Name: name},
			FuncKind:   funcKindOf(prokind),
			Language:   lang,
			Volatility: volatilityText(volatility),
			Strict:     strict,
			Security:   securityText(secdef),
			Parallel:   parallelText(parallel),
			Body:       body,
			Comment:    nullStr(comment),
		}
		if !retset && prokind != "p" {
			ret, ndims := types.Resolve(rettypeOID, 0)
			if ndims > 0 {
				ret = &catalog.ArrayType{Elem: ret}
			}
			f.Returns = ret
		}
		byOID[oid] = f
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("functions", err)
	}
	if len(byOID) == 0 {
		return out, nil, nil
	}

	arows, err := insp.db.QueryContext(ctx, functionArgsQuery)
	if err != nil {
		return nil, nil, plan.IntrospectionError("function_args", err)
	}
	defer arows.Close()
	for arows.Next() {
		var oid, typOID uint32
		var name, mode string
		if err := arows.Scan(&oid, &name, &typOID, &mode); err != nil {
			return nil, nil, plan.IntrospectionError("function_args", err)
		}
		f, ok := byOID[oid]
		if !ok {
			continue
		}
		t, ndims := types.Resolve(typOID, 0)
		if ndims > 0 {
			t = &catalog.ArrayType{Elem: t}
		}
		f.Params = append(f.Params, catalog.Param{Name: name, Type: t, Mode: argModeText(mode)})
	}
	if err := arows.Err(); err != nil {
		return nil, nil, plan.IntrospectionError("function_args", err)
	}
	// Function identity includes its parameter signature, so the oid
	// index can only be built once every argument row is attached.
	for oid, f := range byOID {
		oids[oid] = f.ID()
	}
	return out, oids, nil
}

func funcKindOf(prokind string) catalog.Kind {
	switch prokind {
	case "p":
		return catalog.KindProcedure
	case "a":
		return catalog.KindAggregate
	default:
		return catalog.KindFunction
	}
}

func volatilityText(v string) string {
	switch v {
	case "i":
		return "IMMUTABLE"
	case "s":
		return "STABLE"
	default:
		return "VOLATILE"
	}
}

func securityText(secdef bool) string {
	if secdef {
		return "DEFINER"
	}
	return "INVOKER"
}

func parallelText(p string) string {
	switch p {
	case "s":
		return "SAFE"
	case "r":
		return "RESTRICTED"
	default:
		return "UNSAFE"
	}
}

func argModeText(mode string) string {
	switch mode {
	case "o":
		return "OUT"
	case "b":
		return "INOUT"
	case "v":
		return "VARIADIC"
	default:
		return "IN"
	}
}

func (insp *Introspector) fetchTriggers(ctx context.Context) ([]*catalog.Trigger, error) {
	rows, err := insp.db.QueryContext(ctx, triggersQuery)
	if err != nil {
		return nil, plan.IntrospectionError("triggers", err)
	}
	defer rows.Close()

	var out []*catalog.Trigger
	for rows.Next() {
		var schema, name, table, def string
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &table, &def, &comment); err != nil {
			return nil, plan.IntrospectionError("triggers", err)
		}
		out = append(out, &catalog.Trigger{
			Name:    schema + "." + table + "." + name,
			OnTable: schema + "." + table,
			Def:     def,
			Comment: nullStr(comment),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, plan.IntrospectionError("triggers", err)
	}
	return out, nil
}

func (insp *Introspector) fetchPolicies(ctx context.Context) ([]*catalog.Policy, error) {
	rows, err := insp.db.QueryContext(ctx, policiesQuery)
	if err != nil {
		return nil, plan.IntrospectionError("policies", err)
	}
	defer rows.Close()

	var out []*catalog.Policy
	for rows.Next() {
		var schema, name, table string
		var roles stringArray
		var using, withCheck sql.NullString
		if err := rows.Scan(&schema, &name, &table, &roles, &using, &withCheck); err != nil {
			return nil, plan.IntrospectionError("policies", err)
		}
		out = append(out, &catalog.Policy{
			Name:      schema + "." + table + "." + name,
			OnTable:   schema + "." + table,
			Roles:     []string(roles),
			Using:     nullStr(using),
			WithCheck: nullStr(withCheck),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, plan.IntrospectionError("policies", err)
	}
	return out, nil
}

func (insp *Introspector) fetchGrants(ctx context.Context) ([]*catalog.Grant, error) {
	rows, err := insp.db.QueryContext(ctx, grantsQuery)
	if err != nil {
		return nil, plan.IntrospectionError("grants", err)
	}
	defer rows.Close()

	type key struct {
		on        catalog.ID
		grantee   string
		privilege string
	}
	seen := map[key]*catalog.Grant{}
	var order []key
	for rows.Next() {
		var schema, table, grantee, privilege, isGrantable string
		if err := rows.Scan(&schema, &table, &grantee, &privilege, &isGrantable); err != nil {
			return nil, plan.IntrospectionError("grants", err)
		}
		on := catalog.NewID(catalog.KindTable, schema, table)
		k := key{on: on, grantee: grantee, privilege: privilege}
		if _, ok := seen[k]; ok {
			continue
		}
		g := &catalog.Grant{Grantee: grantee, Privilege: privilege, On: on, WithGrant: isGrantable == "YES"}
		seen[k] = g
		order = append(order, k)
	}
	if err := rows.Err(); err != nil {
		return nil, plan.IntrospectionError("grants", err)
	}
	out := make([]*catalog.Grant, len(order))
	for i, k := range order {
		out[i] = seen[k]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID().Less(out[j].ID()) })
	return out, nil
}

// stringArray scans a PostgreSQL text[] literal ("{a,b,c}") into a Go
// slice without pulling in a full array-decoding dependency.
type stringArray []string

func (a *stringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return nil
	}
	raw = strings.Trim(raw, "{}")
	if raw == "" {
		*a = nil
		return nil
	}
	*a = strings.Split(raw, ",")
	return nil
}
