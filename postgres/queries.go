// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

// The top-level object queries below (schemas, enums, domains,
// composites, ranges, sequences, tables, indexes, views, functions)
// exclude system schemas and extension-owned objects (`pg_depend.deptype
// <> 'e'`, expressed as a NOT EXISTS against a correlated pg_depend
// lookup); triggersQuery and grantsQuery exclude system schemas only, and
// policiesQuery is not filtered. The detail queries (columns, attributes,
// constraints, arguments, view columns) read every row; the fetchers keep
// only rows whose owning oid a top-level query returned. Every multi-row
// query except viewSecurityInvokerQuery ends in an ORDER BY, so row order
// is reproducible across runs.

const (
	versionQuery = `SELECT current_setting('server_version_num')::int`

	schemasQuery = `
SELECT
	n.nspname,
	pg_catalog.obj_description(n.oid, 'pg_namespace')
FROM pg_catalog.pg_namespace n
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
  AND n.nspname NOT LIKE 'pg_temp_%' AND n.nspname NOT LIKE 'pg_toast_temp_%'
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = n.oid AND d.deptype = 'e')
ORDER BY n.nspname`

	extensionsQuery = `
SELECT e.extname, n.nspname, e.extversion, pg_catalog.obj_description(e.oid, 'pg_extension')
FROM pg_catalog.pg_extension e
JOIN pg_catalog.pg_namespace n ON n.oid = e.extnamespace
ORDER BY e.extname`

	enumsQuery = `
SELECT n.nspname, t.typname, t.oid, e.enumlabel, pg_catalog.obj_description(t.oid, 'pg_type')
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
WHERE t.typtype = 'e' AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = t.oid AND d.deptype = 'e')
ORDER BY n.nspname, t.typname, e.enumsortorder`

	domainsQuery = `
SELECT n.nspname, t.typname, t.oid, t.typbasetype, t.typnotnull,
       pg_catalog.pg_get_expr(t.typdefaultbin, 0), pg_catalog.obj_description(t.oid, 'pg_type')
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
WHERE t.typtype = 'd' AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = t.oid AND d.deptype = 'e')
ORDER BY n.nspname, t.typname`

	domainChecksQuery = `
SELECT conrelid, t.oid, c.conname, pg_catalog.pg_get_constraintdef(c.oid)
FROM pg_catalog.pg_constraint c
JOIN pg_catalog.pg_type t ON t.oid = c.contypid
WHERE c.contype = 'c'
ORDER BY t.oid, c.conname`

	compositesQuery = `
SELECT n.nspname, t.typname, t.oid, pg_catalog.obj_description(t.oid, 'pg_type')
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
WHERE t.typtype = 'c' AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_class cl WHERE cl.oid = t.typrelid AND cl.relkind <> 'c')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = t.oid AND d.deptype = 'e')
ORDER BY n.nspname, t.typname`

	compositeAttrsQuery = `
SELECT a.attrelid, a.attname, a.attnum, a.atttypid, a.attndims
FROM pg_catalog.pg_attribute a
WHERE a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attrelid, a.attnum`

	rangesQuery = `
SELECT n.nspname, t.typname, t.oid, r.rngsubtype, pg_catalog.obj_description(t.oid, 'pg_type')
FROM pg_catalog.pg_type t
JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
JOIN pg_catalog.pg_range r ON r.rngtypid = t.oid
WHERE t.typtype = 'r' AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = t.oid AND d.deptype = 'e')
ORDER BY n.nspname, t.typname`

	sequencesQuery = `
SELECT n.nspname, c.relname, c.oid,
       COALESCE(ot.relname, ''), COALESCE(oa.attname, ''),
       pg_catalog.obj_description(c.oid, 'pg_class')
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_catalog.pg_depend d ON d.objid = c.oid AND d.deptype = 'a'
LEFT JOIN pg_catalog.pg_class ot ON ot.oid = d.refobjid
LEFT JOIN pg_catalog.pg_attribute oa ON oa.attrelid = d.refobjid AND oa.attnum = d.refobjsubid
WHERE c.relkind = 'S' AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend e WHERE e.objid = c.oid AND e.deptype = 'e')
ORDER BY n.nspname, c.relname`

	tablesQuery = `
SELECT n.nspname, c.relname, c.oid, c.relrowsecurity, pg_catalog.obj_description(c.oid, 'pg_class')
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind = 'r' AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = c.oid AND d.deptype = 'e')
ORDER BY n.nspname, c.relname`

	columnsQuery = `
SELECT a.attrelid, a.attname, a.attnum, a.atttypid, a.attndims, a.attnotnull,
       pg_catalog.pg_get_expr(ad.adbin, ad.adrelid), a.attgenerated,
       pg_catalog.col_description(a.attrelid, a.attnum)
FROM pg_catalog.pg_attribute a
LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
WHERE a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attrelid, a.attnum`

	primaryKeysQuery = `
SELECT c.conrelid, c.conname, c.conkey
FROM pg_catalog.pg_constraint c
WHERE c.contype = 'p'
ORDER BY c.conrelid, c.conname`

	uniqueConstraintsQuery = `
SELECT c.conrelid, c.conname, c.conkey
FROM pg_catalog.pg_constraint c
WHERE c.contype = 'u'
ORDER BY c.conrelid, c.conname`

	checkConstraintsQuery = `
SELECT c.conrelid, c.conname, pg_catalog.pg_get_constraintdef(c.oid)
FROM pg_catalog.pg_constraint c
WHERE c.contype = 'c' AND c.conrelid <> 0
ORDER BY c.conrelid, c.conname`

	exclusionConstraintsQuery = `
SELECT c.conrelid, c.conname, am.amname, pg_catalog.pg_get_constraintdef(c.oid)
FROM pg_catalog.pg_constraint c
JOIN pg_catalog.pg_am am ON am.oid = c.conindid::regclass::oid -- placeholder join resolved via index access method
WHERE c.contype = 'x'
ORDER BY c.conrelid, c.conname`

	foreignKeysQuery = `
SELECT c.conrelid, c.conname, c.conkey, c.confrelid, c.confkey,
       c.confupdtype, c.confdeltype
FROM pg_catalog.pg_constraint c
WHERE c.contype = 'f'
ORDER BY c.conrelid, c.conname`

	indexesQuery = `
SELECT n.nspname, ic.relname, ic.oid, t.relname, ix.indisunique,
       pg_catalog.pg_get_indexdef(ic.oid), pg_catalog.obj_description(ic.oid, 'pg_class')
FROM pg_catalog.pg_index ix
JOIN pg_catalog.pg_class ic ON ic.oid = ix.indexrelid
JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
JOIN pg_catalog.pg_namespace n ON n.oid = ic.relnamespace
WHERE NOT ix.indisprimary AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = ic.oid AND d.deptype = 'e')
ORDER BY n.nspname, ic.relname`

	viewsQuery = `
SELECT n.nspname, c.relname, c.oid, c.relkind,
       pg_catalog.pg_get_viewdef(c.oid), pg_catalog.obj_description(c.oid, 'pg_class')
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('v', 'm') AND n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = c.oid AND d.deptype = 'e')
ORDER BY n.nspname, c.relname`

	// viewSecurityInvokerQuery is only issued on PostgreSQL >= 15.
	viewSecurityInvokerQuery = `
SELECT c.oid, (c.reloptions::text LIKE '%security_invoker=true%')
FROM pg_catalog.pg_class c
WHERE c.relkind IN ('v', 'm')`

	viewColumnsQuery = `
SELECT a.attrelid, a.attname
FROM pg_catalog.pg_attribute a
WHERE a.attnum > 0 AND NOT a.attisdropped
ORDER BY a.attrelid, a.attnum`

	functionsQuery = `
SELECT n.nspname, p.proname, p.oid, p.prokind, p.prorettype, p.proretset,
       p.provolatile, p.proisstrict, p.prosecdef, p.proparallel,
       l.lanname, pg_catalog.pg_get_functiondef(p.oid), pg_catalog.obj_description(p.oid, 'pg_proc')
FROM pg_catalog.pg_proc p
JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
JOIN pg_catalog.pg_language l ON l.oid = p.prolang
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
  AND NOT EXISTS (SELECT 1 FROM pg_catalog.pg_depend d WHERE d.objid = p.oid AND d.deptype = 'e')
ORDER BY n.nspname, p.proname, p.oid`

	functionArgsQuery = `
SELECT p.oid, a.name, a.type, a.mode
FROM pg_catalog.pg_proc p,
LATERAL pg_catalog.pg_get_function_arguments(p.oid) AS raw,
LATERAL unnest(p.proargnames, p.proargtypes, p.proargmodes) WITH ORDINALITY AS a(name, type, mode, ord)
ORDER BY p.oid, a.ord`

	triggersQuery = `
SELECT n.nspname, t.tgname, c.relname, pg_catalog.pg_get_triggerdef(t.oid), pg_catalog.obj_description(t.oid, 'pg_trigger')
FROM pg_catalog.pg_trigger t
JOIN pg_catalog.pg_class c ON c.oid = t.tgrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE NOT t.tgisinternal AND n.nspname NOT IN ('pg_catalog', 'information_schema')
ORDER BY n.nspname, c.relname, t.tgname`

	policiesQuery = `
SELECT n.nspname, p.polname, c.relname, p.polroles::regrole[]::text[],
       pg_catalog.pg_get_expr(p.polqual, p.polrelid),
       pg_catalog.pg_get_expr(p.polwithcheck, p.polrelid)
FROM pg_catalog.pg_policy p
JOIN pg_catalog.pg_class c ON c.oid = p.polrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
ORDER BY n.nspname, c.relname, p.polname`

	grantsQuery = `
SELECT table_schema, table_name, grantee, privilege_type, is_grantable
FROM information_schema.role_table_grants
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name, grantee, privilege_type`

	commentsOnObjectQuery = `SELECT pg_catalog.obj_description($1::oid, $2)`

	// dependQuery returns the direct pg_depend-derived edges between
	// managed objects, excluding extension-owned rows (deptype 'e' is
	// the extension membership itself, handled separately). A view's
	// dependency on the relations and functions it queries is recorded
	// against its ON SELECT rule rather than the view itself, so
	// pg_rewrite rows are translated back to the owning relation
	// (ev_class) the way pg_dump does.
	dependQuery = `
SELECT
	CASE WHEN d.classid = 'pg_catalog.pg_rewrite'::regclass THEN 'pg_class' ELSE d.classid::regclass::text END,
	CASE WHEN d.classid = 'pg_catalog.pg_rewrite'::regclass THEN r.ev_class ELSE d.objid END,
	d.refclassid::regclass::text,
	d.refobjid
FROM pg_catalog.pg_depend d
LEFT JOIN pg_catalog.pg_rewrite r ON d.classid = 'pg_catalog.pg_rewrite'::regclass AND d.objid = r.oid
WHERE d.deptype IN ('n', 'a', 'i')
  AND d.refclassid::regclass::text IN ('pg_class', 'pg_proc', 'pg_type')
ORDER BY 1, 2, 3, 4`
)
