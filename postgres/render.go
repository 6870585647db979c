// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

import (
	"fmt"
	"strings"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// Renderer turns a plan.Operation into the SQL statement(s) that
// implement it, each tagged Safe or Destructive. Rendering is pure: it
// never touches the database.
type Renderer struct{}

// NewRenderer returns a Renderer. It carries no state.
func NewRenderer() *Renderer { return &Renderer{} }

// Render dispatches on the operation's concrete type and returns the
// statement(s) implementing it.
func (r *Renderer) Render(op plan.Operation) ([]plan.RenderedSql, error) {
	switch o := op.(type) {
	case *plan.Create:
		return r.renderCreate(o)
	case *plan.Drop:
		return r.renderDrop(o)
	case *plan.AddColumn:
		return safe(op, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteID(o.Table), columnDef(o.Column))), nil
	case *plan.DropColumn:
		return destructive(op, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteID(o.Table), quoteIdent(o.Column))), nil
	case *plan.AlterColumnType:
		return safe(op, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
			quoteID(o.Table), quoteIdent(o.Column), typeRef(o.To, o.ToNDims),
			quoteIdent(o.Column), typeRef(o.To, o.ToNDims))), nil
	case *plan.AlterColumnNull:
		clause := "SET NOT NULL"
		if o.Nullable {
			clause = "DROP NOT NULL"
		}
		return safe(op, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", quoteID(o.Table), quoteIdent(o.Column), clause)), nil
	case *plan.AlterColumnDefault:
		if o.DropValue {
			return safe(op, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", quoteID(o.Table), quoteIdent(o.Column))), nil
		}
		return safe(op, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", quoteID(o.Table), quoteIdent(o.Column), o.Default.Text())), nil
	case *plan.EnumAddValue:
		stmt := fmt.Sprintf("ALTER TYPE %s ADD VALUE %s", quoteID(o.Enum), quoteLiteral(o.Value))
		if o.After != "" {
			stmt += fmt.Sprintf(" AFTER %s", quoteLiteral(o.After))
		}
		return []plan.RenderedSql{{SQL: stmt, Safety: plan.Safe, Op: op}}, nil
	case *plan.SequenceAlter:
		if o.OwnerTable == "" {
			return safe(op, fmt.Sprintf("ALTER SEQUENCE %s OWNED BY NONE", quoteID(o.Seq))), nil
		}
		owner := fmt.Sprintf("%s.%s", quoteIdent(o.Seq.Name.Schema), quoteIdent(o.OwnerTable))
		return safe(op, fmt.Sprintf("ALTER SEQUENCE %s OWNED BY %s.%s", quoteID(o.Seq), owner, quoteIdent(o.OwnerColumn))), nil
	case *plan.TableRowSecurity:
		clause := "DISABLE ROW LEVEL SECURITY"
		if o.Enabled {
			clause = "ENABLE ROW LEVEL SECURITY"
		}
		return safe(op, fmt.Sprintf("ALTER TABLE %s %s", quoteID(o.Table), clause)), nil
	case *plan.GrantOp:
		return safe(op, renderGrant(o.Grant)), nil
	case *plan.RevokeOp:
		return safe(op, fmt.Sprintf("REVOKE %s ON %s FROM %s", o.Grant.Privilege, quoteID(o.Grant.On), quoteIdent(o.Grant.Grantee))), nil
	case *plan.SetComment:
		return safe(op, fmt.Sprintf("COMMENT ON %s %s IS %s", commentObjectClause(o.Target), quoteID(o.Target), quoteLiteral(o.Text))), nil
	case *plan.DropCommentOp:
		return safe(op, fmt.Sprintf("COMMENT ON %s %s IS NULL", commentObjectClause(o.Target), quoteID(o.Target))), nil
	case *plan.ColumnComment:
		target := fmt.Sprintf("%s.%s", quoteID(o.Table), quoteIdent(o.Column))
		if o.Text == "" {
			return safe(op, fmt.Sprintf("COMMENT ON COLUMN %s IS NULL", target)), nil
		}
		return safe(op, fmt.Sprintf("COMMENT ON COLUMN %s IS %s", target, quoteLiteral(o.Text))), nil
	case *plan.AddPrimaryKey:
		return safe(op, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
			quoteID(o.Table), quoteIdent(o.PK.Name), quoteIdentList(o.PK.Columns))), nil
	case *plan.DropPrimaryKey:
		return safe(op, dropConstraint(o.Table, o.Name)), nil
	case *plan.AddUniqueConstraint:
		return safe(op, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
			quoteID(o.Table), quoteIdent(o.Unique.Name), quoteIdentList(o.Unique.Columns))), nil
	case *plan.DropUniqueConstraint:
		return safe(op, dropConstraint(o.Table, o.Name)), nil
	case *plan.AddCheckConstraint:
		return safe(op, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s",
			quoteID(o.Table), quoteIdent(o.Check.Name), o.Check.Expr)), nil
	case *plan.DropCheckConstraint:
		return safe(op, dropConstraint(o.Table, o.Name)), nil
	case *plan.AddForeignKey:
		return safe(op, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s.%s (%s) ON UPDATE %s ON DELETE %s",
			quoteID(o.Table), quoteIdent(o.FK.Name), quoteIdentList(o.FK.Columns),
			quoteIdent(o.FK.RefSchema), quoteIdent(o.FK.RefTable), quoteIdentList(o.FK.RefColumns),
			o.FK.OnUpdate, o.FK.OnDelete)), nil
	case *plan.DropForeignKey:
		return safe(op, dropConstraint(o.Table, o.Name)), nil
	case *plan.AddExclusionConstraint:
		return safe(op, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s",
			quoteID(o.Table), quoteIdent(o.Exclusion.Name), o.Exclusion.Def)), nil
	case *plan.DropExclusionConstraint:
		return safe(op, dropConstraint(o.Table, o.Name)), nil
	default:
		return nil, plan.UnsupportedError(fmt.Sprintf("no renderer for operation %T", op))
	}
}

func safe(op plan.Operation, sql string) []plan.RenderedSql {
	return []plan.RenderedSql{{SQL: sql, Safety: plan.Safe, Op: op}}
}

func destructive(op plan.Operation, sql string) []plan.RenderedSql {
	return []plan.RenderedSql{{SQL: sql, Safety: plan.Destructive, Op: op}}
}

func dropConstraint(table catalog.ID, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", quoteID(table), quoteIdent(name))
}

// renderCreate dispatches creation SQL per object kind. Objects recreated
// as part of a cascade (views, functions, triggers, policies, indexes)
// and fresh top-level objects share this path; every kind that carries a
// comment gets a second COMMENT ON fragment appended via appendComment so
// the comment travels with the object instead of being dropped on the
// floor (the commentDiff sub-diff only ever handles objects present on
// both sides of a diff).
func (r *Renderer) renderCreate(o *plan.Create) ([]plan.RenderedSql, error) {
	switch obj := o.Object.(type) {
	case *catalog.Schema:
		frags := safe(o, fmt.Sprintf("CREATE SCHEMA %s", quoteIdent(obj.SchemaName)))
		return appendComment(o, frags, "SCHEMA", quoteIdent(obj.SchemaName), obj.Comment), nil
	case *catalog.Extension:
		stmt := fmt.Sprintf("CREATE EXTENSION %s", quoteIdent(obj.ExtName))
		if obj.SchemaName != "" {
			stmt += fmt.Sprintf(" SCHEMA %s", quoteIdent(obj.SchemaName))
		}
		if obj.Version != "" {
			stmt += fmt.Sprintf(" VERSION %s", quoteLiteral(obj.Version))
		}
		frags := safe(o, stmt)
		return appendComment(o, frags, "EXTENSION", quoteIdent(obj.ExtName), obj.Comment), nil
	case *catalog.Enum:
		labels := make([]string, len(obj.Values))
		for i, v := range obj.Values {
			labels[i] = quoteLiteral(v)
		}
		frags := safe(o, fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", quoteID(obj.ID()), strings.Join(labels, ", ")))
		return appendComment(o, frags, "TYPE", quoteID(obj.ID()), obj.Comment), nil
	case *catalog.Domain:
		stmt := fmt.Sprintf("CREATE DOMAIN %s AS %s", quoteID(obj.ID()), typeRef(obj.BaseType, 0))
		if obj.NotNull {
			stmt += " NOT NULL"
		}
		if obj.Default != nil {
			stmt += " DEFAULT " + obj.Default.Text()
		}
		for _, c := range obj.Checks {
			stmt += fmt.Sprintf(" CONSTRAINT %s %s", quoteIdent(c.Name), c.Expr)
		}
		frags := safe(o, stmt)
		return appendComment(o, frags, "TYPE", quoteID(obj.ID()), obj.Comment), nil
	case *catalog.Composite:
		fields := make([]string, len(obj.Attributes))
		for i, a := range obj.Attributes {
			fields[i] = fmt.Sprintf("%s %s", quoteIdent(a.Name), typeRef(a.Type, a.NDims))
		}
		frags := safe(o, fmt.Sprintf("CREATE TYPE %s AS (%s)", quoteID(obj.ID()), strings.Join(fields, ", ")))
		return appendComment(o, frags, "TYPE", quoteID(obj.ID()), obj.Comment), nil
	case *catalog.Range:
		frags := safe(o, fmt.Sprintf("CREATE TYPE %s AS RANGE (SUBTYPE = %s)", quoteID(obj.ID()), typeRef(obj.Subtype, 0)))
		return appendComment(o, frags, "TYPE", quoteID(obj.ID()), obj.Comment), nil
	case *catalog.Sequence:
		frags := safe(o, fmt.Sprintf("CREATE SEQUENCE %s", quoteID(obj.ID())))
		return appendComment(o, frags, "SEQUENCE", quoteID(obj.ID()), obj.Comment), nil
	case *catalog.Table:
		frags := safe(o, createTableStatement(obj))
		frags = appendComment(o, frags, "TABLE", quoteID(obj.ID()), obj.Comment)
		frags = appendColumnComments(o, frags, obj)
		return frags, nil
	case *catalog.Index:
		frags := safe(o, obj.Def)
		return appendComment(o, frags, "INDEX", quoteID(obj.ID()), obj.Comment), nil
	case *catalog.View:
		kw := "VIEW"
		if obj.Materialized {
			kw = "MATERIALIZED VIEW"
		}
		frags := safe(o, fmt.Sprintf("CREATE %s %s AS %s", kw, quoteID(obj.ID()), obj.Def))
		return appendComment(o, frags, kw, quoteID(obj.ID()), obj.Comment), nil
	case *catalog.Function:
		frags := safe(o, obj.Body)
		return appendComment(o, frags, strings.ToUpper(obj.FuncKind.String()), funcSignature(obj), obj.Comment), nil
	case *catalog.Trigger:
		frags := safe(o, obj.Def)
		target := fmt.Sprintf("%s ON %s", quoteIdent(lastSegment(obj.Name)), quotePath(obj.OnTable))
		return appendComment(o, frags, "TRIGGER", target, obj.Comment), nil
	case *catalog.Policy:
		frags := safe(o, renderPolicyCreate(obj))
		target := fmt.Sprintf("%s ON %s", quoteIdent(lastSegment(obj.Name)), quotePath(obj.OnTable))
		return appendComment(o, frags, "POLICY", target, obj.Comment), nil
	case *catalog.Grant:
		return safe(o, renderGrant(*obj)), nil
	default:
		return nil, plan.UnsupportedError(fmt.Sprintf("no create renderer for %T", obj))
	}
}

// appendComment appends a COMMENT ON <clause> <target> IS '<text>' fragment
// to frags when text is non-empty, so a newly created object's comment is
// carried within the same Create operation rather than left for a later
// SetComment that commentDiff never emits for brand-new objects.
func appendComment(o *plan.Create, frags []plan.RenderedSql, clause, target, text string) []plan.RenderedSql {
	if text == "" {
		return frags
	}
	return append(frags, plan.RenderedSql{
		SQL:    fmt.Sprintf("COMMENT ON %s %s IS %s", clause, target, quoteLiteral(text)),
		Safety: plan.Safe,
		Op:     o,
	})
}

// appendColumnComments appends one COMMENT ON COLUMN fragment per column
// carrying a comment, in column-definition order, so a brand-new table's
// per-column comments ride along with its CREATE TABLE the same way the
// table's own comment does.
func appendColumnComments(o *plan.Create, frags []plan.RenderedSql, t *catalog.Table) []plan.RenderedSql {
	for _, c := range t.Columns {
		text := t.ColumnComments[c.Name]
		if text == "" {
			continue
		}
		frags = append(frags, plan.RenderedSql{
			SQL:    fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", quoteID(t.ID()), quoteIdent(c.Name), quoteLiteral(text)),
			Safety: plan.Safe,
			Op:     o,
		})
	}
	return frags
}

// renderDrop dispatches drop SQL per object kind. Table and Schema drops
// are Destructive (they can discard rows); everything else is
// reconstructible from the schema files and so is Safe.
func (r *Renderer) renderDrop(o *plan.Drop) ([]plan.RenderedSql, error) {
	id := o.Object.ID()
	switch obj := o.Object.(type) {
	case *catalog.Schema:
		return destructive(o, fmt.Sprintf("DROP SCHEMA %s", quoteIdent(obj.SchemaName))), nil
	case *catalog.Extension:
		return safe(o, fmt.Sprintf("DROP EXTENSION %s", quoteIdent(obj.ExtName))), nil
	case *catalog.Enum:
		return safe(o, fmt.Sprintf("DROP TYPE %s", quoteID(id))), nil
	case *catalog.Domain:
		return safe(o, fmt.Sprintf("DROP DOMAIN %s", quoteID(id))), nil
	case *catalog.Composite:
		return safe(o, fmt.Sprintf("DROP TYPE %s", quoteID(id))), nil
	case *catalog.Range:
		return safe(o, fmt.Sprintf("DROP TYPE %s", quoteID(id))), nil
	case *catalog.Sequence:
		return safe(o, fmt.Sprintf("DROP SEQUENCE %s", quoteID(id))), nil
	case *catalog.Table:
		return destructive(o, fmt.Sprintf("DROP TABLE %s", quoteID(id))), nil
	case *catalog.Index:
		return safe(o, fmt.Sprintf("DROP INDEX %s", quoteID(id))), nil
	case *catalog.View:
		kw := "VIEW"
		if obj.Materialized {
			kw = "MATERIALIZED VIEW"
		}
		return safe(o, fmt.Sprintf("DROP %s %s", kw, quoteID(id))), nil
	case *catalog.Function:
		return safe(o, fmt.Sprintf("DROP %s %s", strings.ToUpper(obj.FuncKind.String()), funcSignature(obj))), nil
	case *catalog.Trigger:
		return safe(o, fmt.Sprintf("DROP TRIGGER %s ON %s", quoteIdent(lastSegment(obj.Name)), quotePath(obj.OnTable))), nil
	case *catalog.Policy:
		return safe(o, fmt.Sprintf("DROP POLICY %s ON %s", quoteIdent(lastSegment(obj.Name)), quotePath(obj.OnTable))), nil
	case *catalog.Grant:
		return safe(o, fmt.Sprintf("REVOKE %s ON %s FROM %s", obj.Privilege, quoteID(obj.On), quoteIdent(obj.Grantee))), nil
	default:
		return nil, plan.UnsupportedError(fmt.Sprintf("no drop renderer for %T", obj))
	}
}

func createTableStatement(t *catalog.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteID(t.ID()))
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "    "+columnDef(c))
	}
	if t.PrimaryKey != nil {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)", quoteIdent(t.PrimaryKey.Name), quoteIdentList(t.PrimaryKey.Columns)))
	}
	for _, u := range t.UniqueKeys {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s UNIQUE (%s)", quoteIdent(u.Name), quoteIdentList(u.Columns)))
	}
	for _, c := range t.Checks {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s %s", quoteIdent(c.Name), c.Expr))
	}
	for _, f := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s.%s (%s) ON UPDATE %s ON DELETE %s",
			quoteIdent(f.Name), quoteIdentList(f.Columns), quoteIdent(f.RefSchema), quoteIdent(f.RefTable), quoteIdentList(f.RefColumns), f.OnUpdate, f.OnDelete))
	}
	for _, x := range t.Exclusions {
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s %s", quoteIdent(x.Name), x.Def))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	return b.String()
}

func columnDef(c catalog.Column) string {
	stmt := fmt.Sprintf("%s %s", quoteIdent(c.Name), typeRef(c.Type, c.NDims))
	if c.Generated != "" {
		return stmt + fmt.Sprintf(" GENERATED ALWAYS AS (%s) STORED", c.Generated)
	}
	if !c.Nullable {
		stmt += " NOT NULL"
	}
	if c.Default != nil {
		stmt += " DEFAULT " + c.Default.Text()
	}
	return stmt
}

func renderPolicyCreate(p *catalog.Policy) string {
	stmt := fmt.Sprintf("CREATE POLICY %s ON %s", quoteIdent(lastSegment(p.Name)), quotePath(p.OnTable))
	if len(p.Roles) > 0 {
		stmt += " TO " + strings.Join(p.Roles, ", ")
	}
	if p.Using != "" {
		stmt += " USING (" + p.Using + ")"
	}
	if p.WithCheck != "" {
		stmt += " WITH CHECK (" + p.WithCheck + ")"
	}
	return stmt
}

func renderGrant(g catalog.Grant) string {
	stmt := fmt.Sprintf("GRANT %s ON %s TO %s", g.Privilege, quoteID(g.On), quoteIdent(g.Grantee))
	if g.WithGrant {
		stmt += " WITH GRANT OPTION"
	}
	return stmt
}

func funcSignature(f *catalog.Function) string {
	types := make([]string, len(f.Params))
	for i, p := range f.Params {
		types[i] = catalog.TypeName(p.Type)
	}
	return fmt.Sprintf("%s(%s)", quoteID(f.ID()), strings.Join(types, ", "))
}

// commentObjectClause returns the `COMMENT ON <kind>` keyword for id's
// kind; TABLE/VIEW/etc. share the same clause grammar PostgreSQL uses.
func commentObjectClause(id catalog.ID) string {
	switch id.Kind {
	case catalog.KindSchema:
		return "SCHEMA"
	case catalog.KindTable:
		return "TABLE"
	case catalog.KindView:
		return "VIEW"
	case catalog.KindEnum, catalog.KindDomain, catalog.KindComposite, catalog.KindRange:
		return "TYPE"
	case catalog.KindSequence:
		return "SEQUENCE"
	case catalog.KindIndex:
		return "INDEX"
	case catalog.KindFunction:
		return "FUNCTION"
	case catalog.KindProcedure:
		return "PROCEDURE"
	case catalog.KindTrigger:
		return "TRIGGER"
	case catalog.KindExtension:
		return "EXTENSION"
	default:
		return "OBJECT"
	}
}

func typeRef(t catalog.Type, ndims int) string {
	base := renderTypeName(t)
	for i := 0; i < ndims; i++ {
		base += "[]"
	}
	return base
}

func renderTypeName(t catalog.Type) string {
	switch v := t.(type) {
	case *catalog.NamedType:
		if v.Schema == "" {
			return v.Name
		}
		return quoteIdent(v.Schema) + "." + v.Name
	case *catalog.ArrayType:
		return renderTypeName(v.Elem) + "[]"
	case *catalog.UnsupportedType:
		return v.Raw
	default:
		return "text"
	}
}

func quoteID(id catalog.ID) string {
	if id.Name.Schema == "" {
		return quoteIdent(id.Name.Name)
	}
	return quoteIdent(id.Name.Schema) + "." + quoteIdent(id.Name.Name)
}

func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func quotePath(schemaDotName string) string {
	schema, name, ok := splitQualified(schemaDotName)
	if !ok {
		return quoteIdent(schemaDotName)
	}
	return quoteIdent(schema) + "." + quoteIdent(name)
}

func lastSegment(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
	}
	return s
}

// quoteIdent double-quotes a PostgreSQL identifier, escaping embedded
// quotes the way the driver would on a round trip.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral single-quotes an SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
