// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package catalog

// Object is implemented by every top-level managed object and by Grant,
// which a Catalog also holds (keyed by its object, grantee and
// privilege). Column is not independently addressable and does not
// implement it. The set of implementations is closed; see the obj()
// markers at the bottom of this file.
type Object interface {
	ID() ID
	obj()
}

// Commentable is implemented by every object kind that supports
// `COMMENT ON ... IS ...`.
type Commentable interface {
	Object
	CommentText() string
}

type (
	// Schema is a namespace. Its ObjectId has an empty Name.Schema and
	// the schema's own name in Name.Name.
	Schema struct {
		SchemaName string
		Comment    string
	}

	// Extension is an installed PostgreSQL extension. Objects owned by an
	// extension are excluded from every other collection; a
	// signature or column that references such an object depends on the
	// Extension itself, never on the owned object.
	Extension struct {
		ExtName     string
		SchemaName  string // schema the extension's objects are placed in
		Version     string
		Comment     string
	}

	// Enum is an enumerated type.
	Enum struct {
		QName   QualifiedName
		Values  []string // ordered
		Comment string
	}

	// Domain is a constrained base type.
	Domain struct {
		QName      QualifiedName
		BaseType   Type
		Checks     []CheckConstraint
		Default    Expr
		NotNull    bool
		Comment    string
	}

	// Composite is a structured (row) type.
	Composite struct {
		QName      QualifiedName
		Attributes []CompositeAttr
		Comment    string
	}

	// CompositeAttr is one field of a composite type.
	CompositeAttr struct {
		Name  string
		Type  Type
		NDims int
	}

	// Range is a range type.
	Range struct {
		QName   QualifiedName
		Subtype Type
		Comment string
	}

	// Sequence is a numeric generator, optionally owned by a table column.
	Sequence struct {
		QName        QualifiedName
		OwnerTable   string // empty if not owned
		OwnerColumn  string
		Comment      string
	}

	// Table is a base table.
	Table struct {
		QName          QualifiedName
		Columns        []Column // ordered by position
		PrimaryKey     *PrimaryKey
		UniqueKeys     []UniqueConstraint
		Checks         []CheckConstraint
		ForeignKeys    []ForeignKey
		Exclusions     []ExclusionConstraint
		RowSecurity    bool // whether RLS is enabled, only meaningful where supported
		Comment        string
		ColumnComments map[string]string
	}

	// Column belongs to a Table; it is not independently addressable
	// not independently addressable.
	Column struct {
		Name       string
		Type       Type
		NDims      int // array dimensions; 0 for scalar
		Nullable   bool
		Default    Expr // captured post-parse
		Generated  string // generated-expression text, empty if not generated
		Position   int
	}

	// PrimaryKey names the primary-key columns of a table, in key order.
	PrimaryKey struct {
		Name    string
		Columns []string
	}

	// UniqueConstraint names a unique key.
	UniqueConstraint struct {
		Name    string
		Columns []string
	}

	// CheckConstraint is a CHECK clause.
	CheckConstraint struct {
		Name string
		Expr string
	}

	// ExclusionConstraint is an EXCLUDE USING ... clause.
	ExclusionConstraint struct {
		Name   string
		Method string
		Def    string // full definition text, pretty-printed
	}

	// ForeignKey references another table's columns.
	ForeignKey struct {
		Name       string
		Columns    []string
		RefSchema  string
		RefTable   string
		RefColumns []string
		OnUpdate   string
		OnDelete   string
	}

	// Index belongs to a table.
	Index struct {
		QName      QualifiedName
		OwnerTable string
		Unique     bool
		Def        string // definition text from the catalog's pretty-printer
		Comment    string
	}

	// View is a view or materialized view (Materialized distinguishes).
	View struct {
		QName          QualifiedName
		Columns        []string // ordered, for signature comparison
		Def            string   // rewritten definition text
		SecurityInvoke bool     // only meaningful on PG >= 15
		Materialized   bool
		Comment        string
	}

	// Function is a function, procedure, or aggregate. Kind distinguishes
	// the three; all three share this shape.
	Function struct {
		QName      QualifiedName
		FuncKind   Kind // KindFunction, KindProcedure, or KindAggregate
		Params     []Param
		Returns    Type // nil for procedures
		Language   string
		Volatility string // IMMUTABLE | STABLE | VOLATILE
		Strict     bool
		Security   string // INVOKER | DEFINER
		Parallel   string // UNSAFE | RESTRICTED | SAFE
		Body       string
		Comment    string
	}

	// Param is one function/procedure/aggregate parameter.
	Param struct {
		Name string
		Type Type
		Mode string // IN, OUT, INOUT, VARIADIC
	}

	// Trigger belongs to a table or view.
	Trigger struct {
		Name     string
		OnTable  string // owning table/view name, schema-qualified
		Def      string // full definition text
		Comment  string
	}

	// Policy is a row-level-security policy.
	Policy struct {
		Name       string
		OnTable    string
		Roles      []string
		Using      string
		WithCheck  string
		Comment    string
	}

	// Grant is a single grantee/privilege pair on a managed object.
	Grant struct {
		Grantee   string
		Privilege string
		On        ID // the object the privilege applies to
		WithGrant bool
	}
)

func (o *Schema) ID() ID      { return NewID(KindSchema, "", o.SchemaName) }
func (o *Extension) ID() ID   { return NewID(KindExtension, "", o.ExtName) }
func (o *Enum) ID() ID        { return NewID(KindEnum, o.QName.Schema, o.QName.Name) }
func (o *Domain) ID() ID      { return NewID(KindDomain, o.QName.Schema, o.QName.Name) }
func (o *Composite) ID() ID   { return NewID(KindComposite, o.QName.Schema, o.QName.Name) }
func (o *Range) ID() ID       { return NewID(KindRange, o.QName.Schema, o.QName.Name) }
func (o *Sequence) ID() ID    { return NewID(KindSequence, o.QName.Schema, o.QName.Name) }
func (o *Table) ID() ID       { return NewID(KindTable, o.QName.Schema, o.QName.Name) }
func (o *Index) ID() ID       { return NewID(KindIndex, o.QName.Schema, o.QName.Name) }
func (o *View) ID() ID        { return NewID(KindView, o.QName.Schema, o.QName.Name) }
func (o *Trigger) ID() ID     { return NewID(KindTrigger, "", o.Name) }
func (o *Policy) ID() ID      { return NewID(KindPolicy, "", o.Name) }
func (o *Grant) ID() ID       { return NewGrantID(o.On.Name.Schema, o.On.Name.String(), o.Grantee, o.Privilege) }

// ID implements Object. Function identity includes its parameter types
// overloads are distinct objects.
func (o *Function) ID() ID {
	types := make([]string, len(o.Params))
	for i, p := range o.Params {
		types[i] = TypeName(p.Type)
	}
	return NewFuncID(o.FuncKind, o.QName.Schema, o.QName.Name, types)
}

func (o *Schema) CommentText() string    { return o.Comment }
func (o *Extension) CommentText() string { return o.Comment }
func (o *Enum) CommentText() string      { return o.Comment }
func (o *Domain) CommentText() string    { return o.Comment }
func (o *Composite) CommentText() string { return o.Comment }
func (o *Range) CommentText() string     { return o.Comment }
func (o *Sequence) CommentText() string  { return o.Comment }
func (o *Table) CommentText() string     { return o.Comment }
func (o *Index) CommentText() string     { return o.Comment }
func (o *View) CommentText() string      { return o.Comment }
func (o *Function) CommentText() string  { return o.Comment }
func (o *Trigger) CommentText() string   { return o.Comment }
func (o *Policy) CommentText() string    { return o.Comment }

func (*Schema) obj()    {}
func (*Extension) obj() {}
func (*Enum) obj()      {}
func (*Domain) obj()    {}
func (*Composite) obj() {}
func (*Range) obj()     {}
func (*Sequence) obj()  {}
func (*Table) obj()     {}
func (*Index) obj()     {}
func (*View) obj()      {}
func (*Function) obj()  {}
func (*Trigger) obj()   {}
func (*Policy) obj()    {}
func (*Grant) obj()     {}

var (
	_ Commentable = (*Schema)(nil)
	_ Commentable = (*Table)(nil)
	_ Commentable = (*Function)(nil)
)
