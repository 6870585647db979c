// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package plan defines the "what changes" layer (Operation) and the
// "how it executes" layer (RenderedSql), the topological ordering between
// them, and the facade external collaborators use to compute and apply a
// migration plan. Operation values never carry SQL; RenderedSql values
// never carry semantic meaning; the two layers stay strictly
// separate.
package plan

import "github.com/go-pgmt/pgmt/catalog"

// OpMeta is embedded in every Operation. Chain groups operations that the
// Cascade Expander synthesized together (a triggering alteration plus the
// drops and recreations of its dependents); Seq orders them within the
// chain. Plan Ordering turns a shared, non-empty Chain into explicit
// sequence edges.
type OpMeta struct {
	Chain string
	Seq   int
}

// Meta returns the operation's ordering metadata.
func (m *OpMeta) Meta() *OpMeta { return m }

// Operation is the closed set of atomic semantic changes the Differ and
// Cascade Expander produce. Implementations are
// listed at the bottom of this file.
type Operation interface {
	// TargetID is the object the operation is primarily about: the
	// object itself for Create/Drop/SetComment/DropComment, the object
	// the privilege applies to (Grant.On) for Grant/Revoke, and the
	// owning table for column-level and constraint alterations.
	TargetID() catalog.ID
	Meta() *OpMeta
	op()
}

type (
	// Create adds a new top-level object, materialized from the desired
	// Catalog.
	Create struct {
		OpMeta
		Object catalog.Object
	}

	// Drop removes a top-level object, using its payload from the
	// current Catalog (so it can still be rendered after the fact).
	Drop struct {
		OpMeta
		Object catalog.Object
	}

	// AddColumn appends a column to an existing table. PostgreSQL always
	// appends.
	AddColumn struct {
		OpMeta
		Table  catalog.ID
		Column catalog.Column
	}

	// DropColumn removes a column from an existing table.
	DropColumn struct {
		OpMeta
		Table  catalog.ID
		Column string
	}

	// AlterColumnType changes a column's declared type. May trigger
	// cascade expansion if anything depends on the column.
	AlterColumnType struct {
		OpMeta
		Table      catalog.ID
		Column     string
		From, To   catalog.Type
		FromNDims  int
		ToNDims    int
	}

	// AlterColumnNull flips a column's nullability.
	AlterColumnNull struct {
		OpMeta
		Table    catalog.ID
		Column   string
		Nullable bool
	}

	// AlterColumnDefault sets or drops a column's default expression.
	AlterColumnDefault struct {
		OpMeta
		Table      catalog.ID
		Column     string
		Default    catalog.Expr // nil when DropValue is true
		DropValue  bool
	}

	// EnumAddValue appends a value to an enum type. PostgreSQL forbids
	// renaming or removing values;
	// those transitions surface as UnsupportedError instead of an
	// Operation.
	EnumAddValue struct {
		OpMeta
		Enum  catalog.ID
		Value string
		After string // preceding value, for ADD VALUE ... AFTER; empty to append at the end
	}

	// SequenceAlter changes a sequence's ownership linkage.
	SequenceAlter struct {
		OpMeta
		Seq                    catalog.ID
		OwnerTable, OwnerColumn string
	}

	// TableRowSecurity toggles row-level security on a table.
	TableRowSecurity struct {
		OpMeta
		Table   catalog.ID
		Enabled bool
	}

	// GrantOp applies a single grant.
	GrantOp struct {
		OpMeta
		Grant catalog.Grant
	}

	// RevokeOp removes a single grant. Not emitted for objects that are
	// themselves being dropped in the same plan; the revoke is implicit
	// on drop.
	RevokeOp struct {
		OpMeta
		Grant catalog.Grant
	}

	// SetComment sets an object's comment.
	SetComment struct {
		OpMeta
		Target catalog.ID
		Text   string
	}

	// DropCommentOp clears an object's comment (COMMENT ON ... IS NULL).
	DropCommentOp struct {
		OpMeta
		Target catalog.ID
	}

	// ColumnComment sets or clears one column's comment. A column is not
	// independently addressable by catalog.ID (see catalog.Object), so
	// unlike SetComment/DropCommentOp this carries its own Table/Column
	// pair instead of a Target ID. An empty Text clears the comment
	// (COMMENT ON COLUMN ... IS NULL).
	ColumnComment struct {
		OpMeta
		Table  catalog.ID
		Column string
		Text   string
	}
)

func (o *Create) TargetID() catalog.ID              { return o.Object.ID() }
func (o *Drop) TargetID() catalog.ID                { return o.Object.ID() }
func (o *AddColumn) TargetID() catalog.ID            { return o.Table }
func (o *DropColumn) TargetID() catalog.ID           { return o.Table }
func (o *AlterColumnType) TargetID() catalog.ID      { return o.Table }
func (o *AlterColumnNull) TargetID() catalog.ID      { return o.Table }
func (o *AlterColumnDefault) TargetID() catalog.ID   { return o.Table }
func (o *EnumAddValue) TargetID() catalog.ID         { return o.Enum }
func (o *SequenceAlter) TargetID() catalog.ID        { return o.Seq }
func (o *TableRowSecurity) TargetID() catalog.ID     { return o.Table }
func (o *GrantOp) TargetID() catalog.ID              { return o.Grant.On }
func (o *RevokeOp) TargetID() catalog.ID             { return o.Grant.On }
func (o *SetComment) TargetID() catalog.ID           { return o.Target }
func (o *DropCommentOp) TargetID() catalog.ID        { return o.Target }
func (o *ColumnComment) TargetID() catalog.ID        { return o.Table }

func (*Create) op()              {}
func (*Drop) op()                {}
func (*AddColumn) op()           {}
func (*DropColumn) op()          {}
func (*AlterColumnType) op()     {}
func (*AlterColumnNull) op()     {}
func (*AlterColumnDefault) op()  {}
func (*EnumAddValue) op()        {}
func (*SequenceAlter) op()       {}
func (*TableRowSecurity) op()    {}
func (*GrantOp) op()             {}
func (*RevokeOp) op()            {}
func (*SetComment) op()          {}
func (*DropCommentOp) op()       {}
func (*ColumnComment) op()       {}
