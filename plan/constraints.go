// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package plan

import "github.com/go-pgmt/pgmt/catalog"

// Table-level constraints are altered in place rather than following the
// drop+create path that views, functions, triggers, policies and indexes
// take: a table carries data, so recreating it to pick up a constraint
// change is not an option. Each constraint kind gets its own add/drop
// pair; PostgreSQL has no single ALTER CONSTRAINT for any of them.
type (
	AddPrimaryKey struct {
		OpMeta
		Table catalog.ID
		PK    catalog.PrimaryKey
	}
	DropPrimaryKey struct {
		OpMeta
		Table catalog.ID
		Name  string
	}
	AddUniqueConstraint struct {
		OpMeta
		Table catalog.ID
		Unique catalog.UniqueConstraint
	}
	DropUniqueConstraint struct {
		OpMeta
		Table catalog.ID
		Name  string
	}
	AddCheckConstraint struct {
		OpMeta
		Table catalog.ID
		Check catalog.CheckConstraint
	}
	DropCheckConstraint struct {
		OpMeta
		Table catalog.ID
		Name  string
	}
	AddForeignKey struct {
		OpMeta
		Table catalog.ID
		FK    catalog.ForeignKey
	}
	DropForeignKey struct {
		OpMeta
		Table catalog.ID
		Name  string
	}
	AddExclusionConstraint struct {
		OpMeta
		Table     catalog.ID
		Exclusion catalog.ExclusionConstraint
	}
	DropExclusionConstraint struct {
		OpMeta
		Table catalog.ID
		Name  string
	}
)

func (o *AddPrimaryKey) TargetID() catalog.ID            { return o.Table }
func (o *DropPrimaryKey) TargetID() catalog.ID           { return o.Table }
func (o *AddUniqueConstraint) TargetID() catalog.ID      { return o.Table }
func (o *DropUniqueConstraint) TargetID() catalog.ID     { return o.Table }
func (o *AddCheckConstraint) TargetID() catalog.ID       { return o.Table }
func (o *DropCheckConstraint) TargetID() catalog.ID      { return o.Table }
func (o *AddForeignKey) TargetID() catalog.ID            { return o.Table }
func (o *DropForeignKey) TargetID() catalog.ID           { return o.Table }
func (o *AddExclusionConstraint) TargetID() catalog.ID   { return o.Table }
func (o *DropExclusionConstraint) TargetID() catalog.ID  { return o.Table }

func (*AddPrimaryKey) op()           {}
func (*DropPrimaryKey) op()          {}
func (*AddUniqueConstraint) op()     {}
func (*DropUniqueConstraint) op()    {}
func (*AddCheckConstraint) op()      {}
func (*DropCheckConstraint) op()     {}
func (*AddForeignKey) op()           {}
func (*DropForeignKey) op()          {}
func (*AddExclusionConstraint) op()  {}
func (*DropExclusionConstraint) op() {}
