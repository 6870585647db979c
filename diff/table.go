// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package diff

import (
	"fmt"
	"reflect"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// diffTable compares one table's columns and constraints. Unlike views,
// functions, triggers, policies and indexes, a table is never dropped and
// recreated to pick up a structural change: every difference is expressed
// as an in-place alteration, except a changed generated-column
// expression, which diffColumn reports as an UnsupportedError.
func (d *Differ) diffTable(cur, des *catalog.Table) ([]plan.Operation, error) {
	var ops []plan.Operation

	colOps, err := d.diffColumns(cur, des)
	if err != nil {
		return nil, err
	}
	ops = append(ops, colOps...)
	ops = append(ops, diffPrimaryKey(cur, des)...)
	ops = append(ops, diffUniqueConstraints(cur, des)...)
	ops = append(ops, diffCheckConstraints(cur, des)...)
	ops = append(ops, diffForeignKeys(cur, des)...)
	ops = append(ops, diffExclusions(cur, des)...)
	ops = append(ops, diffColumnComments(cur, des)...)
	if cur.RowSecurity != des.RowSecurity {
		ops = append(ops, &plan.TableRowSecurity{Table: cur.ID(), Enabled: des.RowSecurity})
	}
	return ops, nil
}

// diffColumnComments compares per-column comments. A column dropped along
// with the table goes with it and needs no explicit clear; a brand-new
// table's column comments are carried within its Create statement instead
// (see appendColumnComments in the postgres renderer). A column newly
// added to an existing table has no such Create to ride along with, so its
// comment is emitted here too, right after the AddColumn that creates it.
func diffColumnComments(cur, des *catalog.Table) []plan.Operation {
	var ops []plan.Operation
	curCols := make(map[string]bool, len(cur.Columns))
	for _, c := range cur.Columns {
		curCols[c.Name] = true
	}
	for _, c := range des.Columns {
		text := des.ColumnComments[c.Name]
		if !curCols[c.Name] {
			if text != "" {
				ops = append(ops, &plan.ColumnComment{Table: cur.ID(), Column: c.Name, Text: text})
			}
			continue
		}
		if old := cur.ColumnComments[c.Name]; old != text {
			ops = append(ops, &plan.ColumnComment{Table: cur.ID(), Column: c.Name, Text: text})
		}
	}
	return ops
}

func (d *Differ) diffColumns(cur, des *catalog.Table) ([]plan.Operation, error) {
	curCols := make(map[string]catalog.Column, len(cur.Columns))
	for _, c := range cur.Columns {
		curCols[c.Name] = c
	}
	desCols := make(map[string]catalog.Column, len(des.Columns))
	for _, c := range des.Columns {
		desCols[c.Name] = c
	}

	var ops []plan.Operation
	for _, c := range cur.Columns {
		if _, ok := desCols[c.Name]; !ok {
			ops = append(ops, &plan.DropColumn{Table: cur.ID(), Column: c.Name})
		}
	}

	maxSurvivorIdx := -1
	for i, c := range des.Columns {
		if _, ok := curCols[c.Name]; ok && i > maxSurvivorIdx {
			maxSurvivorIdx = i
		}
	}
	for i, c := range des.Columns {
		old, ok := curCols[c.Name]
		if !ok {
			if i < maxSurvivorIdx {
				if err := d.reportColumnOrder(cur, c.Name); err != nil {
					return nil, err
				}
			}
			ops = append(ops, &plan.AddColumn{Table: cur.ID(), Column: c})
			continue
		}
		colOps, err := d.diffColumn(cur.ID(), old, c)
		if err != nil {
			return nil, err
		}
		ops = append(ops, colOps...)
	}
	return ops, nil
}

func (d *Differ) reportColumnOrder(t *catalog.Table, column string) error {
	msg := fmt.Sprintf("table %s: new column %q is declared before an existing column, but ADD COLUMN always appends", t.QName, column)
	switch d.opts.ColumnOrderPolicy {
	case Strict:
		return plan.UnsupportedError(msg)
	case Warn:
		d.opts.Warnf("%s", msg)
	}
	return nil
}

func (d *Differ) diffColumn(table catalog.ID, cur, des catalog.Column) ([]plan.Operation, error) {
	var ops []plan.Operation
	if cur.Generated != des.Generated {
		return nil, plan.UnsupportedError(fmt.Sprintf("column %s.%s: changing a generated-column expression is not supported", table, cur.Name))
	}
	if catalog.TypeName(cur.Type) != catalog.TypeName(des.Type) || cur.NDims != des.NDims {
		ops = append(ops, &plan.AlterColumnType{
			Table: table, Column: cur.Name,
			From: cur.Type, To: des.Type,
			FromNDims: cur.NDims, ToNDims: des.NDims,
		})
	}
	if cur.Nullable != des.Nullable {
		ops = append(ops, &plan.AlterColumnNull{Table: table, Column: cur.Name, Nullable: des.Nullable})
	}
	if exprText(cur.Default) != exprText(des.Default) {
		ops = append(ops, &plan.AlterColumnDefault{
			Table: table, Column: cur.Name,
			Default:   des.Default,
			DropValue: des.Default == nil,
		})
	}
	return ops, nil
}

func diffPrimaryKey(cur, des *catalog.Table) []plan.Operation {
	switch {
	case cur.PrimaryKey == nil && des.PrimaryKey == nil:
		return nil
	case cur.PrimaryKey == nil:
		return []plan.Operation{&plan.AddPrimaryKey{Table: cur.ID(), PK: *des.PrimaryKey}}
	case des.PrimaryKey == nil:
		return []plan.Operation{&plan.DropPrimaryKey{Table: cur.ID(), Name: cur.PrimaryKey.Name}}
	case reflect.DeepEqual(*cur.PrimaryKey, *des.PrimaryKey):
		return nil
	default:
		return []plan.Operation{
			&plan.DropPrimaryKey{Table: cur.ID(), Name: cur.PrimaryKey.Name},
			&plan.AddPrimaryKey{Table: cur.ID(), PK: *des.PrimaryKey},
		}
	}
}

func diffUniqueConstraints(cur, des *catalog.Table) []plan.Operation {
	curM := uniqueByName(cur.UniqueKeys)
	desM := uniqueByName(des.UniqueKeys)
	var ops []plan.Operation
	for name, c := range curM {
		if s, ok := desM[name]; !ok {
			ops = append(ops, &plan.DropUniqueConstraint{Table: cur.ID(), Name: name})
		} else if !reflect.DeepEqual(c, s) {
			ops = append(ops, &plan.DropUniqueConstraint{Table: cur.ID(), Name: name}, &plan.AddUniqueConstraint{Table: cur.ID(), Unique: s})
		}
	}
	for name, s := range desM {
		if _, ok := curM[name]; !ok {
			ops = append(ops, &plan.AddUniqueConstraint{Table: cur.ID(), Unique: s})
		}
	}
	return ops
}

func uniqueByName(cs []catalog.UniqueConstraint) map[string]catalog.UniqueConstraint {
	m := make(map[string]catalog.UniqueConstraint, len(cs))
	for _, c := range cs {
		m[c.Name] = c
	}
	return m
}

func diffCheckConstraints(cur, des *catalog.Table) []plan.Operation {
	curM := checkByName(cur.Checks)
	desM := checkByName(des.Checks)
	var ops []plan.Operation
	for name, c := range curM {
		if s, ok := desM[name]; !ok {
			ops = append(ops, &plan.DropCheckConstraint{Table: cur.ID(), Name: name})
		} else if c.Expr != s.Expr {
			ops = append(ops, &plan.DropCheckConstraint{Table: cur.ID(), Name: name}, &plan.AddCheckConstraint{Table: cur.ID(), Check: s})
		}
	}
	for name, s := range desM {
		if _, ok := curM[name]; !ok {
			ops = append(ops, &plan.AddCheckConstraint{Table: cur.ID(), Check: s})
		}
	}
	return ops
}

func checkByName(cs []catalog.CheckConstraint) map[string]catalog.CheckConstraint {
	m := make(map[string]catalog.CheckConstraint, len(cs))
	for _, c := range cs {
		m[c.Name] = c
	}
	return m
}

func diffForeignKeys(cur, des *catalog.Table) []plan.Operation {
	curM := fkByName(cur.ForeignKeys)
	desM := fkByName(des.ForeignKeys)
	var ops []plan.Operation
	for name, c := range curM {
		if s, ok := desM[name]; !ok {
			ops = append(ops, &plan.DropForeignKey{Table: cur.ID(), Name: name})
		} else if !reflect.DeepEqual(c, s) {
			ops = append(ops, &plan.DropForeignKey{Table: cur.ID(), Name: name}, &plan.AddForeignKey{Table: cur.ID(), FK: s})
		}
	}
	for name, s := range desM {
		if _, ok := curM[name]; !ok {
			ops = append(ops, &plan.AddForeignKey{Table: cur.ID(), FK: s})
		}
	}
	return ops
}

func fkByName(fks []catalog.ForeignKey) map[string]catalog.ForeignKey {
	m := make(map[string]catalog.ForeignKey, len(fks))
	for _, f := range fks {
		m[f.Name] = f
	}
	return m
}

func diffExclusions(cur, des *catalog.Table) []plan.Operation {
	curM := exclusionByName(cur.Exclusions)
	desM := exclusionByName(des.Exclusions)
	var ops []plan.Operation
	for name, c := range curM {
		if s, ok := desM[name]; !ok {
			ops = append(ops, &plan.DropExclusionConstraint{Table: cur.ID(), Name: name})
		} else if c.Def != s.Def {
			ops = append(ops, &plan.DropExclusionConstraint{Table: cur.ID(), Name: name}, &plan.AddExclusionConstraint{Table: cur.ID(), Exclusion: s})
		}
	}
	for name, s := range desM {
		if _, ok := curM[name]; !ok {
			ops = append(ops, &plan.AddExclusionConstraint{Table: cur.ID(), Exclusion: s})
		}
	}
	return ops
}

func exclusionByName(ex []catalog.ExclusionConstraint) map[string]catalog.ExclusionConstraint {
	m := make(map[string]catalog.ExclusionConstraint, len(ex))
	for _, e := range ex {
		m[e.Name] = e
	}
	return m
}
