// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package diff compares two Catalogs and returns the Operations that turn
// one into the other, one kind at a time. It never sorts its output;
// ordering is the plan package's job.
package diff

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// ColumnOrderPolicy controls how Differ reacts when a new column's
// position in the desired schema does not match where ALTER TABLE ...
// ADD COLUMN will physically place it (always last).
type ColumnOrderPolicy uint8

const (
	Strict ColumnOrderPolicy = iota
	Warn
	Relaxed
)

// Options configures a Differ.
type Options struct {
	ColumnOrderPolicy ColumnOrderPolicy
	// Warnf receives a message for every Warn-policy column-order
	// mismatch; nil discards them.
	Warnf func(format string, args ...interface{})
}

// Differ compares two Catalogs kind by kind.
type Differ struct {
	opts Options
}

// New returns a Differ configured by opts.
func New(opts Options) *Differ {
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...interface{}) {}
	}
	return &Differ{opts: opts}
}

// Diff compares current against desired and returns the operations that
// transform current into desired, plus the comment and grant sub-diffs.
func (d *Differ) Diff(current, desired *catalog.Catalog) ([]plan.Operation, error) {
	var ops []plan.Operation

	for _, kind := range kindOrder {
		kindOps, err := d.diffKind(kind, current, desired)
		if err != nil {
			return nil, err
		}
		ops = append(ops, kindOps...)
	}

	ops = append(ops, d.commentDiff(current, desired)...)
	ops = append(ops, d.grantDiff(current, desired)...)
	return ops, nil
}

var kindOrder = []catalog.Kind{
	catalog.KindSchema,
	catalog.KindExtension,
	catalog.KindEnum,
	catalog.KindDomain,
	catalog.KindComposite,
	catalog.KindRange,
	catalog.KindSequence,
	catalog.KindTable,
	catalog.KindIndex,
	catalog.KindView,
	catalog.KindFunction,
	catalog.KindProcedure,
	catalog.KindAggregate,
	catalog.KindTrigger,
	catalog.KindPolicy,
}

func (d *Differ) diffKind(kind catalog.Kind, current, desired *catalog.Catalog) ([]plan.Operation, error) {
	curObjs := byID(current.Kind(kind))
	desObjs := byID(desired.Kind(kind))

	var ops []plan.Operation
	for id, cur := range curObjs {
		des, ok := desObjs[id]
		if !ok {
			ops = append(ops, &plan.Drop{Object: cur})
			continue
		}
		kindOps, err := d.diffObject(kind, cur, des)
		if err != nil {
			return nil, err
		}
		ops = append(ops, kindOps...)
	}
	for id, des := range desObjs {
		if _, ok := curObjs[id]; !ok {
			ops = append(ops, &plan.Create{Object: des})
		}
	}
	sortOps(ops)
	return ops, nil
}

// diffObject dispatches a present-in-both object pair to its per-kind
// comparison. Structural equality (up to comment, handled separately) is
// a no-op; everything else either alters in place or, where PostgreSQL
// gives no alter path, drops and recreates from the desired payload.
func (d *Differ) diffObject(kind catalog.Kind, cur, des catalog.Object) ([]plan.Operation, error) {
	switch kind {
	case catalog.KindSchema:
		return nil, nil // nothing structural beyond the name, which is the identity
	case catalog.KindExtension:
		return d.diffExtension(cur.(*catalog.Extension), des.(*catalog.Extension))
	case catalog.KindEnum:
		return d.diffEnum(cur.(*catalog.Enum), des.(*catalog.Enum))
	case catalog.KindDomain:
		return dropCreateIfChanged(cur, des, func() bool {
			c, s := cur.(*catalog.Domain), des.(*catalog.Domain)
			return domainEqual(c, s)
		})
	case catalog.KindComposite:
		return dropCreateIfChanged(cur, des, func() bool {
			c, s := cur.(*catalog.Composite), des.(*catalog.Composite)
			return reflect.DeepEqual(c.Attributes, s.Attributes)
		})
	case catalog.KindRange:
		return dropCreateIfChanged(cur, des, func() bool {
			c, s := cur.(*catalog.Range), des.(*catalog.Range)
			return catalog.TypeName(c.Subtype) == catalog.TypeName(s.Subtype)
		})
	case catalog.KindSequence:
		return d.diffSequence(cur.(*catalog.Sequence), des.(*catalog.Sequence))
	case catalog.KindTable:
		return d.diffTable(cur.(*catalog.Table), des.(*catalog.Table))
	case catalog.KindIndex, catalog.KindView, catalog.KindFunction,
		catalog.KindProcedure, catalog.KindAggregate, catalog.KindTrigger, catalog.KindPolicy:
		return dropCreateIfChanged(cur, des, func() bool { return objectsEqual(kind, cur, des) })
	default:
		return nil, nil
	}
}

// objectsEqual compares the structural fields of kinds that take the
// drop+create path, ignoring the Comment field (handled by the comment
// sub-diff).
func objectsEqual(kind catalog.Kind, cur, des catalog.Object) bool {
	switch kind {
	case catalog.KindIndex:
		c, s := cur.(*catalog.Index), des.(*catalog.Index)
		return c.Unique == s.Unique && c.Def == s.Def
	case catalog.KindView:
		c, s := cur.(*catalog.View), des.(*catalog.View)
		return reflect.DeepEqual(c.Columns, s.Columns) && c.Def == s.Def &&
			c.SecurityInvoke == s.SecurityInvoke && c.Materialized == s.Materialized
	case catalog.KindFunction, catalog.KindProcedure, catalog.KindAggregate:
		c, s := cur.(*catalog.Function), des.(*catalog.Function)
		return funcEqual(c, s)
	case catalog.KindTrigger:
		c, s := cur.(*catalog.Trigger), des.(*catalog.Trigger)
		return c.OnTable == s.OnTable && c.Def == s.Def
	case catalog.KindPolicy:
		c, s := cur.(*catalog.Policy), des.(*catalog.Policy)
		return c.OnTable == s.OnTable && reflect.DeepEqual(c.Roles, s.Roles) &&
			c.Using == s.Using && c.WithCheck == s.WithCheck
	}
	return true
}

func funcEqual(c, s *catalog.Function) bool {
	if len(c.Params) != len(s.Params) {
		return false
	}
	for i := range c.Params {
		if c.Params[i].Name != s.Params[i].Name || c.Params[i].Mode != s.Params[i].Mode ||
			catalog.TypeName(c.Params[i].Type) != catalog.TypeName(s.Params[i].Type) {
			return false
		}
	}
	cRet, sRet := "", ""
	if c.Returns != nil {
		cRet = catalog.TypeName(c.Returns)
	}
	if s.Returns != nil {
		sRet = catalog.TypeName(s.Returns)
	}
	return cRet == sRet && c.Language == s.Language && c.Volatility == s.Volatility &&
		c.Strict == s.Strict && c.Security == s.Security && c.Parallel == s.Parallel && c.Body == s.Body
}

func domainEqual(c, s *catalog.Domain) bool {
	return catalog.TypeName(c.BaseType) == catalog.TypeName(s.BaseType) &&
		reflect.DeepEqual(c.Checks, s.Checks) &&
		exprText(c.Default) == exprText(s.Default) && c.NotNull == s.NotNull
}

func exprText(e catalog.Expr) string {
	if e == nil {
		return ""
	}
	return e.Text()
}

func dropCreateIfChanged(cur, des catalog.Object, equal func() bool) ([]plan.Operation, error) {
	if equal() {
		return nil, nil
	}
	return []plan.Operation{&plan.Drop{Object: cur}, &plan.Create{Object: des}}, nil
}

func (d *Differ) diffExtension(cur, des *catalog.Extension) ([]plan.Operation, error) {
	if cur.Version == des.Version {
		return nil, nil
	}
	return []plan.Operation{&plan.Drop{Object: cur}, &plan.Create{Object: des}}, nil
}

// diffEnum implements the spec's enum special case: appended values
// become Alter operations, anything else is a hard error.
func (d *Differ) diffEnum(cur, des *catalog.Enum) ([]plan.Operation, error) {
	if reflect.DeepEqual(cur.Values, des.Values) {
		return nil, nil
	}
	if len(des.Values) < len(cur.Values) {
		return nil, plan.UnsupportedError(fmt.Sprintf("enum %s: values cannot be removed (current has %v, desired has %v)", cur.QName, cur.Values, des.Values))
	}
	for i, v := range cur.Values {
		if des.Values[i] != v {
			return nil, plan.UnsupportedError(fmt.Sprintf("enum %s: existing value %q was renamed or reordered to %q", cur.QName, v, des.Values[i]))
		}
	}
	var ops []plan.Operation
	prev := cur.Values[len(cur.Values)-1]
	for _, v := range des.Values[len(cur.Values):] {
		ops = append(ops, &plan.EnumAddValue{Enum: cur.ID(), Value: v, After: prev})
		prev = v
	}
	return ops, nil
}

func (d *Differ) diffSequence(cur, des *catalog.Sequence) ([]plan.Operation, error) {
	if cur.OwnerTable == des.OwnerTable && cur.OwnerColumn == des.OwnerColumn {
		return nil, nil
	}
	return []plan.Operation{&plan.SequenceAlter{Seq: cur.ID(), OwnerTable: des.OwnerTable, OwnerColumn: des.OwnerColumn}}, nil
}

func byID(objs []catalog.Object) map[catalog.ID]catalog.Object {
	m := make(map[catalog.ID]catalog.Object, len(objs))
	for _, o := range objs {
		m[o.ID()] = o
	}
	return m
}

func sortOps(ops []plan.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].TargetID().Less(ops[j].TargetID())
	})
}
