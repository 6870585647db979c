// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package cascade expands a Differ's operation list so that every change
// PostgreSQL would otherwise reject for dependency reasons is preceded by
// explicit drops of its dependents and followed by their recreation.
package cascade

import (
	"fmt"

	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// Expander walks the current catalog's dependency graph to find what a
// triggering operation would otherwise break.
type Expander struct {
	chainSeq int
}

// New returns a ready Expander.
func New() *Expander { return &Expander{} }

// Expand returns ops with cascade members spliced in around every
// triggering Drop or AlterColumnType. Operations already present in ops
// for a dependent (its own Drop or Create, scheduled independently by the
// Differ) are reused rather than duplicated.
func (e *Expander) Expand(ops []plan.Operation, current, desired *catalog.Catalog) ([]plan.Operation, error) {
	byDrop, byCreate := indexByID(ops)
	handled := make(map[catalog.ID]bool)
	consumed := make(map[plan.Operation]bool)

	var out []plan.Operation
	for _, op := range ops {
		if consumed[op] {
			continue
		}
		switch o := op.(type) {
		case *plan.Drop:
			id := o.Object.ID()
			seg, err := e.expandDrop(o, id, current, desired, byDrop, byCreate, handled, consumed)
			if err != nil {
				return nil, err
			}
			out = append(out, seg...)
		case *plan.AlterColumnType:
			seg, err := e.expandAlter(o, current, desired, byDrop, byCreate, handled, consumed)
			if err != nil {
				return nil, err
			}
			out = append(out, seg...)
		default:
			out = append(out, op)
		}
	}
	return out, nil
}

func (e *Expander) expandDrop(
	trigger *plan.Drop, id catalog.ID, current, desired *catalog.Catalog,
	byDrop, byCreate map[catalog.ID]plan.Operation,
	handled map[catalog.ID]bool, consumed map[plan.Operation]bool,
) ([]plan.Operation, error) {
	drops, creates := e.dependentOps(id, current, desired, byDrop, byCreate, handled, consumed)

	seg := append([]plan.Operation{}, drops...)
	seg = append(seg, trigger)
	consumed[trigger] = true
	// The object's own recreation, when the Differ paired this Drop with
	// a Create of the same id (a structural change with no alter path).
	if selfCreate, ok := byCreate[id]; ok && !consumed[selfCreate] {
		seg = append(seg, selfCreate)
		consumed[selfCreate] = true
		seg = append(seg, regrants(id, desired)...)
	}
	seg = append(seg, creates...)
	e.tagChain(seg)
	return seg, nil
}

func (e *Expander) expandAlter(
	trigger *plan.AlterColumnType, current, desired *catalog.Catalog,
	byDrop, byCreate map[catalog.ID]plan.Operation,
	handled map[catalog.ID]bool, consumed map[plan.Operation]bool,
) ([]plan.Operation, error) {
	drops, creates := e.dependentOps(trigger.Table, current, desired, byDrop, byCreate, handled, consumed)
	if len(drops) == 0 && len(creates) == 0 {
		return []plan.Operation{trigger}, nil
	}
	seg := append([]plan.Operation{}, drops...)
	seg = append(seg, trigger)
	seg = append(seg, creates...)
	e.tagChain(seg)
	return seg, nil
}

// dependentOps computes the transitive dependents of id in current and
// returns their drops (using whatever the Differ already scheduled, or a
// fresh synthesis from current) and their recreations plus re-granted
// privileges (using the desired catalog, when the dependent survives
// there).
func (e *Expander) dependentOps(
	id catalog.ID, current, desired *catalog.Catalog,
	byDrop, byCreate map[catalog.ID]plan.Operation,
	handled map[catalog.ID]bool, consumed map[plan.Operation]bool,
) (drops, creates []plan.Operation) {
	for _, dep := range current.TransitiveRefs(id) {
		if handled[dep] {
			continue
		}
		handled[dep] = true

		if existing, ok := byDrop[dep]; ok {
			drops = append(drops, existing)
			consumed[existing] = true
		} else if obj, ok := current.Object(dep); ok {
			drops = append(drops, &plan.Drop{Object: obj})
		}

		if existing, ok := byCreate[dep]; ok {
			creates = append(creates, existing)
			consumed[existing] = true
			creates = append(creates, regrants(dep, desired)...)
		} else if obj, ok := desired.Object(dep); ok {
			creates = append(creates, &plan.Create{Object: obj})
			creates = append(creates, regrants(dep, desired)...)
		}
	}
	return drops, creates
}

func regrants(id catalog.ID, desired *catalog.Catalog) []plan.Operation {
	var ops []plan.Operation
	for _, g := range desired.Kind(catalog.KindGrant) {
		grant := g.(*catalog.Grant)
		if grant.On == id {
			ops = append(ops, &plan.GrantOp{Grant: *grant})
		}
	}
	return ops
}

func (e *Expander) tagChain(seg []plan.Operation) {
	chain := fmt.Sprintf("cascade-%d", e.chainSeq)
	e.chainSeq++
	for seq, op := range seg {
		m := op.Meta()
		m.Chain = chain
		m.Seq = seq
	}
}

func indexByID(ops []plan.Operation) (byDrop, byCreate map[catalog.ID]plan.Operation) {
	byDrop = make(map[catalog.ID]plan.Operation)
	byCreate = make(map[catalog.ID]plan.Operation)
	for _, op := range ops {
		switch o := op.(type) {
		case *plan.Drop:
			byDrop[o.Object.ID()] = o
		case *plan.Create:
			byCreate[o.Object.ID()] = o
		}
	}
	return byDrop, byCreate
}
