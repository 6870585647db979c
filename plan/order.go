// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package plan

import (
	"fmt"
	"sort"

	"github.com/go-pgmt/pgmt/catalog"
)

// Order returns a total ordering of ops such that:
//
//   - for any Drop(a), Drop(b), if a depends on b in current, Drop(a)
//     precedes Drop(b);
//   - for any Create(a), Create(b), if a depends on b in desired,
//     Create(b) precedes Create(a);
//   - a Drop of an object always precedes a Create of the same object;
//   - grants and comment operations follow their target's create and any
//     alteration of that target;
//   - operations the Cascade Expander grouped into one chain keep their
//     relative order.
//
// Ties are broken on TargetID's lexicographic order, making the result a
// single deterministic sequence for identical inputs. A dependency cycle
// that survives these rules is reported as a *Error of KindCycle.
func Order(ops []Operation, current, desired *catalog.Catalog) ([]Operation, error) {
	n := len(ops)
	before := make([][]int, n) // before[i] = indices that must come after i
	indeg := make([]int, n)

	addEdge := func(from, to int) {
		if from == to {
			return
		}
		before[from] = append(before[from], to)
		indeg[to]++
	}

	for i, x := range ops {
		for j, y := range ops {
			if i == j {
				continue
			}
			if mustPrecede(x, y, current, desired) {
				addEdge(i, j)
			}
		}
	}

	// Kahn's algorithm, with a deterministic ready set ordered by
	// TargetID so the result is stable across runs.
	ready := make([]int, 0, n)
	for i := range ops {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	sortByTarget(ready, ops)

	out := make([]Operation, 0, n)
	visited := make([]bool, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		if visited[i] {
			continue
		}
		visited[i] = true
		out = append(out, ops[i])
		var newlyReady []int
		for _, j := range before[i] {
			indeg[j]--
			if indeg[j] == 0 {
				newlyReady = append(newlyReady, j)
			}
		}
		sortByTarget(newlyReady, ops)
		ready = mergeSorted(ready, newlyReady, ops)
	}

	if len(out) != n {
		var chain []string
		for i := range ops {
			if !visited[i] {
				chain = append(chain, describe(ops[i]))
			}
		}
		return nil, CycleError(chain, "objects form a dependency cycle that cannot be broken by ordering rules")
	}
	return out, nil
}

func sortByTarget(idx []int, ops []Operation) {
	sort.Slice(idx, func(a, b int) bool {
		ta, tb := ops[idx[a]].TargetID(), ops[idx[b]].TargetID()
		if ta == tb {
			return idx[a] < idx[b]
		}
		return ta.Less(tb)
	})
}

// mergeSorted merges two already-sorted (by TargetID) index slices.
func mergeSorted(a, b []int, ops []Operation) []int {
	if len(b) == 0 {
		return a
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ta, tb := ops[a[i]].TargetID(), ops[b[j]].TargetID()
		if ta.Less(tb) || (ta == tb && a[i] < b[j]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func describe(op Operation) string {
	return fmt.Sprintf("%T(%s)", op, op.TargetID())
}

// mustPrecede reports whether x must run before y under the rules above.
func mustPrecede(x, y Operation, current, desired *catalog.Catalog) bool {
	// Chain sequencing takes priority: the Cascade Expander already knows
	// the relative order it needs.
	xm, ym := x.Meta(), y.Meta()
	if xm.Chain != "" && xm.Chain == ym.Chain {
		return xm.Seq < ym.Seq
	}

	switch xo := x.(type) {
	case *Drop:
		if yo, ok := y.(*Drop); ok {
			return containsID(current.Deps(xo.Object.ID()), yo.Object.ID())
		}
		if yo, ok := y.(*Create); ok {
			// A Drop always precedes a Create of the same object.
			return xo.Object.ID() == yo.Object.ID()
		}
	case *Create:
		if yo, ok := y.(*Create); ok {
			return containsID(desired.Deps(yo.Object.ID()), xo.Object.ID())
		}
	}

	// Grants and comments follow their target's create or alteration.
	if isCreateOrAlterOf(x, y.TargetID()) && isGrantOrComment(y) {
		return true
	}
	return false
}

func isCreateOrAlterOf(op Operation, id catalog.ID) bool {
	switch o := op.(type) {
	case *Create:
		return o.Object.ID() == id
	case *AddColumn, *DropColumn, *AlterColumnType, *AlterColumnNull,
		*AlterColumnDefault, *EnumAddValue, *SequenceAlter, *TableRowSecurity:
		return op.TargetID() == id
	}
	return false
}

func isGrantOrComment(op Operation) bool {
	switch op.(type) {
	case *GrantOp, *RevokeOp, *SetComment, *DropCommentOp, *ColumnComment:
		return true
	}
	return false
}

func containsID(ids []catalog.ID, id catalog.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
