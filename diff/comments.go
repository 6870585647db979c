// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package diff

import (
	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// commentDiff runs over every object kind that supports COMMENT ON,
// emitting SetComment/DropComment only for objects present in both
// catalogs; objects being created or dropped carry their comment within
// the Create/Drop payload instead (see postgres.Renderer.renderCreate).
// Per-column comments are not handled here: Column isn't a Commentable
// (it isn't independently addressable by ID), so they go through
// table.go's diffColumnComments and plan.ColumnComment instead.
func (d *Differ) commentDiff(current, desired *catalog.Catalog) []plan.Operation {
	var ops []plan.Operation
	for _, id := range current.IDs() {
		curObj, _ := current.Object(id)
		curC, ok := curObj.(catalog.Commentable)
		if !ok {
			continue
		}
		desObj, ok := desired.Object(id)
		if !ok {
			continue
		}
		desC, ok := desObj.(catalog.Commentable)
		if !ok {
			continue
		}
		cur, des := curC.CommentText(), desC.CommentText()
		if cur == des {
			continue
		}
		if des == "" {
			ops = append(ops, &plan.DropCommentOp{Target: id})
		} else {
			ops = append(ops, &plan.SetComment{Target: id, Text: des})
		}
	}
	return ops
}
