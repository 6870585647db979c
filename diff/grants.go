// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package diff

import (
	"github.com/go-pgmt/pgmt/catalog"
	"github.com/go-pgmt/pgmt/plan"
)

// grantDiff treats grants as a set keyed by (object, grantee, privilege):
// set difference yields GRANT/REVOKE operations. A grant whose object is
// itself being dropped is filtered — PostgreSQL revokes it implicitly.
func (d *Differ) grantDiff(current, desired *catalog.Catalog) []plan.Operation {
	curGrants := byID(current.Kind(catalog.KindGrant))
	desGrants := byID(desired.Kind(catalog.KindGrant))

	var ops []plan.Operation
	for id, o := range curGrants {
		cur := o.(*catalog.Grant)
		des, ok := desGrants[id]
		if !ok {
			if _, stillExists := desired.Object(cur.On); stillExists {
				ops = append(ops, &plan.RevokeOp{Grant: *cur})
			}
			continue
		}
		if cur.WithGrant != des.(*catalog.Grant).WithGrant {
			ops = append(ops, &plan.GrantOp{Grant: *des.(*catalog.Grant)})
		}
	}
	for id, o := range desGrants {
		if _, ok := curGrants[id]; !ok {
			ops = append(ops, &plan.GrantOp{Grant: *o.(*catalog.Grant)})
		}
	}
	return ops
}
