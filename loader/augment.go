// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package loader

import "github.com/go-pgmt/pgmt/catalog"

// Augment adds a dependency edge from every object that originated in a
// file to every object that originated in a file it requires. PostgreSQL
// cannot see cross-file links hidden inside function bodies or deferred
// constraint triggers, so this supplements the catalog-derived
// dependency graph with the ordering the schema author declared
// explicitly.
//
// originOf maps an ObjectId to the RelPath of the file the shadow
// database first materialized it from; the caller builds this by
// diffing the shadow catalog before and after applying each file in
// order.
func Augment(c *catalog.Catalog, files []File, originOf map[catalog.ID]string) {
	requiredBy := make(map[string][]string, len(files))
	for _, f := range files {
		requiredBy[f.RelPath] = f.Requires
	}

	byFile := make(map[string][]catalog.ID)
	for id, path := range originOf {
		byFile[path] = append(byFile[path], id)
	}

	for _, f := range files {
		dependents, ok := byFile[f.RelPath]
		if !ok {
			continue
		}
		for _, req := range requiredBy[f.RelPath] {
			for _, a := range dependents {
				for _, b := range byFile[req] {
					c.DependsOn(a, b)
				}
			}
		}
	}
}
