// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package catalog

import "sort"

// Catalog is an in-memory snapshot of every managed object in one
// database. The Introspector builds it; afterwards only loader.Augment
// adds to it (cross-file dependency edges). The Differ compares two
// Catalogs, it never edits one.
type Catalog struct {
	objects map[ID]Object
	// deps is the forward dependency map: an edge
	// a -> b means a depends on b (b must exist before a, a must be
	// dropped before b). The Introspector writes it; loader.Augment
	// adds cross-file edges.
	deps map[ID]map[ID]bool
}

// New returns an empty Catalog ready to be populated by a builder (the
// Introspector, or a test fixture).
func New() *Catalog {
	return &Catalog{
		objects: make(map[ID]Object),
		deps:    make(map[ID]map[ID]bool),
	}
}

// Add registers an object under its own ObjectId. It is an error (panic,
// since this is only ever called by trusted builders) to add the same
// ObjectId twice.
func (c *Catalog) Add(o Object) {
	id := o.ID()
	if _, ok := c.objects[id]; ok {
		panic("catalog: duplicate object id " + id.String())
	}
	c.objects[id] = o
	if _, ok := c.deps[id]; !ok {
		c.deps[id] = make(map[ID]bool)
	}
}

// DependsOn records that a depends on b. Bootstrap
// identities (pg_catalog.*, information_schema.*) are accepted but
// ignored by ordering; they are never added as Catalog objects.
func (c *Catalog) DependsOn(a, b ID) {
	if _, ok := c.deps[a]; !ok {
		c.deps[a] = make(map[ID]bool)
	}
	c.deps[a][b] = true
}

// Object returns the object registered under id, if any.
func (c *Catalog) Object(id ID) (Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// Deps returns the set of ObjectIds that id directly depends on.
func (c *Catalog) Deps(id ID) []ID {
	set := c.deps[id]
	out := make([]ID, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sortIDs(out)
	return out
}

// Refs returns the set of ObjectIds that directly depend on id — the
// reverse map, derived on demand.
func (c *Catalog) Refs(id ID) []ID {
	var out []ID
	for a, bs := range c.deps {
		if bs[id] {
			out = append(out, a)
		}
	}
	sortIDs(out)
	return out
}

// TransitiveRefs returns every ObjectId that depends, directly or
// transitively, on id — the set the Cascade Expander walks when an
// alteration would otherwise be rejected by PostgreSQL.
func (c *Catalog) TransitiveRefs(id ID) []ID {
	seen := make(map[ID]bool)
	var walk func(ID)
	walk = func(cur ID) {
		for _, r := range c.Refs(cur) {
			if !seen[r] {
				seen[r] = true
				walk(r)
			}
		}
	}
	walk(id)
	out := make([]ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

// IDs returns every ObjectId in the catalog in lexicographic
// (deterministic) order.
func (c *Catalog) IDs() []ID {
	out := make([]ID, 0, len(c.objects))
	for id := range c.objects {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

// Kind returns every object of the given kind, in deterministic order.
func (c *Catalog) Kind(k Kind) []Object {
	var out []Object
	for _, id := range c.IDs() {
		if id.Kind == k {
			out = append(out, c.objects[id])
		}
	}
	return out
}

// Table looks up a table by schema-qualified name.
func (c *Catalog) Table(schema, name string) (*Table, bool) {
	o, ok := c.Object(NewID(KindTable, schema, name))
	if !ok {
		return nil, false
	}
	t, ok := o.(*Table)
	return t, ok
}

func sortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// CheckInvariants validates the structural invariants required
// of a well-formed Catalog: every object has a (possibly empty) entry in
// the dependency map, and no dependency edge points at an unknown,
// non-bootstrap ObjectId.
func (c *Catalog) CheckInvariants() error {
	for id := range c.objects {
		if _, ok := c.deps[id]; !ok {
			return &invariantError{id: id, reason: "missing dependency-map entry"}
		}
	}
	for a, bs := range c.deps {
		if _, ok := c.objects[a]; !ok {
			return &invariantError{id: a, reason: "dependency-map entry for unknown object"}
		}
		for b := range bs {
			if _, ok := c.objects[b]; !ok && !b.isBootstrap() {
				return &invariantError{id: b, reason: "dependency edge to unknown object"}
			}
		}
	}
	return nil
}

type invariantError struct {
	id     ID
	reason string
}

func (e *invariantError) Error() string {
	return "catalog: invariant violated for " + e.id.String() + ": " + e.reason
}
