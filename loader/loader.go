// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package loader reads a directory of flat SQL schema files, honors
// explicit `-- require: path, ...` ordering directives between them, and
// returns the files in the order they must be applied to a throwaway
// database.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-pgmt/pgmt/plan"
)

// File is one schema file: its path relative to the loaded root, its raw
// text, and the paths it names in `-- require:` directives (already
// normalized to match other Files' RelPath).
type File struct {
	RelPath  string
	Text     string
	Requires []string
}

// requireDirective matches a "-- require: a, b, c" line anywhere in a
// file. Matching is line-oriented; the directive need not be the first
// line.
var requireDirective = regexp.MustCompile(`(?m)^\s*--\s*require:\s*(.+)$`)

// Load reads every *.sql file directly under root, parses its require
// directives, and returns the files topologically ordered: a file with
// no directives sorts lexicographically by path; a `require` edge
// overlays that baseline as a hard ordering constraint.
func Load(root string) ([]File, error) {
	names, err := sqlFileNames(root)
	if err != nil {
		return nil, plan.InvalidInput(root, err.Error())
	}

	files := make([]File, len(names))
	byPath := make(map[string]int, len(names))
	for i, name := range names {
		b, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			return nil, plan.InvalidInput(name, err.Error())
		}
		files[i] = File{RelPath: name, Text: string(b)}
		byPath[name] = i
	}
	for i := range files {
		reqs, err := parseRequires(files[i].Text, byPath)
		if err != nil {
			return nil, plan.InvalidInput(files[i].RelPath, err.Error())
		}
		files[i].Requires = reqs
	}

	return order(files, byPath)
}

// sqlFileNames lists the *.sql files directly under root, lexicographic.
func sqlFileNames(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// parseRequires extracts and normalizes every path named in the file's
// require directives, resolving the optional ".sql" suffix against the
// known file set and reporting any dangling reference.
func parseRequires(text string, byPath map[string]int) ([]string, error) {
	var out []string
	for _, m := range requireDirective.FindAllStringSubmatch(text, -1) {
		for _, raw := range strings.Split(m[1], ",") {
			p := strings.TrimSpace(raw)
			if p == "" {
				continue
			}
			resolved, ok := resolvePath(p, byPath)
			if !ok {
				return nil, fmt.Errorf("require directive names nonexistent file %q", p)
			}
			out = append(out, resolved)
		}
	}
	return out, nil
}

func resolvePath(p string, byPath map[string]int) (string, bool) {
	if _, ok := byPath[p]; ok {
		return p, true
	}
	withSuffix := p + ".sql"
	if _, ok := byPath[withSuffix]; ok {
		return withSuffix, true
	}
	return "", false
}

// order runs Kahn's algorithm over the require graph, with a
// lexicographic-by-path tiebreak at every step so the result is stable
// and human-predictable: absent any require directives, files simply
// come out in alphabetical order.
func order(files []File, byPath map[string]int) ([]File, error) {
	n := len(files)
	before := make([][]int, n) // before[i] = indices that must come after i
	indeg := make([]int, n)

	for i, f := range files {
		for _, req := range f.Requires {
			j := byPath[req]
			before[j] = append(before[j], i)
			indeg[i]++
		}
	}

	ready := make([]int, 0, n)
	for i := range files {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	sortByPath(ready, files)

	out := make([]File, 0, n)
	visited := make([]bool, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		if visited[i] {
			continue
		}
		visited[i] = true
		out = append(out, files[i])
		var newlyReady []int
		for _, j := range before[i] {
			indeg[j]--
			if indeg[j] == 0 {
				newlyReady = append(newlyReady, j)
			}
		}
		sortByPath(newlyReady, files)
		ready = mergeSortedByPath(ready, newlyReady, files)
	}

	if len(out) != n {
		var chain []string
		for i := range files {
			if !visited[i] {
				chain = append(chain, files[i].RelPath)
			}
		}
		sort.Strings(chain)
		return nil, plan.CycleError(chain, "schema files form a require cycle")
	}
	return out, nil
}

func sortByPath(idx []int, files []File) {
	sort.Slice(idx, func(a, b int) bool { return files[idx[a]].RelPath < files[idx[b]].RelPath })
}

func mergeSortedByPath(a, b []int, files []File) []int {
	if len(b) == 0 {
		return a
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if files[a[i]].RelPath < files[b[j]].RelPath {
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
