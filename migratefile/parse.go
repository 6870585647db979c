// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package migratefile parses hand-authored migration files — plain SQL
// text optionally broken into `-- pgmt:section ...` blocks — into
// plan.Section values the apply path can execute, and persists which
// migrations have run in a tracking table.
package migratefile

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pgmt/pgmt/plan"
)

var (
	sectionHeader     = regexp.MustCompile(`^--\s*pgmt:section\s+(.*)$`)
	continuationLine  = regexp.MustCompile(`^--\s*pgmt:\s*(.*)$`)
	attr              = regexp.MustCompile(`(\w+)="([^"]*)"`)
	destructiveLeader = regexp.MustCompile(`(?i)^\s*(DROP\s+TABLE|TRUNCATE|DELETE\s+FROM)\b`)
)

// Parse splits text into Sections in file order. A file with no section
// markers becomes a single implicit Transactional section spanning the
// whole file, mirroring plan.EmitPlan's inverse.
func Parse(text string) ([]plan.Section, error) {
	lines := strings.Split(text, "\n")

	var sections []plan.Section
	cur := plan.Section{Mode: plan.Transactional}
	haveHeader := false
	var body strings.Builder

	flush := func() {
		cur.Statements = statementsOf(body.String())
		sections = append(sections, cur)
		body.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := sectionHeader.FindStringSubmatch(trimmed); m != nil {
			if haveHeader || body.Len() > 0 {
				flush()
			}
			var err error
			cur, err = parseHeaderAttrs(m[1])
			if err != nil {
				return nil, err
			}
			haveHeader = true
			continue
		}
		if m := continuationLine.FindStringSubmatch(trimmed); m != nil && haveHeader {
			extended, err := parseHeaderAttrs(m[1])
			if err != nil {
				return nil, err
			}
			mergeSection(&cur, extended)
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections, nil
}

func parseHeaderAttrs(raw string) (plan.Section, error) {
	sec := plan.Section{Mode: plan.Transactional}
	for _, m := range attr.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if err := applyAttr(&sec, key, val); err != nil {
			return plan.Section{}, err
		}
	}
	return sec, nil
}

func mergeSection(cur *plan.Section, extended plan.Section) {
	if extended.Name != "" {
		cur.Name = extended.Name
	}
	if extended.Mode != plan.Transactional {
		cur.Mode = extended.Mode
	}
	if extended.Timeout != 0 {
		cur.Timeout = extended.Timeout
	}
	if extended.RetryAttempts != 0 {
		cur.RetryAttempts = extended.RetryAttempts
	}
	if extended.RetryDelay != 0 {
		cur.RetryDelay = extended.RetryDelay
	}
	if extended.RetryBackoff != plan.NoBackoff {
		cur.RetryBackoff = extended.RetryBackoff
	}
	if extended.OnLockTimeout != plan.Fail {
		cur.OnLockTimeout = extended.OnLockTimeout
	}
}

func applyAttr(sec *plan.Section, key, val string) error {
	switch key {
	case "name":
		sec.Name = val
	case "mode":
		switch val {
		case "transactional":
			sec.Mode = plan.Transactional
		case "non-transactional":
			sec.Mode = plan.NonTransactional
		case "autocommit":
			sec.Mode = plan.Autocommit
		default:
			return plan.InvalidInput("mode", "unrecognized section mode "+strconv.Quote(val))
		}
	case "timeout":
		d, err := time.ParseDuration(val)
		if err != nil {
			return plan.InvalidInput("timeout", err.Error())
		}
		sec.Timeout = d
	case "retry_attempts":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return plan.InvalidInput("retry_attempts", "must be an integer >= 1")
		}
		sec.RetryAttempts = n
	case "retry_delay":
		d, err := time.ParseDuration(val)
		if err != nil {
			return plan.InvalidInput("retry_delay", err.Error())
		}
		sec.RetryDelay = d
	case "retry_backoff":
		switch val {
		case "none":
			sec.RetryBackoff = plan.NoBackoff
		case "exponential":
			sec.RetryBackoff = plan.ExponentialBackoff
		default:
			return plan.InvalidInput("retry_backoff", "unrecognized backoff "+strconv.Quote(val))
		}
	case "on_lock_timeout":
		switch val {
		case "fail":
			sec.OnLockTimeout = plan.Fail
		case "retry":
			sec.OnLockTimeout = plan.Retry
		default:
			return plan.InvalidInput("on_lock_timeout", "unrecognized policy "+strconv.Quote(val))
		}
	}
	return nil
}

// statementsOf splits a section's body into semicolon-terminated
// statements, classifying each by a conservative leading-keyword check:
// DROP TABLE, TRUNCATE, and DELETE FROM are Destructive, everything else
// is Safe. This is advisory only; apply_plan's safety gate is the
// enforcement point.
func statementsOf(body string) []plan.RenderedSql {
	var out []plan.RenderedSql
	for _, stmt := range splitStatements(body) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		safety := plan.Safe
		if destructiveLeader.MatchString(stmt) {
			safety = plan.Destructive
		}
		out = append(out, plan.RenderedSql{SQL: strings.TrimSpace(stmt), Safety: safety})
	}
	return out
}

// splitStatements breaks body on statement-terminating semicolons,
// dropping comment-only and blank lines first. It does not understand
// dollar-quoted function bodies containing embedded semicolons; such
// statements must be the sole statement in their section.
func splitStatements(body string) []string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "--") {
			continue
		}
		kept = append(kept, line)
	}
	joined := strings.Join(kept, "\n")
	if strings.Contains(joined, "$$") || strings.Contains(joined, "$function$") {
		return []string{joined}
	}
	return strings.Split(joined, ";")
}
