// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package plan

import "time"

// Safety classifies a RenderedSql fragment. It lives on the fragment, not
// on the Operation that produced it: the same Operation kind (Drop) can
// render Safe (a function, recreatable from schema files) or Destructive
// (a table, which loses data) depending on what it targets.
type Safety uint8

const (
	Safe Safety = iota
	Destructive
)

func (s Safety) String() string {
	if s == Destructive {
		return "destructive"
	}
	return "safe"
}

// LockMode controls how a section's statements are wrapped for execution.
type LockMode uint8

const (
	// Transactional wraps the section in BEGIN/COMMIT. The default.
	Transactional LockMode = iota
	// NonTransactional runs statements outside any transaction, required
	// for CREATE INDEX CONCURRENTLY and ALTER TYPE ... ADD VALUE.
	NonTransactional
	// Autocommit runs each statement as its own transaction.
	Autocommit
)

func (m LockMode) String() string {
	switch m {
	case NonTransactional:
		return "non-transactional"
	case Autocommit:
		return "autocommit"
	default:
		return "transactional"
	}
}

// LockTimeoutPolicy controls what ApplyPlan does when a statement fails
// with PostgreSQL's lock_timeout error (SQLSTATE 55P03). ApplyPlan does
// not set lock_timeout itself; Section.Timeout is carried through parsing
// and emitting but is not applied to the connection.
type LockTimeoutPolicy uint8

const (
	Fail LockTimeoutPolicy = iota
	Retry
)

func (p LockTimeoutPolicy) String() string {
	if p == Retry {
		return "retry"
	}
	return "fail"
}

// Backoff selects the delay strategy between retry attempts.
type Backoff uint8

const (
	NoBackoff Backoff = iota
	ExponentialBackoff
)

// Section groups one or more RenderedSql fragments that execute together
// under one lock mode, with an optional retry policy. A migration file
// without any explicit section marker is a single implicit Transactional
// section spanning the whole file.
type Section struct {
	Name           string
	Mode           LockMode
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RetryBackoff   Backoff
	OnLockTimeout  LockTimeoutPolicy
	Statements     []RenderedSql
}

// RenderedSql is one executable SQL fragment produced by the Renderer. It
// is the unit the Plan API and a migration file sink operate on.
type RenderedSql struct {
	SQL     string
	Safety  Safety
	// Op identifies which operation produced this fragment. The Renderer
	// sets it; statements parsed from a migration file leave it nil.
	// Nothing in this package reads it.
	Op Operation
}
