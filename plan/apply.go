// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package plan

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"
)

// lockTimeoutCode is the PostgreSQL error code raised when a statement
// waits past lock_timeout.
const lockTimeoutCode pq.ErrorCode = "55P03"

// ExecQuerier wraps the subset of *sql.DB (or *sql.Tx) ApplyPlan needs.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Mode selects how ApplyPlan treats Destructive fragments.
type Mode uint8

const (
	// SafeOnly skips every Destructive fragment.
	SafeOnly Mode = iota
	// ConfirmAll requires the caller to have already confirmed the plan
	// out of band; ApplyPlan applies everything.
	ConfirmAll
	// ForceAll applies everything without any safety check.
	ForceAll
)

func (m Mode) String() string {
	switch m {
	case ConfirmAll:
		return "confirm_all"
	case ForceAll:
		return "force_all"
	default:
		return "safe_only"
	}
}

// Outcome reports what ApplyPlan did.
type Outcome struct {
	AppliedCount       int
	SkippedDueToSafety int
	AbortedOnError     error
}

// Tracker records which migration versions (or, for sectioned
// migrations, which sections) have already been applied. ApplyPlan
// consults it before running a section and records success after.
type Tracker interface {
	HasApplied(ctx context.Context, version, section string) (bool, error)
	MarkApplied(ctx context.Context, version, section string) error
}

// ApplyPlan executes sections in order against conn, honoring each
// section's lock mode and retry policy. It never retries across
// sections and never rolls back a partially applied plan; the caller's
// transaction envelope, if any, is its own concern.
func ApplyPlan(ctx context.Context, conn *sql.DB, version string, sections []Section, mode Mode, tracker Tracker, log Logger) (Outcome, error) {
	if log == nil {
		log = NopLogger{}
	}
	if tracker == nil {
		tracker = NopTracker{}
	}
	out := Outcome{}
	log.Log(LogPlan{Sections: len(sections), Mode: mode.String()})

	for i, sec := range sections {
		done, err := tracker.HasApplied(ctx, version, sec.Name)
		if err != nil {
			return out, ApplyError(i, -1, err)
		}
		if done {
			continue
		}
		log.Log(LogSection{Name: sec.Name, Index: i})

		if err := applySection(ctx, conn, i, sec, mode, log, &out); err != nil {
			out.AbortedOnError = err
			log.Log(LogError{Error: err})
			return out, err
		}
		if err := tracker.MarkApplied(ctx, version, sec.Name); err != nil {
			return out, ApplyError(i, -1, err)
		}
	}
	log.Log(LogDone{Applied: out.AppliedCount})
	return out, nil
}

func applySection(ctx context.Context, conn *sql.DB, idx int, sec Section, mode Mode, log Logger, out *Outcome) error {
	switch sec.Mode {
	case Transactional:
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return ApplyError(idx, -1, err)
		}
		if err := execStatements(ctx, tx, idx, sec, mode, log, out); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return ApplyError(idx, -1, err)
		}
		return nil
	case Autocommit:
		for j, stmt := range sec.Statements {
			if skip(stmt, mode, log, out) {
				continue
			}
			if err := execWithRetry(ctx, conn, idx, j, stmt, sec, log); err != nil {
				return err
			}
			out.AppliedCount++
		}
		return nil
	default: // NonTransactional
		return execStatements(ctx, conn, idx, sec, mode, log, out)
	}
}

func execStatements(ctx context.Context, q ExecQuerier, idx int, sec Section, mode Mode, log Logger, out *Outcome) error {
	for j, stmt := range sec.Statements {
		if skip(stmt, mode, log, out) {
			continue
		}
		if err := execWithRetry(ctx, q, idx, j, stmt, sec, log); err != nil {
			return err
		}
		out.AppliedCount++
	}
	return nil
}

func skip(stmt RenderedSql, mode Mode, log Logger, out *Outcome) bool {
	if stmt.Safety == Destructive && mode == SafeOnly {
		log.Log(LogSkip{SQL: stmt.SQL, Safety: stmt.Safety})
		out.SkippedDueToSafety++
		return true
	}
	return false
}

func execWithRetry(ctx context.Context, q ExecQuerier, section, statement int, stmt RenderedSql, sec Section, log Logger) error {
	log.Log(LogStmt{SQL: stmt.SQL, Safety: stmt.Safety})
	attempts := sec.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var b *backoff.Backoff
	if sec.RetryBackoff == ExponentialBackoff {
		b = backoff.New(sec.RetryDelay*time.Duration(attempts), sec.RetryDelay)
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		_, err := q.ExecContext(ctx, stmt.SQL)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockTimeout(err) || sec.OnLockTimeout != Retry {
			return ApplyError(section, statement, err)
		}
		log.Log(LogRetry{Section: sec.Name, Attempt: attempt + 1})
		delay := sec.RetryDelay
		if b != nil {
			delay = b.Duration()
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return ApplyError(section, statement, err)
		}
	}
	return ApplyError(section, statement, lastErr)
}

func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == lockTimeoutCode
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NopTracker treats every version/section as unapplied and records
// nothing; useful for EmitPlan-only callers or one-off replays.
type NopTracker struct{}

func (NopTracker) HasApplied(context.Context, string, string) (bool, error) { return false, nil }
func (NopTracker) MarkApplied(context.Context, string, string) error        { return nil }
