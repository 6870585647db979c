// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package plan

import (
	"fmt"
	"io"
	"strings"
)

// EmitPlan writes sections to sink as a single migration file, one
// "-- pgmt:section ..." header per section followed by its statements.
// A plan with exactly one implicit (unnamed, Transactional) section is
// written without any header, matching a migration file that never
// declared sections.
func EmitPlan(sections []Section, sink io.Writer) error {
	if len(sections) == 1 && sections[0].Name == "" && sections[0].Mode == Transactional {
		return writeStatements(sink, sections[0].Statements)
	}
	for _, sec := range sections {
		if _, err := fmt.Fprintf(sink, "-- pgmt:section name=%q mode=%q", sec.Name, sec.Mode); err != nil {
			return err
		}
		if sec.Timeout > 0 {
			if _, err := fmt.Fprintf(sink, " timeout=%q", sec.Timeout); err != nil {
				return err
			}
		}
		if sec.RetryAttempts > 0 {
			if _, err := fmt.Fprintf(sink, " retry_attempts=%q", fmt.Sprint(sec.RetryAttempts)); err != nil {
				return err
			}
		}
		if sec.RetryDelay > 0 {
			if _, err := fmt.Fprintf(sink, " retry_delay=%q", sec.RetryDelay); err != nil {
				return err
			}
		}
		if sec.RetryBackoff == ExponentialBackoff {
			if _, err := fmt.Fprint(sink, ` retry_backoff="exponential"`); err != nil {
				return err
			}
		}
		if sec.OnLockTimeout == Retry {
			if _, err := fmt.Fprint(sink, ` on_lock_timeout="retry"`); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(sink); err != nil {
			return err
		}
		if err := writeStatements(sink, sec.Statements); err != nil {
			return err
		}
	}
	return nil
}

func writeStatements(sink io.Writer, stmts []RenderedSql) error {
	for _, s := range stmts {
		sql := strings.TrimRight(s.SQL, " \t\n")
		if !strings.HasSuffix(sql, ";") {
			sql += ";"
		}
		if _, err := fmt.Fprintln(sink, sql); err != nil {
			return err
		}
	}
	return nil
}
