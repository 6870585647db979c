// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migratefile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-pgmt/pgmt/plan"
)

func TestParse_NoSectionsIsOneImplicitSection(t *testing.T) {
	sections, err := Parse("CREATE TABLE a (id int);\nCREATE TABLE b (id int);\n")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, "", sections[0].Name)
	require.Equal(t, plan.Transactional, sections[0].Mode)
	require.Len(t, sections[0].Statements, 2)
}

func TestParse_SectionHeaderAttrs(t *testing.T) {
	text := `-- pgmt:section name="add_index" mode="non-transactional" timeout="30s"
CREATE INDEX CONCURRENTLY idx_users_email ON users (email);
`
	sections, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Equal(t, "add_index", sections[0].Name)
	require.Equal(t, plan.NonTransactional, sections[0].Mode)
	require.Equal(t, 30*time.Second, sections[0].Timeout)
}

func TestParse_MultiLineContinuation(t *testing.T) {
	text := `-- pgmt:section name="backfill" mode="autocommit"
-- pgmt: retry_attempts="3"
-- pgmt: retry_delay="500ms"
-- pgmt: retry_backoff="exponential"
-- pgmt: on_lock_timeout="retry"
UPDATE users SET status = 'active' WHERE status IS NULL;
`
	sections, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	sec := sections[0]
	require.Equal(t, "backfill", sec.Name)
	require.Equal(t, plan.Autocommit, sec.Mode)
	require.Equal(t, 3, sec.RetryAttempts)
	require.Equal(t, plan.ExponentialBackoff, sec.RetryBackoff)
	require.Equal(t, plan.Retry, sec.OnLockTimeout)
}

func TestParse_MultipleSectionsInFileOrder(t *testing.T) {
	text := `CREATE TABLE staging (id int);

-- pgmt:section name="swap" mode="transactional"
ALTER TABLE staging RENAME TO live;

-- pgmt:section name="reindex" mode="non-transactional"
CREATE INDEX CONCURRENTLY idx_live_id ON live (id);
`
	sections, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	require.Equal(t, "", sections[0].Name)
	require.Equal(t, "swap", sections[1].Name)
	require.Equal(t, "reindex", sections[2].Name)
	require.Equal(t, plan.NonTransactional, sections[2].Mode)
}

func TestParse_DestructiveStatementClassification(t *testing.T) {
	sections, err := Parse("DROP TABLE legacy_events;\nDELETE FROM users WHERE id = 1;\nSELECT 1;\n")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	stmts := sections[0].Statements
	require.Len(t, stmts, 3)
	require.Equal(t, plan.Destructive, stmts[0].Safety)
	require.Equal(t, plan.Destructive, stmts[1].Safety)
	require.Equal(t, plan.Safe, stmts[2].Safety)
}

func TestParse_InvalidModeIsInvalidInput(t *testing.T) {
	_, err := Parse(`-- pgmt:section name="bad" mode="yolo"
SELECT 1;
`)
	require.Error(t, err)
	var perr *plan.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, plan.KindInvalidInput, perr.Kind)
}
