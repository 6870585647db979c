// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package shadow

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/go-pgmt/pgmt/plan"
)

const defaultReadinessBudget = 45 * time.Second

// provisionDocker runs a disposable container from cfg.Image and waits
// for it to accept connections before handing back a Shadow. The
// container is torn down, in one call, by the returned Shadow's
// Teardown.
func provisionDocker(ctx context.Context, cfg Config) (*Shadow, error) {
	image := cfg.Image
	if image == "" {
		image = "postgres:16"
	}
	budget := cfg.ReadinessBudget
	if budget <= 0 {
		budget = defaultReadinessBudget
	}

	ctr, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("shadow"),
		tcpostgres.WithUsername("shadow"),
		tcpostgres.WithPassword("shadow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(budget),
		),
	)
	if err != nil {
		return nil, plan.ShadowError("starting shadow database container", err)
	}

	teardown := func(ctx context.Context) error {
		return ctr.Terminate(ctx)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = teardown(ctx)
		return nil, plan.ShadowError("reading shadow database connection string", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = teardown(ctx)
		return nil, plan.ShadowError("opening shadow database connection", err)
	}

	if err := waitReady(ctx, db, budget); err != nil {
		_ = db.Close()
		_ = teardown(ctx)
		return nil, err
	}

	return &Shadow{
		db: db,
		teardown: func(ctx context.Context) error {
			_ = db.Close()
			return teardown(ctx)
		},
	}, nil
}

// waitReady polls SELECT 1 with exponential backoff until it succeeds or
// budget is exhausted. The container's own log-based wait strategy
// already gates Run's return, so this is a second, connection-level
// check against the driver actually used for introspection.
func waitReady(ctx context.Context, db *sql.DB, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	b := backoff.New(2*time.Second, 50*time.Millisecond)

	var lastErr error
	for time.Now().Before(deadline) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, lastErr = db.ExecContext(pingCtx, "SELECT 1")
		cancel()
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return plan.ShadowError("shadow database readiness wait canceled", ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
	return plan.ShadowError(fmt.Sprintf("shadow database did not become ready within %s", budget), lastErr)
}
