// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package shadow provisions a throwaway PostgreSQL database — the
// "desired state" oracle a schema's files are applied to so the engine
// can introspect what they describe, without ever touching the real
// target database.
package shadow

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/go-pgmt/pgmt/plan"
)

// Mode selects how the shadow database is provisioned.
type Mode uint8

const (
	// AutoDocker spins up a disposable container from Config.Image.
	AutoDocker Mode = iota
	// AutoSameServer creates a randomly named database on the server
	// identified by Config.ServerDSN.
	AutoSameServer
	// Manual connects to a pre-provisioned shadow database.
	Manual
)

// Config selects and parameterizes a provisioning Mode.
type Config struct {
	Mode Mode

	// Image is the container image used by AutoDocker, e.g. "postgres:16".
	Image string

	// ServerDSN is the connection string for AutoSameServer (pointing at
	// any database on the server the shadow database is created
	// alongside) or for Manual (pointing directly at the shadow
	// database).
	ServerDSN string

	// ReadinessBudget bounds how long AutoDocker waits for the container
	// to accept connections. Zero uses a 45s default.
	ReadinessBudget time.Duration

	// RefuseSystemIdentifier, if set, is compared against the
	// provisioned server's system_identifier; a mismatch aborts
	// provisioning rather than risk running against the wrong server.
	RefuseSystemIdentifier string

	// BootstrapScript runs once, before the schema script, typically to
	// create roles referenced by GRANT statements.
	BootstrapScript string
}

// Shadow is a provisioned, ready-to-use shadow database. Teardown must be
// called on every exit path; a Shadow is exclusive to one plan
// computation.
type Shadow struct {
	db       *sql.DB
	teardown func(context.Context) error
}

// DB returns the connection to the shadow database.
func (s *Shadow) DB() *sql.DB { return s.db }

// Apply runs script against the shadow database as a single simple-query
// batch, so a script containing several `;`-separated statements (one
// schema file's text, as LoadDesired applies them, or the bootstrap
// script) executes in one round trip.
func (s *Shadow) Apply(ctx context.Context, script string) error {
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return plan.ShadowError("applying schema script", err)
	}
	return nil
}

// Teardown releases every resource Provision acquired. It is safe to call
// more than once.
func (s *Shadow) Teardown(ctx context.Context) error {
	if s.teardown == nil {
		return nil
	}
	teardown := s.teardown
	s.teardown = nil
	return teardown(ctx)
}

// Provision builds a Shadow per cfg.Mode, applies cfg.BootstrapScript if
// set, and returns it ready for the schema script. The caller must defer
// a call to Teardown on every exit path, including panic/abort.
func Provision(ctx context.Context, cfg Config) (shadow *Shadow, err error) {
	var s *Shadow
	switch cfg.Mode {
	case AutoDocker:
		s, err = provisionDocker(ctx, cfg)
	case AutoSameServer:
		s, err = provisionSameServer(ctx, cfg)
	default:
		s, err = provisionManual(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = s.Teardown(ctx)
		}
	}()

	if cfg.RefuseSystemIdentifier != "" {
		if err = checkSystemIdentifier(ctx, s.db, cfg.RefuseSystemIdentifier); err != nil {
			return nil, err
		}
	}
	if cfg.BootstrapScript != "" {
		if err = s.Apply(ctx, cfg.BootstrapScript); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func provisionManual(ctx context.Context, cfg Config) (*Shadow, error) {
	db, err := sql.Open("postgres", cfg.ServerDSN)
	if err != nil {
		return nil, plan.ShadowError("connecting to manual shadow database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, plan.ShadowError("manual shadow database not reachable", err)
	}
	return &Shadow{db: db, teardown: func(context.Context) error { return db.Close() }}, nil
}

func provisionSameServer(ctx context.Context, cfg Config) (*Shadow, error) {
	server, err := sql.Open("postgres", cfg.ServerDSN)
	if err != nil {
		return nil, plan.ShadowError("connecting to server for same-server shadow database", err)
	}
	defer server.Close()

	name := "pgmt_shadow_" + uuid.NewString()[:8]
	if _, err := server.ExecContext(ctx, fmt.Sprintf(`CREATE DATABASE %s`, quoteIdent(name))); err != nil {
		return nil, plan.ShadowError("creating same-server shadow database", err)
	}

	shadowDSN, err := withDatabase(cfg.ServerDSN, name)
	if err != nil {
		return nil, plan.ShadowError("building same-server shadow DSN", err)
	}
	db, err := sql.Open("postgres", shadowDSN)
	if err != nil {
		return nil, plan.ShadowError("connecting to same-server shadow database", err)
	}

	teardown := func(ctx context.Context) error {
		_ = db.Close()
		dropServer, err := sql.Open("postgres", cfg.ServerDSN)
		if err != nil {
			return err
		}
		defer dropServer.Close()
		_, err = dropServer.ExecContext(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s WITH (FORCE)`, quoteIdent(name)))
		return err
	}
	return &Shadow{db: db, teardown: teardown}, nil
}

func withDatabase(dsn, dbName string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func checkSystemIdentifier(ctx context.Context, db *sql.DB, want string) error {
	var got string
	if err := db.QueryRowContext(ctx, `SELECT system_identifier::text FROM pg_control_system()`).Scan(&got); err != nil {
		return plan.ShadowError("reading shadow server's system_identifier", err)
	}
	if got != want {
		return plan.ShadowError(fmt.Sprintf("refusing to run against server with system_identifier %s (expected %s)", got, want), nil)
	}
	return nil
}
