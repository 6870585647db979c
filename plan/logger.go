// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package plan

type (
	// A Logger receives structured events as ApplyPlan runs. It is not a
	// logging framework; it is a narrow seam for a collaborator to wire
	// into whatever one it already uses.
	Logger interface {
		Log(LogEntry)
	}

	// LogEntry marks the closed set of events a Logger can receive.
	LogEntry interface {
		logEntry()
	}

	// LogPlan is sent once, before the first section is applied.
	LogPlan struct {
		Sections int
		Mode     string
	}

	// LogSection is sent when a section begins executing.
	LogSection struct {
		Name  string
		Index int
	}

	// LogStmt is sent before a statement is executed.
	LogStmt struct {
		SQL    string
		Safety Safety
	}

	// LogRetry is sent when a section's statement is retried after a
	// lock timeout.
	LogRetry struct {
		Section string
		Attempt int
	}

	// LogSkip is sent when a statement is skipped because its safety
	// classification is refused by the current mode.
	LogSkip struct {
		SQL    string
		Safety Safety
	}

	// LogDone is sent once, after the last section completes.
	LogDone struct {
		Applied int
	}

	// LogError is sent when a statement aborts the apply.
	LogError struct {
		Error error
	}

	// NopLogger discards every entry.
	NopLogger struct{}
)

func (LogPlan) logEntry()    {}
func (LogSection) logEntry() {}
func (LogStmt) logEntry()    {}
func (LogRetry) logEntry()   {}
func (LogSkip) logEntry()    {}
func (LogDone) logEntry()    {}
func (LogError) logEntry()   {}

// Log implements Logger by discarding the entry.
func (NopLogger) Log(LogEntry) {}
