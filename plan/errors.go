// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package plan

import "fmt"

// Kind distinguishes the error kinds collaborators branch on. There is no
// recovery logic in this package beyond section-level retry inside
// ApplyPlan; every other kind is reported and left to the caller.
type Kind uint8

const (
	_ Kind = iota
	KindInvalidInput
	KindCycle
	KindIntrospection
	KindUnsupported
	KindShadow
	KindApply
	KindSafety
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindCycle:
		return "cycle"
	case KindIntrospection:
		return "introspection"
	case KindUnsupported:
		return "unsupported"
	case KindShadow:
		return "shadow"
	case KindApply:
		return "apply"
	case KindSafety:
		return "safety"
	default:
		return "unknown"
	}
}

// Error is the single error type carried across package boundaries; Kind
// selects how a caller should react, the remaining fields carry whatever
// that reaction needs.
type Error struct {
	Kind Kind
	// Msg is a human-readable description.
	Msg string
	// Path is set for KindInvalidInput (offending file or config key).
	Path string
	// Query is set for KindIntrospection.
	Query string
	// Cycle is set for KindCycle: the ids or paths the topological sort
	// could not place, which are the loop's members plus anything that
	// waits on them.
	Cycle []string
	// SectionIndex/StatementIndex are set for KindApply.
	SectionIndex   int
	StatementIndex int
	// Destructive is set for KindSafety: the rendered statements that
	// were refused.
	Destructive []RenderedSql
	// Err wraps the underlying driver/filesystem error, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidInput:
		return fmt.Sprintf("plan: invalid input at %s: %s", e.Path, e.Msg)
	case KindCycle:
		return fmt.Sprintf("plan: cycle detected (%v): %s", e.Cycle, e.Msg)
	case KindIntrospection:
		return fmt.Sprintf("plan: introspection query %q failed: %s", e.Query, e.Msg)
	case KindUnsupported:
		return fmt.Sprintf("plan: unsupported transition: %s", e.Msg)
	case KindShadow:
		return fmt.Sprintf("plan: shadow database error: %s", e.Msg)
	case KindApply:
		return fmt.Sprintf("plan: apply failed at section %d, statement %d: %s", e.SectionIndex, e.StatementIndex, e.Msg)
	case KindSafety:
		return fmt.Sprintf("plan: %d destructive operation(s) refused by the current mode: %s", len(e.Destructive), e.Msg)
	default:
		return "plan: " + e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(path, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Path: path, Msg: msg}
}

// CycleError builds a KindCycle error from the path/id chain that forms it.
func CycleError(chain []string, msg string) *Error {
	return &Error{Kind: KindCycle, Cycle: chain, Msg: msg}
}

// IntrospectionError builds a KindIntrospection error wrapping err. It
// returns a nil *Error when err is nil; stored in an error interface,
// that nil pointer is a non-nil error.
func IntrospectionError(query string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIntrospection, Query: query, Msg: err.Error(), Err: err}
}

// UnsupportedError builds a KindUnsupported error.
func UnsupportedError(msg string) *Error {
	return &Error{Kind: KindUnsupported, Msg: msg}
}

// ShadowError builds a KindShadow error.
func ShadowError(msg string, err error) *Error {
	e := &Error{Kind: KindShadow, Msg: msg, Err: err}
	if err != nil && msg == "" {
		e.Msg = err.Error()
	}
	return e
}

// ApplyError builds a KindApply error.
func ApplyError(section, statement int, err error) *Error {
	return &Error{Kind: KindApply, SectionIndex: section, StatementIndex: statement, Msg: err.Error(), Err: err}
}

// SafetyError builds a KindSafety error listing the refused statements.
func SafetyError(destructive []RenderedSql) *Error {
	return &Error{Kind: KindSafety, Destructive: destructive, Msg: "refine the plan, lower the mode, or confirm explicitly"}
}
