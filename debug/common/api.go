// Package common defines the narrow interfaces the Thunk debugger's
// transports (the DAP wire in internal/adapter, the MCP tool surface in
// internal/mcpsurface) are both built against, so neither transport needs
// to know the other exists.
package common

// SessionManager creates, looks up, lists, and tears down debug
// sessions. internal/mcpsurface.Manager implements this.
type SessionManager interface {
	// NewSession starts a fresh session, not yet launched.
	NewSession() (Session, error)

	// TerminateSession stops a session and releases its resources.
	TerminateSession(sessionID string) error

	// ListSessions returns the ids of all live sessions.
	ListSessions() []string

	// GetSession returns a session by id.
	GetSession(sessionID string) (Session, error)
}

// Session is a single paused-or-running evaluation under debugger
// control. internal/mcpsurface.Session implements this.
type Session interface {
	// ID returns the session's id.
	ID() string

	// Launch checks that manifest and expression are given and starts
	// evaluating program; expression does not select part of the program.
	Launch(manifest, program, expression string) error

	// SetBreakpoint arms a one-shot line breakpoint.
	SetBreakpoint(file string, line int) error

	// Continue resumes execution at full speed.
	Continue() error

	// Next advances exactly one opcode.
	Next() error

	// Evaluate looks up a named variable in the current frame.
	Evaluate(expr string) (string, error)

	// Terminate stops the session's evaluator thread.
	Terminate() error
}
