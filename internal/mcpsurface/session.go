// Package mcpsurface exposes the Debugger Backend's operations as MCP
// tools, for scripted or agent-driven debugging sessions. It talks to
// the Execution Observer directly rather than through the DAP wire,
// which is the point: the Adapter/Observer boundary is transport
// agnostic, and this is a second, additive transport proving it.
package mcpsurface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/thunklang/thunk-dap/debug/common"
	"github.com/thunklang/thunk-dap/internal/observer"
	"github.com/thunklang/thunk-dap/log"
)

var (
	_ common.SessionManager = (*Manager)(nil)
	_ common.Session        = (*Session)(nil)
)

// Session is one observer thread plus its command/reply channels,
// addressed by id from the MCP tool handlers.
type Session struct {
	id      string
	cmds    chan observer.Command
	replies chan observer.Reply
	handle  *observer.Handle
	log     log.Logger
}

// ID returns the session's id.
func (s *Session) ID() string { return s.id }

// Manager tracks the live sessions a single thunk-dap-mcp process is
// driving. Unlike the DAP surface's one-session-per-connection model,
// the MCP surface may juggle more than one session id at a time, since
// a scripted client issues session ids explicitly rather than relying on
// one connection per program.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	log      log.Logger
}

// NewManager returns an empty session manager.
func NewManager(logger log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop
	}
	return &Manager{sessions: map[string]*Session{}, log: logger}
}

// NewSession starts a fresh Execution Observer and returns the handle
// used to drive it.
func (m *Manager) NewSession() (common.Session, error) {
	id := uuid.NewString()
	cmds := make(chan observer.Command, 32)
	replies := make(chan observer.Reply, 32)
	handle := observer.NewHandle()
	go observer.Run(handle, cmds, replies, m.log)

	cmds <- observer.CmdInitialize{}
	<-replies

	s := &Session{id: id, cmds: cmds, replies: replies, handle: handle, log: m.log}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given id, if still live.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetSession returns the session with the given id, if still live.
func (m *Manager) GetSession(id string) (common.Session, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("no such session: %s", id)
	}
	return s, nil
}

// ListSessions returns the ids of all live sessions.
func (m *Manager) ListSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// TerminateSession sends Exit to the session's observer and forgets it.
func (m *Manager) TerminateSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such session: %s", id)
	}
	return s.Terminate()
}

// Terminate stops this session's evaluator thread. The shared handle is
// raised directly so a Running evaluation unwinds immediately rather
// than leaving CmdExit unread until it next happens to pause.
func (s *Session) Terminate() error {
	s.handle.RequestShutdown()
	s.cmds <- observer.CmdExit{}
	<-s.replies
	return nil
}

// Launch validates the required launch fields the same way the DAP
// surface's launch handler does, then forwards to the observer.
func (s *Session) Launch(manifest, program, expression string) error {
	if manifest == "" {
		return errors.New("Root file must be specified")
	}
	if expression == "" {
		return errors.New("Expression must be specified")
	}
	s.cmds <- observer.CmdLaunch{ProgramPath: program}
	reply, ok := (<-s.replies).(observer.ReplyLaunch)
	if !ok {
		return errors.New("unexpected observer reply")
	}
	return reply.Err
}

// SetBreakpoint arms a one-shot line breakpoint.
func (s *Session) SetBreakpoint(file string, line int) error {
	s.cmds <- observer.CmdSetBreakpoint{Breakpoint: observer.Breakpoint{File: file, Line: uint(line)}}
	<-s.replies
	return nil
}

// Continue resumes a paused evaluation at full speed until the next
// breakpoint or completion.
func (s *Session) Continue() error {
	s.cmds <- observer.CmdContinue{}
	<-s.replies
	return nil
}

// Next advances exactly one opcode.
func (s *Session) Next() error {
	s.cmds <- observer.CmdStep{}
	<-s.replies
	return nil
}

// Evaluate looks up name the way the Execution Observer's Print command
// does: the active lambda's own name, then named closures on the call
// stack.
func (s *Session) Evaluate(name string) (string, error) {
	s.cmds <- observer.CmdPrint{Name: name}
	reply, ok := (<-s.replies).(observer.ReplyPrint)
	if !ok || !reply.Found {
		return "", fmt.Errorf("variable %q not found", name)
	}
	return reply.Value, nil
}
