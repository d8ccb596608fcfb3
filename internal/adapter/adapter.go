// Package adapter implements the Debugger Backend: the orchestrator that
// translates inbound DAP requests into Execution Observer commands,
// awaits replies, and drives the Protocol Front-End's lifecycle and
// outbound traffic.
package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/thunklang/thunk-dap/internal/frontend"
	"github.com/thunklang/thunk-dap/internal/observer"
	"github.com/thunklang/thunk-dap/log"
)

// observerJoinTimeout bounds how long disconnect waits for the
// Execution Observer to acknowledge Exit before giving up. The process
// is exiting either way; this only avoids hanging on a wedged evaluator.
const observerJoinTimeout = 2 * time.Second

// Adapter is the Debugger Backend for one session. Construct one per
// connection and call Serve.
type Adapter struct {
	client    *frontend.Client
	log       log.Logger
	sessionID string

	cmds    chan observer.Command
	replies chan observer.Reply

	observerHandle *observer.Handle
	shuttingDown   atomic.Bool
}

// New returns an Adapter for client, logging under a freshly minted
// session id so a log file spanning several sequential sessions stays
// attributable.
func New(client *frontend.Client, logger log.Logger) *Adapter {
	if logger == nil {
		logger = log.Nop
	}
	return &Adapter{
		client:    client,
		log:       logger,
		sessionID: uuid.NewString(),
	}
}

// Serve runs the single-threaded request dispatch loop until the client
// disconnects, the stream closes, or an unrecoverable error occurs.
//
// disconnect terminates the adapter (shuttingDown stops this loop before
// the next read), so a request arriving after ShutDown is never actually
// read back off the wire to be answered "adapter shut down" — the
// connection is already being torn down by then.
func (a *Adapter) Serve() error {
	a.log.Infof("session %s starting", a.sessionID)
	for !a.shuttingDown.Load() {
		msg, err := a.client.NextInbound()
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.log.Infof("session %s: client closed the stream", a.sessionID)
				return nil
			}
			return fmt.Errorf("session %s: %w", a.sessionID, err)
		}
		a.handle(msg)
	}
	a.log.Infof("session %s ended", a.sessionID)
	return nil
}

func (a *Adapter) handle(msg dap.Message) {
	switch req := msg.(type) {
	case *dap.InitializeRequest:
		a.handleInitialize(req)
	case *dap.LaunchRequest:
		a.handleLaunch(req)
	case *dap.SetBreakpointsRequest:
		a.handleSetBreakpoints(req)
	case *dap.ConfigurationDoneRequest:
		a.handleConfigurationDone(req)
	case *dap.ContinueRequest:
		a.handleContinue(req)
	case *dap.NextRequest:
		a.handleNext(req)
	case *dap.EvaluateRequest:
		a.handleEvaluate(req)
	case *dap.DisconnectRequest:
		a.handleDisconnect(req)
	default:
		a.handleUnsupported(msg)
	}
}

func (a *Adapter) startObserver() {
	a.cmds = make(chan observer.Command, 32)
	a.replies = make(chan observer.Reply, 32)
	a.observerHandle = observer.NewHandle()
	go observer.Run(a.observerHandle, a.cmds, a.replies, a.log)
}

func (a *Adapter) handleInitialize(req *dap.InitializeRequest) {
	a.startObserver()

	a.cmds <- observer.CmdInitialize{}
	reply, ok := (<-a.replies).(observer.ReplyInitialize)
	if !ok {
		a.sendErrorResponse(req.Seq, req.Command, "observer failed to initialize")
		return
	}

	a.client.AdvanceState(frontend.StateInitializing)

	a.client.Send(&dap.InitializeResponse{
		Response: a.newResponse(req.Seq, req.Command, true, ""),
		Body: dap.Capabilities{
			SupportsConfigurationDoneRequest: reply.Capabilities.SupportsConfigurationDoneRequest,
		},
	})

	// Response before event, always.
	a.client.AdvanceState(frontend.StateInitialized)
	a.client.Send(&dap.InitializedEvent{Event: a.newEvent("initialized")})
}

type launchArguments struct {
	Manifest   string `json:"manifest"`
	Program    string `json:"program"`
	Expression string `json:"expression"`
}

func (a *Adapter) handleLaunch(req *dap.LaunchRequest) {
	var args launchArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		a.sendErrorResponse(req.Seq, req.Command, "malformed launch arguments")
		return
	}
	if args.Manifest == "" {
		a.sendErrorResponse(req.Seq, req.Command, "Root file must be specified")
		return
	}
	if args.Expression == "" {
		a.sendErrorResponse(req.Seq, req.Command, "Expression must be specified")
		return
	}

	if a.cmds == nil {
		a.sendErrorResponse(req.Seq, req.Command, "adapter not initialized")
		return
	}

	a.cmds <- observer.CmdLaunch{ProgramPath: args.Program}
	reply, ok := (<-a.replies).(observer.ReplyLaunch)
	if !ok {
		a.sendErrorResponse(req.Seq, req.Command, "unexpected observer reply")
		return
	}
	if reply.Err != nil {
		a.sendErrorResponse(req.Seq, req.Command, reply.Err.Error())
		return
	}

	a.client.Send(&dap.LaunchResponse{Response: a.newResponse(req.Seq, req.Command, true, "")})
}

func (a *Adapter) handleSetBreakpoints(req *dap.SetBreakpointsRequest) {
	if a.cmds == nil {
		a.sendErrorResponse(req.Seq, req.Command, "adapter not initialized")
		return
	}

	file := req.Arguments.Source.Path
	verified := make([]dap.Breakpoint, 0, len(req.Arguments.Breakpoints))
	for _, bp := range req.Arguments.Breakpoints {
		a.cmds <- observer.CmdSetBreakpoint{
			Breakpoint: observer.Breakpoint{File: file, Line: uint(bp.Line)},
		}
		<-a.replies // ReplySetBreakpoint
		verified = append(verified, dap.Breakpoint{Verified: true, Line: bp.Line, Source: req.Arguments.Source})
	}

	a.client.Send(&dap.SetBreakpointsResponse{
		Response: a.newResponse(req.Seq, req.Command, true, ""),
		Body:     dap.SetBreakpointsResponseBody{Breakpoints: verified},
	})
}

// handleConfigurationDone is acknowledgement-only: nothing in this
// adapter's launch sequence depends on waiting for it (see DESIGN.md).
func (a *Adapter) handleConfigurationDone(req *dap.ConfigurationDoneRequest) {
	a.client.Send(&dap.ConfigurationDoneResponse{Response: a.newResponse(req.Seq, req.Command, true, "")})
}

func (a *Adapter) handleContinue(req *dap.ContinueRequest) {
	if a.cmds == nil {
		a.sendErrorResponse(req.Seq, req.Command, "adapter not initialized")
		return
	}
	a.cmds <- observer.CmdContinue{}
	<-a.replies
	a.client.Send(&dap.ContinueResponse{
		Response: a.newResponse(req.Seq, req.Command, true, ""),
		Body:     dap.ContinueResponseBody{AllThreadsContinued: true},
	})
}

func (a *Adapter) handleNext(req *dap.NextRequest) {
	if a.cmds == nil {
		a.sendErrorResponse(req.Seq, req.Command, "adapter not initialized")
		return
	}
	a.cmds <- observer.CmdStep{}
	<-a.replies
	a.client.Send(&dap.NextResponse{Response: a.newResponse(req.Seq, req.Command, true, "")})
}

// handleEvaluate serves the custom "print" surface over DAP's standard
// evaluate request: the expression is treated as a bare variable name,
// matching the Execution Observer's name-slot lookup rather than a full
// expression language.
func (a *Adapter) handleEvaluate(req *dap.EvaluateRequest) {
	if a.cmds == nil {
		a.sendErrorResponse(req.Seq, req.Command, "adapter not initialized")
		return
	}
	a.cmds <- observer.CmdPrint{Name: req.Arguments.Expression}
	reply, ok := (<-a.replies).(observer.ReplyPrint)
	if !ok || !reply.Found {
		a.sendErrorResponse(req.Seq, req.Command, fmt.Sprintf("variable %q not found", req.Arguments.Expression))
		return
	}
	a.client.Send(&dap.EvaluateResponse{
		Response: a.newResponse(req.Seq, req.Command, true, ""),
		Body:     dap.EvaluateResponseBody{Result: reply.Value},
	})
}

// handleDisconnect is always accepted, regardless of prior lifecycle
// state: the lifecycle bookkeeping advance is best-effort (a rejected
// out-of-order transition is logged, not fatal), but the functional
// shutdown — raising the flag, telling the observer to exit, responding
// success — happens unconditionally.
//
// The observer handle is signalled directly, not just through cmds: a
// Running evaluation never reads the command channel between breakpoints,
// so CmdExit alone could sit unread until the evaluation happens to pause
// or the join timeout below gives up on it. Raising the shared abort flag
// unwinds the evaluator promptly regardless of its current mode, and
// CmdExit is still sent so the observer's post-unwind drain has something
// to reply to.
func (a *Adapter) handleDisconnect(req *dap.DisconnectRequest) {
	a.client.AdvanceState(frontend.StateShutDown)
	a.shuttingDown.Store(true)

	if a.observerHandle != nil {
		a.observerHandle.RequestShutdown()
	}

	if a.cmds != nil {
		select {
		case a.cmds <- observer.CmdExit{}:
			select {
			case <-a.replies:
			case <-time.After(observerJoinTimeout):
				a.log.Warnf("session %s: timed out waiting for observer to exit", a.sessionID)
			}
		default:
			a.log.Warnf("session %s: command channel full while disconnecting", a.sessionID)
		}
	}

	a.client.Send(&dap.DisconnectResponse{Response: a.newResponse(req.Seq, req.Command, true, "")})
	a.client.Send(&dap.TerminatedEvent{Event: a.newEvent("terminated")})
}

func (a *Adapter) handleUnsupported(msg dap.Message) {
	reqMsg, ok := msg.(dap.RequestMessage)
	if !ok {
		a.log.Warnf("session %s: dropping unexpected message of type %T", a.sessionID, msg)
		return
	}
	req := reqMsg.GetRequest()
	a.log.Warnf("session %s: unsupported request %q", a.sessionID, req.Command)
	a.sendErrorResponse(req.Seq, req.Command, "unsupported request")
}

func (a *Adapter) sendErrorResponse(requestSeq int, command, message string) {
	a.client.Send(&dap.ErrorResponse{
		Response: a.newResponse(requestSeq, command, false, message),
		Body: dap.ErrorResponseBody{
			Error: &dap.ErrorMessage{Format: message},
		},
	})
}

func (a *Adapter) newResponse(requestSeq int, command string, success bool, message string) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.client.NextSeq(), Type: "response"},
		RequestSeq:      requestSeq,
		Success:         success,
		Command:         command,
		Message:         message,
	}
}

func (a *Adapter) newEvent(event string) dap.Event {
	return dap.Event{
		ProtocolMessage: dap.ProtocolMessage{Seq: a.client.NextSeq(), Type: "event"},
		Event:           event,
	}
}
