package observer

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/thunklang/thunk-dap/internal/evallang"
	"github.com/thunklang/thunk-dap/log"
)

// Handle lets a caller outside the observer's goroutine force an abort,
// independent of the command channel: the channel is only read while the
// observer is paused inside OnExecuteOp's command loop, but an abort must
// also take effect while it is running free between breakpoints. Every
// op checks this flag, so setting it unwinds the evaluator whether the
// observer happens to be paused or running at the time.
type Handle struct {
	shutdown atomic.Bool
}

// NewHandle returns a fresh, unset Handle.
func NewHandle() *Handle {
	return &Handle{}
}

// RequestShutdown raises the abort flag. Safe to call from any goroutine.
func (h *Handle) RequestShutdown() {
	h.shutdown.Store(true)
}

// ShutdownRequested reports whether RequestShutdown has been called.
func (h *Handle) ShutdownRequested() bool {
	return h.shutdown.Load()
}

// Mode is the observer's run mode, the state that governs whether
// OnExecuteOp blocks for a command or lets the evaluator run at speed.
type Mode int

const (
	ModeWaiting Mode = iota
	ModeStepping
	ModeRunning
	ModeDone
	ModeExiting
)

func (m Mode) String() string {
	switch m {
	case ModeWaiting:
		return "Waiting"
	case ModeStepping:
		return "Stepping"
	case ModeRunning:
		return "Running"
	case ModeDone:
		return "Done"
	case ModeExiting:
		return "Exiting"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Observer is the Execution Observer's state, owned exclusively by the
// goroutine that calls Run. Nothing outside that goroutine may touch its
// fields; all communication in is Command, all communication out is
// Reply.
type Observer struct {
	log       log.Logger
	cmds      <-chan Command
	replies   chan<- Reply
	shutdown    *Handle
	sourceMap   *evallang.SourceMap
	evaluator   *evallang.Evaluator
	programExpr evallang.Expr

	mode        Mode
	breakpoints map[uint]struct{}

	currentFrame *evallang.Lambda
	currentStack []evallang.Value
}

// Run is the Execution Observer's entry point. It pins itself to an OS
// thread for its entire lifetime because the evaluator call it makes is
// long-lived, synchronous, and must not be descheduled mid-evaluation the
// way an ordinary goroutine can be. handle must be created with NewHandle
// before Run is launched, so the caller can hold onto it and call
// RequestShutdown independent of whatever Run is doing at the time.
func Run(handle *Handle, cmds <-chan Command, replies chan<- Reply, logger log.Logger) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if logger == nil {
		logger = log.Nop
	}
	if handle == nil {
		handle = NewHandle()
	}
	o := &Observer{
		log:         logger,
		cmds:        cmds,
		replies:     replies,
		shutdown:    handle,
		sourceMap:   evallang.NewSourceMap(),
		breakpoints: map[uint]struct{}{},
		mode:        ModeWaiting,
	}
	o.run()
}

func (o *Observer) run() {
	for {
		cmd, ok := <-o.cmds
		if !ok {
			o.log.Debugf("observer: command channel closed, exiting")
			return
		}
		switch c := cmd.(type) {
		case CmdInitialize:
			o.replies <- ReplyInitialize{Capabilities: Capabilities{SupportsConfigurationDoneRequest: true}}
		case CmdLaunch:
			if o.mode != ModeWaiting {
				o.replies <- ReplyNotReady{Reason: "program already launched"}
				continue
			}
			err := o.launch(c.ProgramPath)
			o.replies <- ReplyLaunch{Err: err}
			if err != nil {
				continue
			}
			o.mode = ModeStepping
			o.evaluateAndDrain()
			return
		case CmdExit:
			o.mode = ModeExiting
			o.replies <- ReplyExit{}
			return
		case CmdSetBreakpoint:
			// Breakpoints set during the DAP configuration phase, before
			// launch, must take effect the moment evaluation starts, not
			// be silently dropped.
			o.breakpoints[c.Breakpoint.Line] = struct{}{}
			o.replies <- ReplySetBreakpoint{}
		default:
			// Any other command received before launch (Continue, Step,
			// Print) cannot be serviced yet.
			o.replyNotReady(cmd, "program not running")
		}
	}
}

func (o *Observer) launch(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	o.sourceMap.Register(path, string(src))
	expr, err := evallang.Parse(path, string(src))
	if err != nil {
		return fmt.Errorf("parsing program: %w", err)
	}
	o.evaluator = evallang.New(o)
	o.programExpr = expr
	return nil
}

func (o *Observer) evaluateAndDrain() {
	_, err := o.evaluator.Evaluate(o.programExpr, evallang.NewEnv())
	if err != nil {
		o.log.Infof("observer: evaluation ended with error: %v", err)
	} else {
		o.log.Infof("observer: evaluation completed")
	}
	o.mode = ModeDone
	o.drainUntilExit()
}

// drainUntilExit absorbs further commands with no-op acknowledgements
// once the evaluator has returned, until Exit is received.
func (o *Observer) drainUntilExit() {
	for {
		cmd, ok := <-o.cmds
		if !ok {
			return
		}
		if _, isExit := cmd.(CmdExit); isExit {
			o.mode = ModeExiting
			o.replies <- ReplyExit{}
			return
		}
		o.replyNotReady(cmd, "program terminated")
	}
}

// replyNotReady acknowledges a command the observer cannot act on right
// now, explaining why in the reason carried by the reply types that have
// one. reason distinguishes "not launched yet" from "already finished"
// for the caller, even though both states refuse the same commands.
func (o *Observer) replyNotReady(cmd Command, reason string) {
	switch cmd.(type) {
	case CmdContinue:
		o.replies <- ReplyContinue{}
	case CmdStep:
		o.replies <- ReplyStep{}
	case CmdSetBreakpoint:
		o.replies <- ReplySetBreakpoint{}
	case CmdPrint:
		o.replies <- ReplyPrint{Found: false}
	default:
		o.replies <- ReplyNotReady{Reason: reason}
	}
}

// --- evallang.RuntimeObserver implementation ---

func (o *Observer) OnEnterFrame(argCount int, lambda *evallang.Lambda, depth int) {
	o.currentFrame = lambda
}

func (o *Observer) OnExitFrame(frame evallang.Frame, stack []evallang.Value) {
	o.currentStack = stack
	if len(stack) > 0 {
		if c, ok := stack[len(stack)-1].(*evallang.Closure); ok {
			o.currentFrame = c.Lambda
		}
	} else {
		o.currentFrame = nil
	}
}

func (o *Observer) OnEnterGenerator()  {}
func (o *Observer) OnExitGenerator()   {}
func (o *Observer) OnSuspendGenerator() {}

// OnExecuteOp is the sole pause point. See the mode state machine this
// implements:
//
//	Waiting  --Launch-->  Stepping
//	Stepping --Step-->    Stepping
//	Stepping --Continue--> Running
//	Running  --(bp hit)--> Stepping
//	Running|Stepping --Exit--> Exiting
//
// The shutdown handle is checked on every call regardless of mode: a
// Running evaluation never blocks to read a command, so disconnect must
// be able to unwind it without one.
func (o *Observer) OnExecuteOp(span evallang.Span, ip int, op evallang.Op, stack []evallang.Value) {
	o.currentStack = stack

	if o.shutdown.ShutdownRequested() {
		o.mode = ModeExiting
		o.evaluator.Abort()
		return
	}

	line := o.sourceMap.LineOf(span)

	hit := false
	if _, ok := o.breakpoints[uint(line)]; ok {
		delete(o.breakpoints, uint(line)) // one-shot
		hit = true
	}
	if hit {
		o.mode = ModeStepping
	}
	if o.mode != ModeStepping && !hit {
		return
	}

	for {
		cmd, ok := <-o.cmds
		if !ok {
			o.evaluator.Abort()
			return
		}
		switch c := cmd.(type) {
		case CmdStep:
			o.mode = ModeStepping
			o.replies <- ReplyStep{}
			return
		case CmdContinue:
			o.mode = ModeRunning
			o.replies <- ReplyContinue{}
			return
		case CmdSetBreakpoint:
			o.breakpoints[c.Breakpoint.Line] = struct{}{}
			o.replies <- ReplySetBreakpoint{}
			continue
		case CmdPrint:
			value, found := o.lookupVariable(c.Name)
			o.replies <- ReplyPrint{Value: value, Found: found}
			continue
		case CmdExit:
			o.mode = ModeExiting
			o.replies <- ReplyExit{}
			o.evaluator.Abort()
			return
		case CmdLaunch:
			o.replies <- ReplyNotReady{Reason: "program already launched"}
			continue
		case CmdInitialize:
			o.replies <- ReplyInitialize{Capabilities: Capabilities{SupportsConfigurationDoneRequest: true}}
			continue
		}
	}
}

// lookupVariable implements the Print search order: the active lambda's
// own name slot first, then the named lambdas captured by Closure values
// on the current stack, deepest (top-of-stack) first. Suspended thunks
// are never forced by this search.
func (o *Observer) lookupVariable(name string) (string, bool) {
	if o.currentFrame != nil && o.currentFrame.Name == name {
		return fmt.Sprintf("<closure %s>", o.currentFrame.Name), true
	}
	for i := len(o.currentStack) - 1; i >= 0; i-- {
		c, ok := o.currentStack[i].(*evallang.Closure)
		if !ok {
			continue
		}
		if c.Lambda.Name == name {
			return c.String(), true
		}
	}
	return "", false
}
