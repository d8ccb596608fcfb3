package evallang

// Op names the kind of step the evaluator just took, reported to the
// observer alongside the span it came from. These stand in for a real
// bytecode's opcodes; the evaluator here walks the AST directly rather
// than compiling to a flat instruction stream, but every step it takes
// corresponds to exactly one of these.
type Op string

const (
	OpConst        Op = "const"
	OpLoad         Op = "load"
	OpCall         Op = "call"
	OpReturn       Op = "return"
	OpJumpIfFalse  Op = "jump_if_false"
	OpForce        Op = "force"
	OpMakeClosure  Op = "make_closure"
	OpBinOp        Op = "bin_op"
)

// Frame is a snapshot of one call's activation, handed to
// OnExitFrame.
type Frame struct {
	Lambda *Lambda
	Depth  int
}

// RuntimeObserver is the callback surface the evaluator drives. An
// observer must not block OnEnterFrame/OnExitFrame/OnEnterGenerator/
// OnExitGenerator/OnSuspendGenerator — those are fired for bookkeeping
// only. OnExecuteOp is the sole pause point: a call to it may block for
// an arbitrary time while the observer consults a command channel.
type RuntimeObserver interface {
	OnEnterFrame(argCount int, lambda *Lambda, depth int)
	OnExitFrame(frame Frame, stack []Value)
	OnEnterGenerator()
	OnExitGenerator()
	OnSuspendGenerator()
	OnExecuteOp(span Span, ip int, op Op, stack []Value)
}

// NopObserver implements RuntimeObserver with empty bodies, useful for
// running the evaluator standalone (e.g. in evallang's own tests).
type NopObserver struct{}

func (NopObserver) OnEnterFrame(int, *Lambda, int)      {}
func (NopObserver) OnExitFrame(Frame, []Value)          {}
func (NopObserver) OnEnterGenerator()                   {}
func (NopObserver) OnExitGenerator()                    {}
func (NopObserver) OnSuspendGenerator()                 {}
func (NopObserver) OnExecuteOp(Span, int, Op, []Value) {}
