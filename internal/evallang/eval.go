package evallang

import (
	"fmt"
	"sync/atomic"
)

// ErrAborted is returned from Evaluate when Abort was called while an
// evaluation was in progress; the evaluator unwinds at the next
// OnExecuteOp rather than completing.
var ErrAborted = fmt.Errorf("evaluation aborted")

// Evaluator walks a Thunk AST, reporting every step to a RuntimeObserver.
// It is not safe for concurrent use: exactly one goroutine (the
// Execution Observer's dedicated thread) drives a given Evaluator.
type Evaluator struct {
	observer RuntimeObserver
	abort    atomic.Bool
	ip       int
	depth    int
	stack    []Value // closures currently active, deepest last
}

// New returns an Evaluator that reports to observer. observer must not
// be nil; pass NopObserver{} to run without instrumentation.
func New(observer RuntimeObserver) *Evaluator {
	return &Evaluator{observer: observer}
}

// Abort requests that the current (or next) Evaluate call unwind with
// ErrAborted at its next opcode boundary. Safe to call from any
// goroutine.
func (e *Evaluator) Abort() {
	e.abort.Store(true)
}

// Evaluate runs expr to completion in env, synchronously. It is intended
// to be the one long blocking call an Execution Observer makes on its
// dedicated thread.
func (e *Evaluator) Evaluate(expr Expr, env *Env) (Value, error) {
	return e.eval(expr, env)
}

func (e *Evaluator) step(expr Expr, op Op) error {
	e.ip++
	if e.abort.Load() {
		return ErrAborted
	}
	e.observer.OnExecuteOp(expr.Span(), e.ip, op, e.stack)
	return nil
}

func (e *Evaluator) eval(expr Expr, env *Env) (Value, error) {
	switch n := expr.(type) {
	case *IntLit:
		if err := e.step(n, OpConst); err != nil {
			return nil, err
		}
		return Int(n.Value), nil

	case *BoolLit:
		if err := e.step(n, OpConst); err != nil {
			return nil, err
		}
		return Bool(n.Value), nil

	case *StrLit:
		if err := e.step(n, OpConst); err != nil {
			return nil, err
		}
		return Str(n.Value), nil

	case *NilLit:
		if err := e.step(n, OpConst); err != nil {
			return nil, err
		}
		return Nil{}, nil

	case *VarRef:
		if err := e.step(n, OpLoad); err != nil {
			return nil, err
		}
		v, ok := env.Lookup(n.Name)
		if !ok {
			return nil, fmt.Errorf("%s: unbound variable %q", n.Sp, n.Name)
		}
		th, isThunk := v.(*Thunk)
		if !isThunk {
			return v, nil
		}
		if th.forced {
			return th.value, nil
		}
		if err := e.step(n, OpForce); err != nil {
			return nil, err
		}
		e.observer.OnEnterGenerator()
		forced, err := e.eval(th.Expr, th.Env)
		e.observer.OnExitGenerator()
		if err != nil {
			return nil, err
		}
		th.forced = true
		th.value = forced
		return forced, nil

	case *Delay:
		return &Thunk{Expr: n.Inner, Env: env}, nil

	case *Lambda:
		if err := e.step(n, OpMakeClosure); err != nil {
			return nil, err
		}
		return &Closure{Lambda: n, Env: env}, nil

	case *Let:
		// The value is evaluated in the scope that will hold the binding,
		// so a let-bound lambda can call itself by name.
		child := env.Child()
		v, err := e.eval(n.Value, child)
		if err != nil {
			return nil, err
		}
		// A lambda bound directly by let takes the binding's name, the
		// way `define` names one explicitly; this is what lets Print find
		// a function by the name it's commonly called by.
		if closure, ok := v.(*Closure); ok && closure.Lambda.Name == "" {
			closure.Lambda.Name = n.Name
		}
		child.Bind(n.Name, v)
		return e.eval(n.Body, child)

	case *If:
		if err := e.step(n, OpJumpIfFalse); err != nil {
			return nil, err
		}
		cv, err := e.eval(n.Cond, env)
		if err != nil {
			return nil, err
		}
		b, ok := cv.(Bool)
		if !ok {
			return nil, fmt.Errorf("%s: if condition is not a bool", n.Sp)
		}
		if bool(b) {
			return e.eval(n.Then, env)
		}
		return e.eval(n.Else, env)

	case *BinOp:
		if err := e.step(n, OpBinOp); err != nil {
			return nil, err
		}
		lv, err := e.eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		rv, err := e.eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		return applyBinOp(n.Op, lv, rv, n.Sp)

	case *App:
		if err := e.step(n, OpCall); err != nil {
			return nil, err
		}
		fv, err := e.eval(n.Fn, env)
		if err != nil {
			return nil, err
		}
		closure, ok := fv.(*Closure)
		if !ok {
			return nil, fmt.Errorf("%s: attempt to call a non-function", n.Sp)
		}
		if len(n.Args) != len(closure.Lambda.Params) {
			return nil, fmt.Errorf("%s: %s expects %d argument(s), got %d",
				n.Sp, describeLambda(closure.Lambda), len(closure.Lambda.Params), len(n.Args))
		}
		callEnv := closure.Env.Child()
		for i, argExpr := range n.Args {
			// Arguments are passed lazily: each becomes a thunk in the
			// callee's environment, forced only where it's actually used.
			callEnv.Bind(closure.Lambda.Params[i], &Thunk{Expr: argExpr, Env: env})
		}

		e.depth++
		e.stack = append(e.stack, closure)
		e.observer.OnEnterFrame(len(n.Args), closure.Lambda, e.depth)

		result, err := e.eval(closure.Lambda.Body, callEnv)

		frame := Frame{Lambda: closure.Lambda, Depth: e.depth}
		e.stack = e.stack[:len(e.stack)-1]
		e.observer.OnExitFrame(frame, e.stack)
		e.depth--

		if err != nil {
			return nil, err
		}
		if stepErr := e.step(n, OpReturn); stepErr != nil {
			return nil, stepErr
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unhandled expression type %T", expr)
	}
}

func describeLambda(l *Lambda) string {
	if l.Name != "" {
		return fmt.Sprintf("%q", l.Name)
	}
	return "anonymous lambda"
}

func applyBinOp(op string, lv, rv Value, sp Span) (Value, error) {
	li, lok := lv.(Int)
	ri, rok := rv.(Int)
	if !lok || !rok {
		return nil, fmt.Errorf("%s: operator %q requires two integers", sp, op)
	}
	switch op {
	case "+":
		return li + ri, nil
	case "-":
		return li - ri, nil
	case "*":
		return li * ri, nil
	case "/":
		if ri == 0 {
			return nil, fmt.Errorf("%s: division by zero", sp)
		}
		return li / ri, nil
	case "<":
		return Bool(li < ri), nil
	case "==":
		return Bool(li == ri), nil
	default:
		return nil, fmt.Errorf("%s: unknown operator %q", sp, op)
	}
}

// ActiveLambda returns the lambda of the innermost active call frame, or
// nil if evaluation is not currently inside a call.
func (e *Evaluator) ActiveLambda() *Lambda {
	if len(e.stack) == 0 {
		return nil
	}
	top, ok := e.stack[len(e.stack)-1].(*Closure)
	if !ok {
		return nil
	}
	return top.Lambda
}

// Stack returns a snapshot of the closures currently on the call stack,
// deepest (most recently entered) last.
func (e *Evaluator) Stack() []Value {
	return e.stack
}
