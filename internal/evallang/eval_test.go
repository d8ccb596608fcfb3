package evallang

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	expr, err := Parse("t.thunk", src)
	require.NoError(t, err)
	return expr
}

func TestEvalArithmetic(t *testing.T) {
	expr := mustParse(t, "(+ 1 (* 2 3))")
	ev := New(NopObserver{})
	v, err := ev.Evaluate(expr, NewEnv())
	require.NoError(t, err)
	require.Equal(t, Int(7), v)
}

func TestEvalLambdaApplication(t *testing.T) {
	expr := mustParse(t, "(let (sq (lambda (x) (* x x))) (sq 5))")
	ev := New(NopObserver{})
	v, err := ev.Evaluate(expr, NewEnv())
	require.NoError(t, err)
	require.Equal(t, Int(25), v)
}

func TestEvalIf(t *testing.T) {
	expr := mustParse(t, "(if (< 1 2) 10 20)")
	ev := New(NopObserver{})
	v, err := ev.Evaluate(expr, NewEnv())
	require.NoError(t, err)
	require.Equal(t, Int(10), v)
}

func TestEvalLazyArgumentNeverForcedIfUnused(t *testing.T) {
	// The argument (/ 1 0) would error if forced; since `ignore` ignores it,
	// laziness means evaluation succeeds.
	expr := mustParse(t, "(let (ignore (lambda (x) 42)) (ignore (/ 1 0)))")
	ev := New(NopObserver{})
	v, err := ev.Evaluate(expr, NewEnv())
	require.NoError(t, err)
	require.Equal(t, Int(42), v)
}

func TestEvalDelayForceCaching(t *testing.T) {
	expr := mustParse(t, "(let (x (delay (+ 1 1))) (+ x x))")
	ev := New(NopObserver{})
	v, err := ev.Evaluate(expr, NewEnv())
	require.NoError(t, err)
	require.Equal(t, Int(4), v)
}

func TestEvalUnboundVariable(t *testing.T) {
	expr := mustParse(t, "missing")
	ev := New(NopObserver{})
	_, err := ev.Evaluate(expr, NewEnv())
	require.Error(t, err)
}

func TestEvalDivisionByZero(t *testing.T) {
	expr := mustParse(t, "(/ 1 0)")
	ev := New(NopObserver{})
	_, err := ev.Evaluate(expr, NewEnv())
	require.Error(t, err)
}

type countingObserver struct {
	NopObserver
	ops int
}

func (c *countingObserver) OnExecuteOp(sp Span, ip int, op Op, stack []Value) {
	c.ops++
}

func TestEvalReportsEveryOp(t *testing.T) {
	expr := mustParse(t, "(+ 1 2)")
	obs := &countingObserver{}
	ev := New(obs)
	_, err := ev.Evaluate(expr, NewEnv())
	require.NoError(t, err)
	// One op for the bin_op node, one const for each operand.
	require.Equal(t, 3, obs.ops)
}

type abortingObserver struct {
	NopObserver
	ev    *Evaluator
	after int
	seen  int
}

func (a *abortingObserver) OnExecuteOp(sp Span, ip int, op Op, stack []Value) {
	a.seen++
	if a.seen >= a.after {
		a.ev.Abort()
	}
}

func TestEvalAbortUnwindsPromptly(t *testing.T) {
	expr := mustParse(t, "(let (sq (lambda (x) (* x x))) (sq (sq (sq 2))))")
	ev := New(nil)
	obs := &abortingObserver{ev: ev, after: 2}
	ev.observer = obs
	_, err := ev.Evaluate(expr, NewEnv())
	require.ErrorIs(t, err, ErrAborted)
}
