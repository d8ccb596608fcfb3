package evallang

import "fmt"

// Value is any runtime value the evaluator can produce or bind.
type Value interface {
	isValue()
	String() string
}

type Int int64

func (Int) isValue()        {}
func (v Int) String() string { return fmt.Sprintf("%d", int64(v)) }

type Bool bool

func (Bool) isValue()        {}
func (v Bool) String() string { return fmt.Sprintf("%t", bool(v)) }

type Str string

func (Str) isValue()        {}
func (v Str) String() string { return string(v) }

type Nil struct{}

func (Nil) isValue()        {}
func (Nil) String() string { return "nil" }

// Thunk is a suspended computation: an expression paired with the
// environment it closes over. Forcing it evaluates the expression once
// and caches the result; the Execution Observer's variable lookup never
// forces a thunk, since doing so would perturb evaluation order.
type Thunk struct {
	Expr   Expr
	Env    *Env
	forced bool
	value  Value
}

func (*Thunk) isValue()        {}
func (*Thunk) String() string { return "<thunk>" }

// Closure is a Lambda paired with the environment captured at the point
// it was created.
type Closure struct {
	Lambda *Lambda
	Env    *Env
}

func (*Closure) isValue() {}
func (c *Closure) String() string {
	if c.Lambda.Name != "" {
		return fmt.Sprintf("<closure %s>", c.Lambda.Name)
	}
	return "<closure>"
}
