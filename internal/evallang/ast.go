package evallang

// Expr is any parsed Thunk expression. Every node carries the span of
// the source text it was parsed from, so the evaluator can report a
// (file, line) for each step it takes.
type Expr interface {
	Span() Span
}

type IntLit struct {
	Sp    Span
	Value int64
}

type BoolLit struct {
	Sp    Span
	Value bool
}

type StrLit struct {
	Sp    Span
	Value string
}

type NilLit struct {
	Sp Span
}

// VarRef looks up Name in the current environment. If the bound value is
// a Thunk, evaluating a VarRef forces it.
type VarRef struct {
	Sp   Span
	Name string
}

// Lambda is a compiled function value: an optional name, its formal
// parameters, and a body expression. The name slot is what the Execution
// Observer's Print lookup searches first.
type Lambda struct {
	Sp     Span
	Name   string
	Params []string
	Body   Expr
}

func (l *Lambda) Span() Span { return l.Sp }

type App struct {
	Sp   Span
	Fn   Expr
	Args []Expr
}

type Let struct {
	Sp    Span
	Name  string
	Value Expr
	Body  Expr
}

type If struct {
	Sp   Span
	Cond Expr
	Then Expr
	Else Expr
}

type BinOp struct {
	Sp    Span
	Op    string // "+", "-", "*", "/", "<", "=="
	Left  Expr
	Right Expr
}

// Delay suspends Inner, producing a Thunk value rather than evaluating
// it immediately. Thunks are forced the first time a VarRef resolves to
// one; the Execution Observer's Print lookup never forces a thunk.
type Delay struct {
	Sp    Span
	Inner Expr
}

func (e *IntLit) Span() Span  { return e.Sp }
func (e *BoolLit) Span() Span { return e.Sp }
func (e *StrLit) Span() Span  { return e.Sp }
func (e *NilLit) Span() Span  { return e.Sp }
func (e *VarRef) Span() Span  { return e.Sp }
func (e *App) Span() Span     { return e.Sp }
func (e *Let) Span() Span     { return e.Sp }
func (e *If) Span() Span      { return e.Sp }
func (e *BinOp) Span() Span   { return e.Sp }
func (e *Delay) Span() Span   { return e.Sp }
