package evallang

// Env is an environment frame: a set of bindings plus a link to the
// enclosing scope. Lookups walk outward until a binding or the root is
// found.
type Env struct {
	parent *Env
	vars   map[string]Value
}

// NewEnv returns an empty root environment.
func NewEnv() *Env {
	return &Env{vars: map[string]Value{}}
}

// Child returns a new environment nested inside e.
func (e *Env) Child() *Env {
	return &Env{parent: e, vars: map[string]Value{}}
}

// Bind introduces name in this frame (shadowing any outer binding).
func (e *Env) Bind(name string, v Value) {
	e.vars[name] = v
}

// Lookup searches this frame and its ancestors for name.
func (e *Env) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}
