package script

import "fmt"

// Value is any value the engine can hold.
//
// The concrete types are: int64, float64, string, bool, Symbol, *Pair,
// the empty list Nil, Void, *Procedure, *Native and *Opaque.
type Value interface{}

// Symbol is an interned identifier.
type Symbol string

// Pair is a cons cell.
type Pair struct {
	Car Value
	Cdr Value
}

type emptyList struct{}

type voidValue struct{}

var (
	// Nil is the empty list.
	Nil Value = emptyList{}

	// Void is returned by expressions that produce no value
	// (define, set!, display, a one-armed if whose test is false).
	Void Value = voidValue{}
)

// NativeFunc is the Go signature of a native procedure.
type NativeFunc func(args []Value) (Value, error)

// Native is a procedure implemented in Go.
type Native struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 means variadic
	Fn      NativeFunc
}

func (n *Native) call(args []Value) (Value, error) {
	if len(args) < n.MinArgs || (n.MaxArgs >= 0 && len(args) > n.MaxArgs) {
		return nil, arityError(n.Name, n.MinArgs, n.MaxArgs, len(args))
	}
	return n.Fn(args)
}

// Procedure is a closure created by lambda or define.
type Procedure struct {
	Name   string
	Params []Symbol
	Rest   Symbol // empty when the procedure takes a fixed number of arguments
	Body   []Value
	Env    *Env
}

// Opaque wraps a host value so scripts can pass it around without
// inspecting it.
type Opaque struct {
	TypeName string
	Data     any
}

// Env is a lexical environment frame.
type Env struct {
	vars   map[Symbol]Value
	parent *Env
}

// NewEnv creates a frame whose parent is outer (nil for the global frame).
func NewEnv(outer *Env) *Env {
	return &Env{vars: make(map[Symbol]Value), parent: outer}
}

// Lookup resolves a symbol through the frame chain.
func (e *Env) Lookup(name Symbol) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Define binds name in this frame, shadowing any outer binding.
func (e *Env) Define(name Symbol, v Value) {
	e.vars[name] = v
}

// Set rebinds an existing variable in the nearest frame that holds it.
func (e *Env) Set(name Symbol, v Value) error {
	for f := e; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			return nil
		}
	}
	return Errorf("set!: unbound variable %s", name)
}

// Cons builds a pair.
func Cons(car, cdr Value) *Pair {
	return &Pair{Car: car, Cdr: cdr}
}

// List builds a proper list from values.
func List(vals ...Value) Value {
	var out Value = Nil
	for i := len(vals) - 1; i >= 0; i-- {
		out = Cons(vals[i], out)
	}
	return out
}

// ToSlice flattens a proper list. It fails on improper lists.
func ToSlice(v Value) ([]Value, error) {
	var out []Value
	for {
		switch p := v.(type) {
		case emptyList:
			return out, nil
		case *Pair:
			out = append(out, p.Car)
			v = p.Cdr
		default:
			return nil, Errorf("expected a proper list, got %s", Repr(v))
		}
	}
}

// Truthy reports whether v counts as true. Only #f is false.
func Truthy(v Value) bool {
	b, ok := v.(bool)
	return !ok || b
}

// IsVoid reports whether v is the no-value marker.
func IsVoid(v Value) bool {
	return v == Void
}

// IsProcedure reports whether v can be applied.
func IsProcedure(v Value) bool {
	switch v.(type) {
	case *Procedure, *Native:
		return true
	}
	return false
}

func typeName(v Value) string {
	switch v := v.(type) {
	case int64:
		return "integer"
	case float64:
		return "real"
	case string:
		return "string"
	case bool:
		return "boolean"
	case Symbol:
		return "symbol"
	case *Pair:
		return "pair"
	case emptyList:
		return "null"
	case voidValue:
		return "void"
	case *Procedure, *Native:
		return "procedure"
	case *Opaque:
		return v.TypeName
	default:
		return fmt.Sprintf("%T", v)
	}
}
