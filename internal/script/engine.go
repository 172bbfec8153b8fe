package script

import (
	"fmt"
	"io"
	"os"
)

// Engine is a long-lived script environment: a global frame plus the
// evaluator state. Errors never invalidate an Engine; definitions made
// before a failing form remain visible.
type Engine struct {
	global *Env
	ev     *evaluator
	out    io.Writer
}

// New creates an Engine with the builtin procedures installed.
// display output goes to os.Stdout until SetOutput is called.
func New() *Engine {
	e := &Engine{
		global: NewEnv(nil),
		ev:     &evaluator{},
		out:    os.Stdout,
	}
	e.installBuiltins()
	return e
}

// SetOutput redirects display, displayln and newline.
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// RegisterFn installs a native procedure under name.
// maxArgs of -1 accepts any number of arguments beyond minArgs.
func (e *Engine) RegisterFn(name string, minArgs, maxArgs int, fn NativeFunc) {
	e.global.Define(Symbol(name), &Native{Name: name, MinArgs: minArgs, MaxArgs: maxArgs, Fn: fn})
}

// Define binds a global variable.
func (e *Engine) Define(name string, v Value) {
	e.global.Define(Symbol(name), v)
}

// Eval parses src and evaluates each top-level form in order against the
// global environment. It returns the value of the last form, or Void when
// src holds no forms. Evaluation stops at the first error.
func (e *Engine) Eval(src string) (result Value, err error) {
	forms, err := Parse(src)
	if err != nil {
		return nil, err
	}
	defer e.recoverPanic(&err)

	e.ev.depth = 0
	result = Void
	for _, form := range forms {
		result, err = e.ev.eval(form, e.global)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// recoverPanic turns a panic raised by a native into a script error so a
// misbehaving extension cannot take the owning goroutine down.
func (e *Engine) recoverPanic(err *error) {
	if r := recover(); r != nil {
		e.ev.depth = 0
		*err = Errorf("panic: %v", fmt.Sprint(r))
	}
}
