package script

// maxDepth bounds non-tail recursion so a runaway script fails with an
// error instead of exhausting the goroutine stack.
const maxDepth = 10000

type evaluator struct {
	depth int
}

func (ev *evaluator) eval(x Value, env *Env) (Value, error) {
	ev.depth++
	defer func() { ev.depth-- }()
	if ev.depth > maxDepth {
		return nil, &Error{Message: ErrRecursionLimit.Error()}
	}

	for {
		switch v := x.(type) {
		case Symbol:
			val, ok := env.Lookup(v)
			if !ok {
				return nil, Errorf("unbound variable: %s", v)
			}
			return val, nil

		case *Pair:
			if head, ok := v.Car.(Symbol); ok {
				if form, ok := specialForms[head]; ok {
					next, nextEnv, val, err := form(ev, v, env)
					if err != nil {
						return nil, err
					}
					if next == nil {
						return val, nil
					}
					x, env = next, nextEnv
					continue
				}
			}

			fn, err := ev.eval(v.Car, env)
			if err != nil {
				return nil, err
			}
			args, err := ev.evalArgs(v.Cdr, env)
			if err != nil {
				return nil, err
			}
			switch f := fn.(type) {
			case *Native:
				return f.call(args)
			case *Procedure:
				callEnv, err := f.bind(args)
				if err != nil {
					return nil, err
				}
				last, err := ev.evalBody(f.Body, callEnv)
				if err != nil {
					return nil, err
				}
				if last == nil {
					return Void, nil
				}
				x, env = last, callEnv
				continue
			default:
				return nil, Errorf("not a procedure: %s", Repr(fn))
			}

		default:
			return x, nil
		}
	}
}

// evalBody evaluates every form except the last and returns the last form
// unevaluated so the caller can continue in tail position.
func (ev *evaluator) evalBody(body []Value, env *Env) (Value, error) {
	if len(body) == 0 {
		return nil, nil
	}
	for _, form := range body[:len(body)-1] {
		if _, err := ev.eval(form, env); err != nil {
			return nil, err
		}
	}
	return body[len(body)-1], nil
}

func (ev *evaluator) evalArgs(list Value, env *Env) ([]Value, error) {
	forms, err := ToSlice(list)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(forms))
	for i, form := range forms {
		args[i], err = ev.eval(form, env)
		if err != nil {
			return nil, err
		}
	}
	return args, nil
}

// apply calls fn with already evaluated arguments.
func (ev *evaluator) apply(fn Value, args []Value) (Value, error) {
	switch f := fn.(type) {
	case *Native:
		return f.call(args)
	case *Procedure:
		callEnv, err := f.bind(args)
		if err != nil {
			return nil, err
		}
		last, err := ev.evalBody(f.Body, callEnv)
		if err != nil {
			return nil, err
		}
		if last == nil {
			return Void, nil
		}
		return ev.eval(last, callEnv)
	default:
		return nil, Errorf("not a procedure: %s", Repr(fn))
	}
}

func (p *Procedure) bind(args []Value) (*Env, error) {
	name := p.Name
	if name == "" {
		name = "#<procedure>"
	}
	if len(args) < len(p.Params) || (p.Rest == "" && len(args) > len(p.Params)) {
		maxArgs := len(p.Params)
		if p.Rest != "" {
			maxArgs = -1
		}
		return nil, arityError(name, len(p.Params), maxArgs, len(args))
	}
	env := NewEnv(p.Env)
	for i, param := range p.Params {
		env.Define(param, args[i])
	}
	if p.Rest != "" {
		env.Define(p.Rest, List(args[len(p.Params):]...))
	}
	return env, nil
}
