package script

// specialForm evaluates a syntactic form. When next is non-nil the
// evaluator continues with next in nextEnv (a tail position); otherwise val
// is the result.
type specialForm func(ev *evaluator, form *Pair, env *Env) (next Value, nextEnv *Env, val Value, err error)

var specialForms map[Symbol]specialForm

func init() {
	specialForms = map[Symbol]specialForm{
		"quote":  formQuote,
		"if":     formIf,
		"define": formDefine,
		"set!":   formSet,
		"lambda": formLambda,
		"let":    formLet,
		"let*":   formLetStar,
		"begin":  formBegin,
		"cond":   formCond,
		"and":    formAnd,
		"or":     formOr,
		"when":   formWhen,
		"unless": formUnless,
	}
}

func formArgs(form *Pair, minArgs, maxArgs int) ([]Value, error) {
	name := string(form.Car.(Symbol))
	args, err := ToSlice(form.Cdr)
	if err != nil {
		return nil, Errorf("%s: bad syntax", name)
	}
	if len(args) < minArgs || (maxArgs >= 0 && len(args) > maxArgs) {
		return nil, Errorf("%s: bad syntax in %s", name, Repr(form))
	}
	return args, nil
}

func formQuote(_ *evaluator, form *Pair, _ *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 1, 1)
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, nil, args[0], nil
}

func formIf(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 2, 3)
	if err != nil {
		return nil, nil, nil, err
	}
	test, err := ev.eval(args[0], env)
	if err != nil {
		return nil, nil, nil, err
	}
	if Truthy(test) {
		return args[1], env, nil, nil
	}
	if len(args) == 3 {
		return args[2], env, nil, nil
	}
	return nil, nil, Void, nil
}

func formDefine(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 1, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	switch target := args[0].(type) {
	case Symbol:
		if len(args) > 2 {
			return nil, nil, nil, Errorf("define: bad syntax in %s", Repr(form))
		}
		var val Value = Void
		if len(args) == 2 {
			val, err = ev.eval(args[1], env)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		if p, ok := val.(*Procedure); ok && p.Name == "" {
			p.Name = string(target)
		}
		env.Define(target, val)
		return nil, nil, Void, nil
	case *Pair:
		name, ok := target.Car.(Symbol)
		if !ok {
			return nil, nil, nil, Errorf("define: bad procedure name in %s", Repr(form))
		}
		proc, err := makeProcedure(string(name), target.Cdr, args[1:], env)
		if err != nil {
			return nil, nil, nil, err
		}
		env.Define(name, proc)
		return nil, nil, Void, nil
	default:
		return nil, nil, nil, Errorf("define: bad syntax in %s", Repr(form))
	}
}

func formSet(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 2, 2)
	if err != nil {
		return nil, nil, nil, err
	}
	name, ok := args[0].(Symbol)
	if !ok {
		return nil, nil, nil, Errorf("set!: not a variable: %s", Repr(args[0]))
	}
	val, err := ev.eval(args[1], env)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := env.Set(name, val); err != nil {
		return nil, nil, nil, err
	}
	return nil, nil, Void, nil
}

func formLambda(_ *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 1, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	proc, err := makeProcedure("", args[0], args[1:], env)
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, nil, proc, nil
}

func makeProcedure(name string, params Value, body []Value, env *Env) (*Procedure, error) {
	p := &Procedure{Name: name, Body: body, Env: env}
	for {
		switch v := params.(type) {
		case emptyList:
			return p, nil
		case Symbol:
			p.Rest = v
			return p, nil
		case *Pair:
			sym, ok := v.Car.(Symbol)
			if !ok {
				return nil, Errorf("lambda: parameter is not a symbol: %s", Repr(v.Car))
			}
			p.Params = append(p.Params, sym)
			params = v.Cdr
		default:
			return nil, Errorf("lambda: bad parameter list %s", Repr(params))
		}
	}
}

type binding struct {
	name Symbol
	expr Value
}

func parseBindings(formName string, v Value) ([]binding, error) {
	items, err := ToSlice(v)
	if err != nil {
		return nil, Errorf("%s: bad bindings", formName)
	}
	out := make([]binding, 0, len(items))
	for _, item := range items {
		parts, err := ToSlice(item)
		if err != nil || len(parts) != 2 {
			return nil, Errorf("%s: bad binding %s", formName, Repr(item))
		}
		name, ok := parts[0].(Symbol)
		if !ok {
			return nil, Errorf("%s: bad binding %s", formName, Repr(item))
		}
		out = append(out, binding{name: name, expr: parts[1]})
	}
	return out, nil
}

func formLet(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 1, -1)
	if err != nil {
		return nil, nil, nil, err
	}

	// Named let: (let loop ((i 0)) body...)
	if loopName, ok := args[0].(Symbol); ok {
		if len(args) < 2 {
			return nil, nil, nil, Errorf("let: bad syntax in %s", Repr(form))
		}
		bindings, err := parseBindings("let", args[1])
		if err != nil {
			return nil, nil, nil, err
		}
		loopEnv := NewEnv(env)
		proc := &Procedure{Name: string(loopName), Body: args[2:], Env: loopEnv}
		vals := make([]Value, len(bindings))
		for i, b := range bindings {
			proc.Params = append(proc.Params, b.name)
			if vals[i], err = ev.eval(b.expr, env); err != nil {
				return nil, nil, nil, err
			}
		}
		loopEnv.Define(loopName, proc)
		callEnv, err := proc.bind(vals)
		if err != nil {
			return nil, nil, nil, err
		}
		return bodyTail(ev, proc.Body, callEnv)
	}

	bindings, err := parseBindings("let", args[0])
	if err != nil {
		return nil, nil, nil, err
	}
	letEnv := NewEnv(env)
	for _, b := range bindings {
		val, err := ev.eval(b.expr, env)
		if err != nil {
			return nil, nil, nil, err
		}
		letEnv.Define(b.name, val)
	}
	return bodyTail(ev, args[1:], letEnv)
}

func formLetStar(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 1, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	bindings, err := parseBindings("let*", args[0])
	if err != nil {
		return nil, nil, nil, err
	}
	letEnv := env
	for _, b := range bindings {
		val, err := ev.eval(b.expr, letEnv)
		if err != nil {
			return nil, nil, nil, err
		}
		letEnv = NewEnv(letEnv)
		letEnv.Define(b.name, val)
	}
	return bodyTail(ev, args[1:], NewEnv(letEnv))
}

func bodyTail(ev *evaluator, body []Value, env *Env) (Value, *Env, Value, error) {
	last, err := ev.evalBody(body, env)
	if err != nil {
		return nil, nil, nil, err
	}
	if last == nil {
		return nil, nil, Void, nil
	}
	return last, env, nil, nil
}

func formBegin(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 0, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	return bodyTail(ev, args, env)
}

func formCond(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	clauses, err := formArgs(form, 0, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, clause := range clauses {
		parts, err := ToSlice(clause)
		if err != nil || len(parts) == 0 {
			return nil, nil, nil, Errorf("cond: bad clause %s", Repr(clause))
		}
		if sym, ok := parts[0].(Symbol); ok && sym == "else" {
			return bodyTail(ev, parts[1:], env)
		}
		test, err := ev.eval(parts[0], env)
		if err != nil {
			return nil, nil, nil, err
		}
		if !Truthy(test) {
			continue
		}
		if len(parts) == 1 {
			return nil, nil, test, nil
		}
		return bodyTail(ev, parts[1:], env)
	}
	return nil, nil, Void, nil
}

func formAnd(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 0, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(args) == 0 {
		return nil, nil, true, nil
	}
	for _, a := range args[:len(args)-1] {
		v, err := ev.eval(a, env)
		if err != nil {
			return nil, nil, nil, err
		}
		if !Truthy(v) {
			return nil, nil, v, nil
		}
	}
	return args[len(args)-1], env, nil, nil
}

func formOr(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	args, err := formArgs(form, 0, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(args) == 0 {
		return nil, nil, false, nil
	}
	for _, a := range args[:len(args)-1] {
		v, err := ev.eval(a, env)
		if err != nil {
			return nil, nil, nil, err
		}
		if Truthy(v) {
			return nil, nil, v, nil
		}
	}
	return args[len(args)-1], env, nil, nil
}

func formWhen(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	return conditionalBody(ev, form, env, true)
}

func formUnless(ev *evaluator, form *Pair, env *Env) (Value, *Env, Value, error) {
	return conditionalBody(ev, form, env, false)
}

func conditionalBody(ev *evaluator, form *Pair, env *Env, want bool) (Value, *Env, Value, error) {
	args, err := formArgs(form, 1, -1)
	if err != nil {
		return nil, nil, nil, err
	}
	test, err := ev.eval(args[0], env)
	if err != nil {
		return nil, nil, nil, err
	}
	if Truthy(test) != want {
		return nil, nil, Void, nil
	}
	return bodyTail(ev, args[1:], env)
}
