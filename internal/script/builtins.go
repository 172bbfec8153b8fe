package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringArg returns args[i] as a string or a typed script error.
func StringArg(fn string, args []Value, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", typeError(fn, "string", args[i])
	}
	return s, nil
}

// IntArg returns args[i] as an integer or a typed script error.
func IntArg(fn string, args []Value, i int) (int64, error) {
	switch n := args[i].(type) {
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) {
			return int64(n), nil
		}
	}
	return 0, typeError(fn, "integer", args[i])
}

func (e *Engine) installBuiltins() {
	e.installNumeric()
	e.installPredicates()
	e.installLists()
	e.installStrings()
	e.installControl()
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func arith(name string, args []Value, intOp func(a, b int64) int64, floatOp func(a, b float64) float64, acc Value) (Value, error) {
	for _, arg := range args {
		switch a := acc.(type) {
		case int64:
			if b, ok := arg.(int64); ok {
				acc = intOp(a, b)
				continue
			}
		}
		af, ok1 := toFloat(acc)
		bf, ok2 := toFloat(arg)
		if !ok2 {
			return nil, typeError(name, "number", arg)
		}
		if !ok1 {
			return nil, typeError(name, "number", acc)
		}
		acc = floatOp(af, bf)
	}
	return acc, nil
}

func (e *Engine) installNumeric() {
	e.RegisterFn("+", 0, -1, func(args []Value) (Value, error) {
		return arith("+", args, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }, int64(0))
	})
	e.RegisterFn("*", 0, -1, func(args []Value) (Value, error) {
		return arith("*", args, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }, int64(1))
	})
	e.RegisterFn("-", 1, -1, func(args []Value) (Value, error) {
		if len(args) == 1 {
			return arith("-", args, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }, int64(0))
		}
		if _, ok := toFloat(args[0]); !ok {
			return nil, typeError("-", "number", args[0])
		}
		return arith("-", args[1:], func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }, args[0])
	})
	e.RegisterFn("/", 1, -1, func(args []Value) (Value, error) {
		acc := args[0]
		rest := args[1:]
		if len(args) == 1 {
			acc, rest = int64(1), args
		}
		if _, ok := toFloat(acc); !ok {
			return nil, typeError("/", "number", acc)
		}
		for _, arg := range rest {
			bf, ok := toFloat(arg)
			if !ok {
				return nil, typeError("/", "number", arg)
			}
			if bf == 0 {
				return nil, Errorf("/: division by zero")
			}
			a, aInt := acc.(int64)
			b, bInt := arg.(int64)
			if aInt && bInt && a%b == 0 {
				acc = a / b
				continue
			}
			af, _ := toFloat(acc)
			acc = af / bf
		}
		return acc, nil
	})

	intBinary := func(name string, op func(a, b int64) int64) {
		e.RegisterFn(name, 2, 2, func(args []Value) (Value, error) {
			a, err := IntArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			b, err := IntArg(name, args, 1)
			if err != nil {
				return nil, err
			}
			if b == 0 {
				return nil, Errorf("%s: division by zero", name)
			}
			return op(a, b), nil
		})
	}
	intBinary("quotient", func(a, b int64) int64 { return a / b })
	intBinary("remainder", func(a, b int64) int64 { return a % b })
	intBinary("modulo", func(a, b int64) int64 {
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m
	})

	compare := func(name string, ok func(a, b float64) bool) {
		e.RegisterFn(name, 1, -1, func(args []Value) (Value, error) {
			for i := range args {
				if _, isNum := toFloat(args[i]); !isNum {
					return nil, typeError(name, "number", args[i])
				}
			}
			for i := 0; i+1 < len(args); i++ {
				a, _ := toFloat(args[i])
				b, _ := toFloat(args[i+1])
				if !ok(a, b) {
					return false, nil
				}
			}
			return true, nil
		})
	}
	compare("=", func(a, b float64) bool { return a == b })
	compare("<", func(a, b float64) bool { return a < b })
	compare(">", func(a, b float64) bool { return a > b })
	compare("<=", func(a, b float64) bool { return a <= b })
	compare(">=", func(a, b float64) bool { return a >= b })

	e.RegisterFn("abs", 1, 1, func(args []Value) (Value, error) {
		switch n := args[0].(type) {
		case int64:
			if n < 0 {
				return -n, nil
			}
			return n, nil
		case float64:
			return math.Abs(n), nil
		}
		return nil, typeError("abs", "number", args[0])
	})
	extremum := func(name string, better func(a, b float64) bool) {
		e.RegisterFn(name, 1, -1, func(args []Value) (Value, error) {
			best := args[0]
			bestF, ok := toFloat(best)
			if !ok {
				return nil, typeError(name, "number", best)
			}
			for _, arg := range args[1:] {
				f, ok := toFloat(arg)
				if !ok {
					return nil, typeError(name, "number", arg)
				}
				if better(f, bestF) {
					best, bestF = arg, f
				}
			}
			return best, nil
		})
	}
	extremum("min", func(a, b float64) bool { return a < b })
	extremum("max", func(a, b float64) bool { return a > b })

	e.RegisterFn("number->string", 1, 1, func(args []Value) (Value, error) {
		if _, ok := toFloat(args[0]); !ok {
			return nil, typeError("number->string", "number", args[0])
		}
		return Repr(args[0]), nil
	})
	e.RegisterFn("string->number", 1, 1, func(args []Value) (Value, error) {
		s, err := StringArg("string->number", args, 0)
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if looksNumeric(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, nil
			}
		}
		return false, nil
	})
}

func (e *Engine) installPredicates() {
	pred := func(name string, test func(v Value) bool) {
		e.RegisterFn(name, 1, 1, func(args []Value) (Value, error) {
			return test(args[0]), nil
		})
	}
	pred("not", func(v Value) bool { return !Truthy(v) })
	pred("null?", func(v Value) bool { return v == Nil })
	pred("pair?", func(v Value) bool { _, ok := v.(*Pair); return ok })
	pred("list?", func(v Value) bool { _, err := ToSlice(v); return err == nil })
	pred("string?", func(v Value) bool { _, ok := v.(string); return ok })
	pred("symbol?", func(v Value) bool { _, ok := v.(Symbol); return ok })
	pred("boolean?", func(v Value) bool { _, ok := v.(bool); return ok })
	pred("number?", func(v Value) bool { _, ok := toFloat(v); return ok })
	pred("integer?", func(v Value) bool {
		switch n := v.(type) {
		case int64:
			return true
		case float64:
			return n == math.Trunc(n)
		}
		return false
	})
	pred("procedure?", IsProcedure)
	pred("void?", IsVoid)
	pred("zero?", func(v Value) bool { f, ok := toFloat(v); return ok && f == 0 })

	e.RegisterFn("eq?", 2, 2, func(args []Value) (Value, error) { return eqv(args[0], args[1]), nil })
	e.RegisterFn("eqv?", 2, 2, func(args []Value) (Value, error) { return eqv(args[0], args[1]), nil })
	e.RegisterFn("equal?", 2, 2, func(args []Value) (Value, error) { return Equal(args[0], args[1]), nil })
}

// eqv compares by identity; every Value type is comparable, and reference
// types compare by pointer.
func eqv(a, b Value) bool {
	return a == b
}

// Equal reports structural equality.
func Equal(a, b Value) bool {
	pa, ok1 := a.(*Pair)
	pb, ok2 := b.(*Pair)
	if ok1 && ok2 {
		return Equal(pa.Car, pb.Car) && Equal(pa.Cdr, pb.Cdr)
	}
	if ok1 || ok2 {
		return false
	}
	return eqv(a, b)
}

func (e *Engine) installLists() {
	e.RegisterFn("cons", 2, 2, func(args []Value) (Value, error) { return Cons(args[0], args[1]), nil })
	e.RegisterFn("car", 1, 1, func(args []Value) (Value, error) {
		p, ok := args[0].(*Pair)
		if !ok {
			return nil, typeError("car", "pair", args[0])
		}
		return p.Car, nil
	})
	e.RegisterFn("cdr", 1, 1, func(args []Value) (Value, error) {
		p, ok := args[0].(*Pair)
		if !ok {
			return nil, typeError("cdr", "pair", args[0])
		}
		return p.Cdr, nil
	})
	e.RegisterFn("cadr", 1, 1, func(args []Value) (Value, error) {
		p, ok := args[0].(*Pair)
		if !ok {
			return nil, typeError("cadr", "list of at least two elements", args[0])
		}
		next, ok := p.Cdr.(*Pair)
		if !ok {
			return nil, typeError("cadr", "list of at least two elements", args[0])
		}
		return next.Car, nil
	})
	e.RegisterFn("list", 0, -1, func(args []Value) (Value, error) { return List(args...), nil })
	e.RegisterFn("length", 1, 1, func(args []Value) (Value, error) {
		items, err := ToSlice(args[0])
		if err != nil {
			return nil, typeError("length", "list", args[0])
		}
		return int64(len(items)), nil
	})
	e.RegisterFn("append", 0, -1, func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Nil, nil
		}
		var all []Value
		for _, a := range args[:len(args)-1] {
			items, err := ToSlice(a)
			if err != nil {
				return nil, typeError("append", "list", a)
			}
			all = append(all, items...)
		}
		out := args[len(args)-1]
		for i := len(all) - 1; i >= 0; i-- {
			out = Cons(all[i], out)
		}
		return out, nil
	})
	e.RegisterFn("reverse", 1, 1, func(args []Value) (Value, error) {
		items, err := ToSlice(args[0])
		if err != nil {
			return nil, typeError("reverse", "list", args[0])
		}
		var out Value = Nil
		for _, v := range items {
			out = Cons(v, out)
		}
		return out, nil
	})
	e.RegisterFn("list-ref", 2, 2, func(args []Value) (Value, error) {
		items, err := ToSlice(args[0])
		if err != nil {
			return nil, typeError("list-ref", "list", args[0])
		}
		k, err := IntArg("list-ref", args, 1)
		if err != nil {
			return nil, err
		}
		if k < 0 || k >= int64(len(items)) {
			return nil, Errorf("list-ref: index %d out of range", k)
		}
		return items[k], nil
	})
	e.RegisterFn("assoc", 2, 2, func(args []Value) (Value, error) {
		items, err := ToSlice(args[1])
		if err != nil {
			return nil, typeError("assoc", "association list", args[1])
		}
		for _, item := range items {
			if p, ok := item.(*Pair); ok && Equal(p.Car, args[0]) {
				return p, nil
			}
		}
		return false, nil
	})
}

func (e *Engine) installStrings() {
	e.RegisterFn("string-append", 0, -1, func(args []Value) (Value, error) {
		var b strings.Builder
		for i := range args {
			s, err := StringArg("string-append", args, i)
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
		return b.String(), nil
	})
	e.RegisterFn("string-length", 1, 1, func(args []Value) (Value, error) {
		s, err := StringArg("string-length", args, 0)
		if err != nil {
			return nil, err
		}
		return int64(len([]rune(s))), nil
	})
	e.RegisterFn("substring", 2, 3, func(args []Value) (Value, error) {
		s, err := StringArg("substring", args, 0)
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		start, err := IntArg("substring", args, 1)
		if err != nil {
			return nil, err
		}
		end := int64(len(runes))
		if len(args) == 3 {
			if end, err = IntArg("substring", args, 2); err != nil {
				return nil, err
			}
		}
		if start < 0 || end > int64(len(runes)) || start > end {
			return nil, Errorf("substring: range [%d, %d) out of bounds for length %d", start, end, len(runes))
		}
		return string(runes[start:end]), nil
	})
	stringCompare := func(name string, ok func(a, b string) bool) {
		e.RegisterFn(name, 2, 2, func(args []Value) (Value, error) {
			a, err := StringArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			b, err := StringArg(name, args, 1)
			if err != nil {
				return nil, err
			}
			return ok(a, b), nil
		})
	}
	stringCompare("string=?", func(a, b string) bool { return a == b })
	stringCompare("string<?", func(a, b string) bool { return a < b })
	stringCompare("string-prefix?", func(a, b string) bool { return strings.HasPrefix(b, a) })
	stringCompare("string-contains?", strings.Contains)

	stringMap := func(name string, fn func(string) string) {
		e.RegisterFn(name, 1, 1, func(args []Value) (Value, error) {
			s, err := StringArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			return fn(s), nil
		})
	}
	stringMap("string-upcase", strings.ToUpper)
	stringMap("string-downcase", strings.ToLower)
	stringMap("string-trim", strings.TrimSpace)

	e.RegisterFn("string-split", 2, 2, func(args []Value) (Value, error) {
		s, err := StringArg("string-split", args, 0)
		if err != nil {
			return nil, err
		}
		sep, err := StringArg("string-split", args, 1)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(s, sep)
		vals := make([]Value, len(parts))
		for i, p := range parts {
			vals[i] = p
		}
		return List(vals...), nil
	})
	e.RegisterFn("string-join", 1, 2, func(args []Value) (Value, error) {
		items, err := ToSlice(args[0])
		if err != nil {
			return nil, typeError("string-join", "list of strings", args[0])
		}
		sep := " "
		if len(args) == 2 {
			if sep, err = StringArg("string-join", args, 1); err != nil {
				return nil, err
			}
		}
		parts := make([]string, len(items))
		for i := range items {
			if parts[i], err = StringArg("string-join", items, i); err != nil {
				return nil, err
			}
		}
		return strings.Join(parts, sep), nil
	})
	e.RegisterFn("symbol->string", 1, 1, func(args []Value) (Value, error) {
		sym, ok := args[0].(Symbol)
		if !ok {
			return nil, typeError("symbol->string", "symbol", args[0])
		}
		return string(sym), nil
	})
	e.RegisterFn("string->symbol", 1, 1, func(args []Value) (Value, error) {
		s, err := StringArg("string->symbol", args, 0)
		if err != nil {
			return nil, err
		}
		return Symbol(s), nil
	})
}

func (e *Engine) installControl() {
	e.RegisterFn("error", 1, -1, func(args []Value) (Value, error) {
		msg, ok := args[0].(string)
		if !ok {
			msg = Display(args[0])
		}
		return nil, &Error{Message: msg, Irritants: args[1:]}
	})
	e.RegisterFn("apply", 2, -1, func(args []Value) (Value, error) {
		last, err := ToSlice(args[len(args)-1])
		if err != nil {
			return nil, typeError("apply", "list", args[len(args)-1])
		}
		callArgs := append(append([]Value{}, args[1:len(args)-1]...), last...)
		return e.ev.apply(args[0], callArgs)
	})
	e.RegisterFn("map", 2, -1, func(args []Value) (Value, error) {
		lists, err := listArgs("map", args[1:])
		if err != nil {
			return nil, err
		}
		var out []Value
		for i := 0; i < shortest(lists); i++ {
			v, err := e.ev.apply(args[0], column(lists, i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return List(out...), nil
	})
	e.RegisterFn("for-each", 2, -1, func(args []Value) (Value, error) {
		lists, err := listArgs("for-each", args[1:])
		if err != nil {
			return nil, err
		}
		for i := 0; i < shortest(lists); i++ {
			if _, err := e.ev.apply(args[0], column(lists, i)); err != nil {
				return nil, err
			}
		}
		return Void, nil
	})
	e.RegisterFn("filter", 2, 2, func(args []Value) (Value, error) {
		items, err := ToSlice(args[1])
		if err != nil {
			return nil, typeError("filter", "list", args[1])
		}
		var out []Value
		for _, item := range items {
			keep, err := e.ev.apply(args[0], []Value{item})
			if err != nil {
				return nil, err
			}
			if Truthy(keep) {
				out = append(out, item)
			}
		}
		return List(out...), nil
	})
	e.RegisterFn("display", 1, 1, func(args []Value) (Value, error) {
		fmt.Fprint(e.out, Display(args[0]))
		return Void, nil
	})
	e.RegisterFn("displayln", 1, 1, func(args []Value) (Value, error) {
		fmt.Fprintln(e.out, Display(args[0]))
		return Void, nil
	})
	e.RegisterFn("newline", 0, 0, func([]Value) (Value, error) {
		fmt.Fprintln(e.out)
		return Void, nil
	})
}

func listArgs(name string, vals []Value) ([][]Value, error) {
	lists := make([][]Value, len(vals))
	for i, v := range vals {
		items, err := ToSlice(v)
		if err != nil {
			return nil, typeError(name, "list", v)
		}
		lists[i] = items
	}
	return lists, nil
}

func shortest(lists [][]Value) int {
	n := len(lists[0])
	for _, l := range lists[1:] {
		if len(l) < n {
			n = len(l)
		}
	}
	return n
}

func column(lists [][]Value, i int) []Value {
	col := make([]Value, len(lists))
	for j, l := range lists {
		col[j] = l[i]
	}
	return col
}
