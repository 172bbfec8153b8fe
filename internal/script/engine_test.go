package script

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalRepr(t *testing.T, e *Engine, src string) string {
	t.Helper()
	v, err := e.Eval(src)
	require.NoError(t, err, "eval %s", src)
	return Repr(v)
}

func TestEval_Expressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "addition", src: "(+ 1 2)", want: "3"},
		{name: "nested arithmetic", src: "(* (- 10 4) (+ 1 1))", want: "12"},
		{name: "float contagion", src: "(+ 1 2.5)", want: "3.5"},
		{name: "exact division", src: "(/ 10 2)", want: "5"},
		{name: "inexact division", src: "(/ 1 2)", want: "0.5"},
		{name: "integral float keeps point", src: "(* 2.0 3)", want: "6.0"},
		{name: "negation", src: "(- 5)", want: "-5"},
		{name: "modulo sign", src: "(modulo -7 3)", want: "2"},
		{name: "comparison chain", src: "(< 1 2 3)", want: "#t"},
		{name: "comparison fails", src: "(>= 1 2)", want: "#f"},
		{name: "string literal", src: `"hi"`, want: `"hi"`},
		{name: "string append", src: `(string-append "a" "b" "c")`, want: `"abc"`},
		{name: "quoted list", src: "'(1 2 (3 4))", want: "(1 2 (3 4))"},
		{name: "dotted pair", src: "(cons 1 2)", want: "(1 . 2)"},
		{name: "list ops", src: "(car (cdr (list 1 2 3)))", want: "2"},
		{name: "append", src: "(append '(1) '(2 3) '())", want: "(1 2 3)"},
		{name: "if true", src: "(if #t 1 2)", want: "1"},
		{name: "empty list is true", src: "(if '() 'yes 'no)", want: "yes"},
		{name: "let", src: "(let ((a 1) (b 2)) (+ a b))", want: "3"},
		{name: "let star", src: "(let* ((a 1) (b (+ a 1))) b)", want: "2"},
		{name: "cond else", src: "(cond ((= 1 2) 'a) (else 'b))", want: "b"},
		{name: "cond test value", src: "(cond (42))", want: "42"},
		{name: "and", src: "(and 1 2 3)", want: "3"},
		{name: "or", src: "(or #f 7)", want: "7"},
		{name: "map", src: "(map (lambda (x) (* x x)) '(1 2 3))", want: "(1 4 9)"},
		{name: "map two lists", src: "(map + '(1 2) '(10 20))", want: "(11 22)"},
		{name: "apply", src: "(apply + 1 '(2 3))", want: "6"},
		{name: "filter", src: "(filter (lambda (x) (> x 1)) '(1 2 3))", want: "(2 3)"},
		{name: "string split", src: `(string-split "home/kitchen/light" "/")`, want: `("home" "kitchen" "light")`},
		{name: "string join", src: `(string-join '("a" "b") "/")`, want: `"a/b"`},
		{name: "string to number", src: `(string->number "21.5")`, want: "21.5"},
		{name: "bad number", src: `(string->number "warm")`, want: "#f"},
		{name: "equal lists", src: "(equal? '(1 (2)) (list 1 (list 2)))", want: "#t"},
		{name: "eq symbols", src: "(eq? 'a 'a)", want: "#t"},
		{name: "assoc", src: `(cdr (assoc "b" '(("a" . 1) ("b" . 2))))`, want: "2"},
		{name: "substring", src: `(substring "kitchen" 0 3)`, want: `"kit"`},
		{name: "quote shorthand prints", src: "''a", want: "'a"},
		{name: "comment ignored", src: "; note\n(+ 1 1) ; trailing", want: "2"},
		{name: "brackets", src: "(let ([x 3]) x)", want: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalRepr(t, New(), tt.src))
		})
	}
}

func TestEval_DefinitionsPersist(t *testing.T) {
	e := New()

	v, err := e.Eval("(define (square x) (* x x))")
	require.NoError(t, err)
	assert.True(t, IsVoid(v))

	assert.Equal(t, "25", evalRepr(t, e, "(square 5)"))
	assert.Equal(t, "#<procedure:square>", evalRepr(t, e, "square"))
}

func TestEval_ClosuresCaptureState(t *testing.T) {
	e := New()
	evalRepr(t, e, `
(define (make-counter)
  (let ((n 0))
    (lambda () (set! n (+ n 1)) n)))
(define c (make-counter))`)

	evalRepr(t, e, "(c)")
	evalRepr(t, e, "(c)")
	assert.Equal(t, "3", evalRepr(t, e, "(c)"))
}

func TestEval_VariadicParameters(t *testing.T) {
	e := New()
	evalRepr(t, e, "(define (rest-of first . more) more)")
	assert.Equal(t, "(2 3)", evalRepr(t, e, "(rest-of 1 2 3)"))

	evalRepr(t, e, "(define all (lambda args args))")
	assert.Equal(t, "()", evalRepr(t, e, "(all)"))
}

func TestEval_TailCallsDoNotGrowDepth(t *testing.T) {
	e := New()
	got := evalRepr(t, e, `
(let loop ((i 0) (acc 0))
  (if (= i 100000)
      acc
      (loop (+ i 1) (+ acc 1))))`)
	assert.Equal(t, "100000", got)
}

func TestEval_DeepRecursionFails(t *testing.T) {
	e := New()
	evalRepr(t, e, "(define (deep n) (if (= n 0) 0 (+ 1 (deep (- n 1)))))")

	_, err := e.Eval("(deep 50000)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recursion depth")

	// The engine stays usable afterwards.
	assert.Equal(t, "10", evalRepr(t, e, "(deep 10)"))
}

func TestEval_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{name: "unbound", src: "nope", wantMsg: "unbound variable: nope"},
		{name: "not a procedure", src: "(1 2)", wantMsg: "not a procedure"},
		{name: "type error", src: `(+ 1 "a")`, wantMsg: "+: expected number"},
		{name: "arity", src: "((lambda (x) x))", wantMsg: "expected 1 arguments, got 0"},
		{name: "division by zero", src: "(/ 1 0)", wantMsg: "division by zero"},
		{name: "explicit error", src: `(error "boom" 42)`, wantMsg: "boom 42"},
		{name: "unterminated list", src: "(+ 1", wantMsg: "missing"},
		{name: "stray paren", src: ")", wantMsg: "unexpected"},
		{name: "set unbound", src: "(set! ghost 1)", wantMsg: "unbound variable ghost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Eval(tt.src)
			require.Error(t, err)

			var scriptErr *Error
			require.True(t, errors.As(err, &scriptErr), "error should be *script.Error: %T", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestEval_ErrorKeepsEarlierDefinitions(t *testing.T) {
	e := New()
	_, err := e.Eval("(define kept 1) (car '())")
	require.Error(t, err)
	assert.Equal(t, "1", evalRepr(t, e, "kept"))
}

func TestEval_EmptyProgramIsVoid(t *testing.T) {
	v, err := New().Eval("  ; nothing here\n")
	require.NoError(t, err)
	assert.True(t, IsVoid(v))
}

func TestEval_OneArmedIfIsVoid(t *testing.T) {
	v, err := New().Eval("(if #f 1)")
	require.NoError(t, err)
	assert.True(t, IsVoid(v))
}

func TestDisplayWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	e := New()
	e.SetOutput(&buf)

	_, err := e.Eval(`(display "hello") (newline) (displayln 42)`)
	require.NoError(t, err)
	assert.Equal(t, "hello\n42\n", buf.String())
}

func TestRegisterFn(t *testing.T) {
	e := New()
	e.RegisterFn("greet", 1, 1, func(args []Value) (Value, error) {
		name, err := StringArg("greet", args, 0)
		if err != nil {
			return nil, err
		}
		return "hello " + name, nil
	})

	v, err := e.Eval(`(greet "world")`)
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)

	_, err = e.Eval("(greet 1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greet: expected string")

	_, err = e.Eval(`(greet "a" "b")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greet: expected 1 arguments, got 2")
}

func TestNativePanicIsRecovered(t *testing.T) {
	e := New()
	e.RegisterFn("explode", 0, 0, func([]Value) (Value, error) {
		panic("kaboom")
	})

	_, err := e.Eval("(explode)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestQuoteRoundTrip(t *testing.T) {
	inputs := []string{
		"plain",
		`with "quotes"`,
		`back\slash`,
		"multi\nline\ttabbed",
		"ümlaut ✓",
		"",
		`(injected) ") (error "x")`,
	}

	for _, in := range inputs {
		forms, err := Parse(Quote(in))
		require.NoError(t, err, "parse %q", Quote(in))
		require.Len(t, forms, 1)
		assert.Equal(t, in, forms[0])
	}
}

func TestParse_Atoms(t *testing.T) {
	forms, err := Parse(`42 -7 3.25 .5 + - ... #t #false sym-bol! "s"`)
	require.NoError(t, err)

	want := []Value{int64(42), int64(-7), 3.25, 0.5, Symbol("+"), Symbol("-"), Symbol("..."), true, false, Symbol("sym-bol!"), "s"}
	assert.Equal(t, want, forms)
}

func TestParse_BadSyntax(t *testing.T) {
	for _, src := range []string{`"open`, `(1 . )`, `( . 1)`, `#x`, `"\q"`} {
		_, err := Parse(src)
		assert.Error(t, err, "parse %q", src)
	}
}

func TestReprAndDisplay(t *testing.T) {
	assert.Equal(t, `("a" b 1.5 #t ())`, Repr(List("a", Symbol("b"), 1.5, true, Nil)))
	assert.Equal(t, `(a b 1.5 #t ())`, Display(List("a", Symbol("b"), 1.5, true, Nil)))
	assert.Equal(t, "#<hook-table>", Repr(&Opaque{TypeName: "hook-table"}))
	assert.Equal(t, "#<void>", Repr(Void))
}
