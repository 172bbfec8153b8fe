package script

import (
	"strconv"
	"strings"
	"unicode"
)

// Parse reads every datum in src.
func Parse(src string) ([]Value, error) {
	r := &reader{src: []rune(src)}
	var out []Value
	for {
		r.skipSpace()
		if r.eof() {
			return out, nil
		}
		v, err := r.read()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

type reader struct {
	src []rune
	pos int
}

func (r *reader) eof() bool {
	return r.pos >= len(r.src)
}

func (r *reader) peek() rune {
	return r.src[r.pos]
}

func (r *reader) skipSpace() {
	for !r.eof() {
		c := r.peek()
		switch {
		case unicode.IsSpace(c):
			r.pos++
		case c == ';':
			for !r.eof() && r.peek() != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

func (r *reader) read() (Value, error) {
	r.skipSpace()
	if r.eof() {
		return nil, Errorf("read: unexpected end of input")
	}
	switch c := r.peek(); c {
	case '(', '[':
		r.pos++
		return r.readList(closerFor(c))
	case ')', ']':
		r.pos++
		return nil, Errorf("read: unexpected %q", c)
	case '\'':
		r.pos++
		v, err := r.read()
		if err != nil {
			return nil, err
		}
		return List(Symbol("quote"), v), nil
	case '"':
		r.pos++
		return r.readString()
	default:
		return r.readAtom()
	}
}

func closerFor(open rune) rune {
	if open == '[' {
		return ']'
	}
	return ')'
}

func (r *reader) readList(closer rune) (Value, error) {
	var items []Value
	var tail Value = Nil
	for {
		r.skipSpace()
		if r.eof() {
			return nil, Errorf("read: missing %q", closer)
		}
		c := r.peek()
		if c == closer {
			r.pos++
			break
		}
		if c == ')' || c == ']' {
			return nil, Errorf("read: mismatched %q", c)
		}
		if c == '.' && r.pos+1 < len(r.src) && isDelimiter(r.src[r.pos+1]) {
			r.pos++
			if len(items) == 0 {
				return nil, Errorf("read: dot at start of list")
			}
			v, err := r.read()
			if err != nil {
				return nil, err
			}
			tail = v
			r.skipSpace()
			if r.eof() || r.peek() != closer {
				return nil, Errorf("read: expected %q after dotted tail", closer)
			}
			r.pos++
			break
		}
		v, err := r.read()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	out := tail
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons(items[i], out)
	}
	return out, nil
}

func (r *reader) readString() (Value, error) {
	var b strings.Builder
	for {
		if r.eof() {
			return nil, Errorf("read: unterminated string")
		}
		c := r.peek()
		r.pos++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if r.eof() {
				return nil, Errorf("read: unterminated string")
			}
			esc := r.peek()
			r.pos++
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '0':
				b.WriteRune(0)
			case '"', '\\':
				b.WriteRune(esc)
			default:
				return nil, Errorf("read: unknown string escape \\%c", esc)
			}
		default:
			b.WriteRune(c)
		}
	}
}

func isDelimiter(c rune) bool {
	return unicode.IsSpace(c) || c == '(' || c == ')' || c == '[' || c == ']' || c == '"' || c == ';'
}

func (r *reader) readAtom() (Value, error) {
	start := r.pos
	for !r.eof() && !isDelimiter(r.peek()) {
		r.pos++
	}
	tok := string(r.src[start:r.pos])

	switch tok {
	case "#t", "#true":
		return true, nil
	case "#f", "#false":
		return false, nil
	}
	if looksNumeric(tok) {
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f, nil
		}
	}
	if strings.HasPrefix(tok, "#") {
		return nil, Errorf("read: bad syntax %s", tok)
	}
	return Symbol(tok), nil
}

// looksNumeric keeps symbols such as "+", "-", "inf" and "nan" out of
// strconv's hands.
func looksNumeric(tok string) bool {
	s := strings.TrimLeft(tok, "+-")
	if len(s) == len(tok)-1 || len(s) == len(tok) {
		s = strings.TrimPrefix(s, ".")
		return s != "" && s[0] >= '0' && s[0] <= '9'
	}
	return false
}
