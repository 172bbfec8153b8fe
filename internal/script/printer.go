package script

import (
	"math"
	"strconv"
	"strings"
)

// Repr renders v the way the reader would read it back (strings quoted).
// It is the stringification used for evaluation results.
func Repr(v Value) string {
	var b strings.Builder
	write(&b, v, true)
	return b.String()
}

// Display renders v for humans: strings are written without quotes.
func Display(v Value) string {
	var b strings.Builder
	write(&b, v, false)
	return b.String()
}

// Quote returns s as a string literal that Parse reads back as s.
// Host code uses it to splice untrusted text (topics, payloads, ids) into
// generated expressions.
func Quote(s string) string {
	var b strings.Builder
	writeString(&b, s)
	return b.String()
}

func write(b *strings.Builder, v Value, quoted bool) {
	switch v := v.(type) {
	case nil:
		b.WriteString("#<nil>")
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case float64:
		b.WriteString(formatFloat(v))
	case string:
		if quoted {
			writeString(b, v)
		} else {
			b.WriteString(v)
		}
	case bool:
		if v {
			b.WriteString("#t")
		} else {
			b.WriteString("#f")
		}
	case Symbol:
		b.WriteString(string(v))
	case emptyList:
		b.WriteString("()")
	case voidValue:
		b.WriteString("#<void>")
	case *Pair:
		writeList(b, v, quoted)
	case *Procedure:
		if v.Name == "" {
			b.WriteString("#<procedure>")
		} else {
			b.WriteString("#<procedure:" + v.Name + ">")
		}
	case *Native:
		b.WriteString("#<procedure:" + v.Name + ">")
	case *Opaque:
		b.WriteString("#<" + v.TypeName + ">")
	default:
		b.WriteString("#<" + typeName(v) + ">")
	}
}

func writeList(b *strings.Builder, p *Pair, quoted bool) {
	if sym, ok := p.Car.(Symbol); ok && sym == "quote" {
		if rest, ok := p.Cdr.(*Pair); ok && rest.Cdr == Nil {
			b.WriteByte('\'')
			write(b, rest.Car, quoted)
			return
		}
	}
	b.WriteByte('(')
	var cur Value = p
	first := true
	for {
		switch c := cur.(type) {
		case *Pair:
			if !first {
				b.WriteByte(' ')
			}
			write(b, c.Car, quoted)
			first = false
			cur = c.Cdr
			continue
		case emptyList:
		default:
			b.WriteString(" . ")
			write(b, c, quoted)
		}
		break
	}
	b.WriteByte(')')
}

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf.0"
	case math.IsInf(f, -1):
		return "-inf.0"
	case math.IsNaN(f):
		return "+nan.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
