package nrepl

import (
	"bytes"
	"errors"
	"io"
)

// MaxFrameSize bounds a single encoded message.
const MaxFrameSize = 1 << 20

const (
	maxNesting    = 32
	maxLenDigits  = 10
	readChunkSize = 4096
)

var (
	// ErrMalformedFrame is returned when buffered input is not valid bencode.
	ErrMalformedFrame = errors.New("nrepl: malformed frame")

	// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("nrepl: frame too large")

	errIncomplete = errors.New("incomplete")
)

// frameLength reports the byte length of the first complete bencode value
// in buf. It returns 0 and a nil error when more input is needed.
func frameLength(buf []byte) (int, error) {
	n, err := scanValue(buf, 0, 0)
	switch {
	case errors.Is(err, errIncomplete):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return n, nil
}

// scanValue returns the offset just past the value starting at pos.
func scanValue(buf []byte, pos, depth int) (int, error) {
	if depth > maxNesting {
		return 0, ErrMalformedFrame
	}
	if pos >= len(buf) {
		return 0, errIncomplete
	}

	switch c := buf[pos]; {
	case c == 'i':
		return scanInt(buf, pos+1)
	case c == 'l' || c == 'd':
		dict := c == 'd'
		pos++
		for {
			if pos >= len(buf) {
				return 0, errIncomplete
			}
			if buf[pos] == 'e' {
				return pos + 1, nil
			}
			if dict {
				if !isDigit(buf[pos]) {
					return 0, ErrMalformedFrame
				}
				next, err := scanString(buf, pos)
				if err != nil {
					return 0, err
				}
				pos = next
			}
			next, err := scanValue(buf, pos, depth+1)
			if err != nil {
				return 0, err
			}
			pos = next
		}
	case isDigit(c):
		return scanString(buf, pos)
	default:
		return 0, ErrMalformedFrame
	}
}

func scanInt(buf []byte, pos int) (int, error) {
	start := pos
	if pos < len(buf) && buf[pos] == '-' {
		pos++
	}
	digits := 0
	for ; pos < len(buf); pos++ {
		switch c := buf[pos]; {
		case c == 'e':
			if digits == 0 || pos-start > 20 {
				return 0, ErrMalformedFrame
			}
			return pos + 1, nil
		case isDigit(c):
			digits++
		default:
			return 0, ErrMalformedFrame
		}
	}
	return 0, errIncomplete
}

func scanString(buf []byte, pos int) (int, error) {
	length := 0
	digits := 0
	for ; pos < len(buf); pos++ {
		c := buf[pos]
		if c == ':' {
			if digits == 0 {
				return 0, ErrMalformedFrame
			}
			if length > MaxFrameSize {
				return 0, ErrFrameTooLarge
			}
			end := pos + 1 + length
			if end > len(buf) {
				return 0, errIncomplete
			}
			return end, nil
		}
		if !isDigit(c) || digits == maxLenDigits {
			return 0, ErrMalformedFrame
		}
		length = length*10 + int(c-'0')
		digits++
	}
	return 0, errIncomplete
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// framer splits a byte stream into bencode frames. Input read past the end
// of a frame is kept for the next call, so a read error (a deadline, say)
// never loses buffered bytes.
type framer struct {
	r     io.Reader
	buf   []byte
	chunk []byte
}

func newFramer(r io.Reader) *framer {
	return &framer{r: r, chunk: make([]byte, readChunkSize)}
}

// next returns the next complete frame, reading as needed.
func (f *framer) next() ([]byte, error) {
	for {
		n, err := frameLength(f.buf)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			frame := bytes.Clone(f.buf[:n])
			f.buf = append(f.buf[:0], f.buf[n:]...)
			return frame, nil
		}
		if len(f.buf) >= MaxFrameSize {
			return nil, ErrFrameTooLarge
		}

		k, err := f.r.Read(f.chunk)
		f.buf = append(f.buf, f.chunk[:k]...)
		if err != nil {
			return nil, err
		}
	}
}

// buffered reports whether a partial frame is waiting for more input.
func (f *framer) buffered() int {
	return len(f.buf)
}
