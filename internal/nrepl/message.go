package nrepl

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/jackpal/bencode-go"
)

// Operations understood by the server.
const (
	OpClone      = "clone"
	OpEval       = "eval"
	OpDescribe   = "describe"
	OpLsSessions = "ls-sessions"
	OpClose      = "close"
)

// SupportedOps is advertised by describe.
var SupportedOps = []string{OpClone, OpEval, OpDescribe, OpLsSessions, OpClose}

const (
	statusDone = "done"
	namespace  = "ns"
)

// request is a decoded client message. The session is accepted either as a
// bencode integer or as a decimal string. The message id is opaque and is
// echoed back exactly as the client sent it.
type request struct {
	Op      string
	ID      any
	Session int64
	Code    string
}

func decodeRequest(frame []byte) (request, error) {
	v, err := bencode.Decode(bytes.NewReader(frame))
	if err != nil {
		return request{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return request{}, fmt.Errorf("%w: message is not a dictionary", ErrMalformedFrame)
	}

	var req request
	if req.Op, ok = m["op"].(string); !ok {
		return request{}, fmt.Errorf("%w: missing op", ErrMalformedFrame)
	}
	req.Code, _ = m["code"].(string)
	if req.ID, err = idField(m); err != nil {
		return request{}, err
	}
	if req.Session, err = intField(m, "session"); err != nil {
		return request{}, err
	}
	return req, nil
}

// idField returns the message id as an int64 or a string. A missing id
// reads as 0.
func idField(m map[string]any) (any, error) {
	switch v := m["id"].(type) {
	case nil:
		return int64(0), nil
	case int64, string:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: id has type %T", ErrMalformedFrame, v)
	}
}

func intField(m map[string]any, key string) (int64, error) {
	switch v := m[key].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not a number", ErrMalformedFrame, key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrMalformedFrame, key, v)
	}
}

func writeMessage(w io.Writer, msg map[string]any) error {
	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, msg); err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func decodeResponse(frame []byte) (map[string]any, error) {
	v, err := bencode.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: response is not a dictionary", ErrMalformedFrame)
	}
	return m, nil
}
