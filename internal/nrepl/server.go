// Package nrepl exposes the command actor to remote tooling over a
// bencode request/response protocol in the style of nREPL.
//
// Each accepted connection gets its own goroutine and its own session
// list: sessions cloned on one connection are unknown to every other.
// Peers outside the configured allow list are closed immediately after
// accept. A malformed frame closes only the connection it arrived on.
//
// Requests for an unknown session, close requests and unsupported
// operations get no response at all.
package nrepl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/Siroj42/heinzelmann/internal/actor"
	"github.com/Siroj42/heinzelmann/internal/infrastructure/config"
)

const (
	defaultReadTimeout = 200 * time.Millisecond
	writeTimeout       = 5 * time.Second
)

// Evaluator runs code on behalf of a REPL client. *actor.Actor implements it.
type Evaluator interface {
	Eval(ctx context.Context, source actor.Source, code string) (actor.Response, error)
}

// Logger defines the logging interface used by the Server.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Server accepts REPL connections.
type Server struct {
	addr        string
	readTimeout time.Duration
	allowed     map[netip.Addr]struct{}
	eval        Evaluator
	logger      Logger

	wg sync.WaitGroup
}

// NewServer creates a server from cfg. Every allow list entry must be an
// IP address.
func NewServer(cfg config.REPLConfig, eval Evaluator, logger Logger) (*Server, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	allowed := make(map[netip.Addr]struct{}, len(cfg.AllowList))
	for _, entry := range cfg.AllowList {
		ip, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("nrepl: allow list entry %q: %w", entry, err)
		}
		allowed[ip.Unmap()] = struct{}{}
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	return &Server{
		addr:        cfg.Addr(),
		readTimeout: readTimeout,
		allowed:     allowed,
		eval:        eval,
		logger:      logger,
	}, nil
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled. A bind failure is returned immediately.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("nrepl: listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln
// and waits for open connections to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("REPL server listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		ln.Close() //nolint:errcheck // Unblocks Accept
	})
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("nrepl: accepting: %w", err)
		}

		if !s.isAllowed(conn.RemoteAddr()) {
			s.logger.Debug("REPL connection rejected", "remote", conn.RemoteAddr().String())
			conn.Close() //nolint:errcheck // Rejected peer
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) isAllowed(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return false
	}
	ip, ok := netip.AddrFromSlice(tcp.IP)
	if !ok {
		return false
	}
	_, allowed := s.allowed[ip.Unmap()]
	return allowed
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("REPL connection opened", "remote", remote)

	var sessions sessionList
	f := newFramer(conn)

	for ctx.Err() == nil {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return
		}

		frame, err := f.next()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				continue
			case errors.Is(err, io.EOF):
				s.logger.Debug("REPL connection closed", "remote", remote, "pending_bytes", f.buffered())
			case errors.Is(err, ErrMalformedFrame), errors.Is(err, ErrFrameTooLarge):
				s.logger.Warn("REPL frame rejected, closing connection", "remote", remote, "error", err)
			default:
				s.logger.Debug("REPL read failed", "remote", remote, "error", err)
			}
			return
		}

		if err := s.dispatch(ctx, conn, &sessions, frame); err != nil {
			s.logger.Warn("REPL request failed, closing connection", "remote", remote, "error", err)
			return
		}
	}
}

// dispatch handles one request. A non-nil error closes the connection.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, sessions *sessionList, frame []byte) error {
	req, err := decodeRequest(frame)
	if err != nil {
		return err
	}

	var resp map[string]any
	switch req.Op {
	case OpClone:
		resp = map[string]any{
			"id":          req.ID,
			"new-session": sessions.clone(),
			"status":      []string{statusDone},
		}

	case OpEval:
		if !sessions.contains(req.Session) {
			s.logger.Debug("eval for unknown session dropped", "session", req.Session)
			return nil
		}
		r, err := s.eval.Eval(ctx, actor.SourceREPL, req.Code)
		if err != nil {
			return fmt.Errorf("evaluating: %w", err)
		}
		resp = map[string]any{
			"id":      req.ID,
			"session": req.Session,
			"value":   formatValue(r),
			"ns":      namespace,
			"status":  []string{statusDone},
		}

	case OpDescribe:
		resp = map[string]any{
			"ops": SupportedOps,
			"aux": []string{},
		}

	case OpLsSessions:
		resp = map[string]any{
			"sessions": sessions.list(),
		}

	case OpClose:
		sessions.close(req.Session)
		return nil

	default:
		s.logger.Debug("unsupported op dropped", "op", req.Op)
		return nil
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return writeMessage(conn, resp)
}

// formatValue renders a response the way REPL clients print it.
func formatValue(r actor.Response) string {
	switch r.Kind {
	case actor.Empty:
		return "()"
	case actor.Error:
		return "Error: " + r.Text
	default:
		return r.Text
	}
}
