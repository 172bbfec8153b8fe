// Package actor implements the command actor: the single goroutine that
// owns the script environment and both hook tables.
//
// Every stimulus (bus events, timer firings, console lines, REPL requests)
// reaches the script environment as a Command on one FIFO inbox. The actor
// evaluates Commands strictly in arrival order and answers each with
// exactly one Response on the Command's reply channel. Script errors are
// answered, logged and journaled; they never stop the actor.
//
// The user's automation program is gated on readiness: it runs exactly
// once, on the actor goroutine, as soon as both BusReady and TimersReady
// have been received. A failing program stops Run with ErrProgramFailed.
//
// # Usage
//
//	a, err := actor.New(actor.Options{Program: src, Logger: log})
//	if err != nil {
//	    return err
//	}
//	go a.Run(ctx)
//
//	_ = a.Send(ctx, actor.BusReady{Bus: bus})
//	_ = a.Send(ctx, actor.TimersReady{Registrations: sched.Registrations()})
//
//	resp, err := a.Eval(ctx, actor.SourceConsole, "(+ 1 2)")
package actor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Siroj42/heinzelmann/internal/hooks"
	"github.com/Siroj42/heinzelmann/internal/script"
)

var (
	// ErrProgramFailed is returned by Run when the user program fails.
	ErrProgramFailed = errors.New("actor: program failed")

	// ErrStopped is returned by Send and Eval once Run has returned.
	ErrStopped = errors.New("actor: stopped")

	// ErrBootstrap wraps failures while preparing the script environment.
	ErrBootstrap = errors.New("actor: bootstrap failed")
)

// Logger defines the logging interface used by the Actor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Record describes one finished evaluation.
type Record struct {
	ID       string
	Source   Source
	Code     string
	Response Response
	Duration time.Duration
	At       time.Time
}

// Observer is notified on the actor goroutine after every evaluation.
// Implementations must not call back into the actor.
type Observer interface {
	Observe(ctx context.Context, rec Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, rec Record)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, rec Record) {
	f(ctx, rec)
}

// Options configures an Actor.
type Options struct {
	// Program is the user automation program, run once both subsystems
	// are ready.
	Program string

	// QueueSize is the inbox capacity (default 64).
	QueueSize int

	// Output receives display/newline output (default os.Stdout).
	Output io.Writer

	Logger    Logger
	Observers []Observer
}

// Actor serialises all access to the script environment.
type Actor struct {
	engine      *script.Engine
	eventHooks  *hooks.Table[script.Value]
	timerHooks  *hooks.Table[script.Value]
	program     string
	state       Readiness
	logger      Logger
	observers   []Observer
	inbox       chan Message
	done        chan struct{}
	runOnce     sync.Once
	lastErrMu   sync.RWMutex
	lastErr     *Record
	evaluations uint64
}

// New creates an Actor and bootstraps its script environment. Nothing is
// evaluated on behalf of callers until Run is started.
func New(opts Options) (*Actor, error) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	a := &Actor{
		engine:     script.New(),
		eventHooks: hooks.New[script.Value](hooks.Hierarchical),
		timerHooks: hooks.New[script.Value](hooks.Exact),
		program:    opts.Program,
		logger:     opts.Logger,
		observers:  opts.Observers,
		inbox:      make(chan Message, opts.QueueSize),
		done:       make(chan struct{}),
	}
	if opts.Output != nil {
		a.engine.SetOutput(opts.Output)
	}
	if err := a.bootstrap(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	return a, nil
}

// Run drains the inbox until ctx is cancelled or the user program fails.
// It must be called at most once.
func (a *Actor) Run(ctx context.Context) error {
	err := errors.New("actor: Run called twice")
	a.runOnce.Do(func() {
		defer close(a.done)
		err = a.loop(ctx)
	})
	return err
}

func (a *Actor) loop(ctx context.Context) error {
	a.logger.Info("actor started", "queue_size", cap(a.inbox))
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("actor stopped", "evaluations", a.evaluations)
			return nil
		case msg := <-a.inbox:
			if err := a.handle(ctx, msg); err != nil {
				return err
			}
		}
	}
}

func (a *Actor) handle(ctx context.Context, msg Message) error {
	switch m := msg.(type) {
	case Command:
		a.execute(ctx, m)
	case BusReady:
		a.installBus(m.Bus)
		a.logger.Info("bus ready")
	case TimersReady:
		a.installTimers(ctx, m.Registrations)
		a.logger.Info("timers ready")
	}

	next, runProgram := a.state.Next(msg)
	a.state = next
	if !runProgram {
		return nil
	}

	a.logger.Info("running program", "bytes", len(a.program))
	rec := a.evaluate(ctx, NewCommand(SourceProgram, a.program))
	if rec.Response.Kind == Error {
		a.logger.Error("program failed", "error", rec.Response.Text)
		return fmt.Errorf("%w: %s", ErrProgramFailed, rec.Response.Text)
	}
	a.logger.Info("program finished", "duration", rec.Duration)
	return nil
}

func (a *Actor) execute(ctx context.Context, cmd Command) {
	rec := a.evaluate(ctx, cmd)
	cmd.Reply <- rec.Response
}

// evaluate runs cmd.Code and notifies observers. Panics are turned into
// Error responses so the environment outlives any single evaluation.
func (a *Actor) evaluate(ctx context.Context, cmd Command) (rec Record) {
	rec = Record{ID: cmd.ID, Source: cmd.Source, Code: cmd.Code, At: time.Now()}

	func() {
		defer func() {
			if r := recover(); r != nil {
				rec.Response = Response{Kind: Error, Text: fmt.Sprintf("panic: %v", r)}
			}
		}()
		v, err := a.engine.Eval(cmd.Code)
		rec.Response = toResponse(v, err)
	}()

	rec.Duration = time.Since(rec.At)
	a.evaluations++

	if rec.Response.Kind == Error {
		a.setLastError(rec)
		a.logger.Warn("evaluation failed",
			"id", rec.ID,
			"source", string(rec.Source),
			"error", rec.Response.Text,
		)
	} else {
		a.logger.Debug("evaluated",
			"id", rec.ID,
			"source", string(rec.Source),
			"kind", rec.Response.Kind.String(),
			"duration", rec.Duration,
		)
	}

	for _, o := range a.observers {
		o.Observe(ctx, rec)
	}
	return rec
}

func toResponse(v script.Value, err error) Response {
	switch {
	case err != nil:
		return Response{Kind: Error, Text: err.Error()}
	case script.IsVoid(v):
		return Response{Kind: Empty}
	}
	if s, ok := v.(string); ok {
		return Response{Kind: Return, Text: s}
	}
	return Response{Kind: Return, Text: script.Repr(v)}
}

func (a *Actor) setLastError(rec Record) {
	a.lastErrMu.Lock()
	defer a.lastErrMu.Unlock()
	a.lastErr = &rec
}

// LastError returns the most recent failed evaluation, if any.
func (a *Actor) LastError() (Record, bool) {
	a.lastErrMu.RLock()
	defer a.lastErrMu.RUnlock()
	if a.lastErr == nil {
		return Record{}, false
	}
	return *a.lastErr, true
}

// Send enqueues msg. It blocks while the inbox is full.
func (a *Actor) Send(ctx context.Context, msg Message) error {
	select {
	case <-a.done:
		return ErrStopped
	default:
	}
	select {
	case a.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return ErrStopped
	}
}

// Eval submits code and blocks until its Response arrives.
func (a *Actor) Eval(ctx context.Context, source Source, code string) (Response, error) {
	cmd := NewCommand(source, code)
	if err := a.Send(ctx, cmd); err != nil {
		return Response{}, err
	}
	select {
	case resp := <-cmd.Reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-a.done:
		// The actor may have answered just before stopping.
		select {
		case resp := <-cmd.Reply:
			return resp, nil
		default:
			return Response{}, ErrStopped
		}
	}
}

// Done is closed when Run returns.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}
