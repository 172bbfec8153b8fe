// Package frontend connects the outside world to the command actor.
//
// Every front-end turns a stimulus into script code and waits for the
// actor's reply before taking the next one:
//   - BusAdapter and Ingest feed broker messages to handle-event
//   - Console evaluates lines read from a terminal
//   - TimerFirer calls handle-timer when a daily alarm is due
//
// The synchronous round trip is the back-pressure mechanism: a slow
// evaluation stalls the front-end that caused it.
package frontend

import (
	"context"

	"github.com/Siroj42/heinzelmann/internal/actor"
)

// Evaluator submits code to the actor and waits for the response.
// *actor.Actor implements it.
type Evaluator interface {
	Eval(ctx context.Context, source actor.Source, code string) (actor.Response, error)
}

// Logger defines the logging interface used by the front-ends.
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

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}
