package actor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Siroj42/heinzelmann/internal/hooks"
	"github.com/Siroj42/heinzelmann/internal/schedule"
	"github.com/Siroj42/heinzelmann/internal/script"
)

const hookTableType = "hook-table"

// Global names of the two hook tables inside the script environment.
const (
	EventHooksVar = "*event-hooks*"
	TimerHooksVar = "*timer-hooks*"
)

// prelude defines the script-level dispatch API on top of the hook-table
// natives. set-timer, send-simple, send-retain and subscribe are replaced
// by working natives once the corresponding subsystem is ready.
const prelude = `
(define (register-event! topic fn)
  (hook-table-add! *event-hooks* topic fn))

(define (register-timer! id fn . at)
  (let ((added (hook-table-add! *timer-hooks* id fn)))
    (when (and added (pair? at))
      (set-timer (car at) id))
    added))

(define (handle-event topic payload)
  (let ((hook (hook-table-find *event-hooks* topic)))
    (when hook
      (hook topic payload))))

(define (handle-timer id)
  (let ((hook (hook-table-find *timer-hooks* id)))
    (when hook
      (hook))))

(register-event! "#"
  (lambda (topic payload)
    (log-info "unhandled event" "topic" topic "payload" payload)))
`

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func (a *Actor) bootstrap() error {
	e := a.engine

	// Utilities.
	e.RegisterFn("random-string", 1, 1, func(args []script.Value) (script.Value, error) {
		n, err := script.IntArg("random-string", args, 0)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, script.Errorf("random-string: negative length %d", n)
		}
		b := make([]byte, n)
		for i := range b {
			b[i] = randomAlphabet[rand.IntN(len(randomAlphabet))]
		}
		return string(b), nil
	})
	e.RegisterFn("current-timestamp", 0, 0, func([]script.Value) (script.Value, error) {
		return time.Now().Unix(), nil
	})
	e.RegisterFn("md5", 1, 1, func(args []script.Value) (script.Value, error) {
		items, err := script.ToSlice(args[0])
		if err != nil {
			return nil, script.Errorf("md5: expected list of strings, got %s", script.Repr(args[0]))
		}
		h := md5.New()
		for i := range items {
			s, err := script.StringArg("md5", items, i)
			if err != nil {
				return nil, err
			}
			h.Write([]byte(s))
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	})

	// Logging.
	e.RegisterFn("log-info", 1, -1, a.logNative(a.logger.Info))
	e.RegisterFn("log-warn", 1, -1, a.logNative(a.logger.Warn))
	e.RegisterFn("last-error", 0, 0, func([]script.Value) (script.Value, error) {
		rec, ok := a.LastError()
		if !ok {
			return false, nil
		}
		return rec.Response.Text, nil
	})

	// Hook tables.
	e.RegisterFn("make-hook-table", 1, 1, func(args []script.Value) (script.Value, error) {
		kind, ok := args[0].(script.Symbol)
		switch {
		case ok && kind == "exact":
			return newHookTable(hooks.New[script.Value](hooks.Exact)), nil
		case ok && kind == "hierarchical":
			return newHookTable(hooks.New[script.Value](hooks.Hierarchical)), nil
		}
		return nil, script.Errorf("make-hook-table: expected 'exact or 'hierarchical, got %s", script.Repr(args[0]))
	})
	e.RegisterFn("hook-table-add!", 3, 3, func(args []script.Value) (script.Value, error) {
		table, err := hookTableArg("hook-table-add!", args, 0)
		if err != nil {
			return nil, err
		}
		key, ok := args[1].(string)
		if !ok {
			return false, nil
		}
		table.Add(key, args[2])
		return true, nil
	})
	e.RegisterFn("hook-table-find", 2, 2, func(args []script.Value) (script.Value, error) {
		table, err := hookTableArg("hook-table-find", args, 0)
		if err != nil {
			return nil, err
		}
		key, err := script.StringArg("hook-table-find", args, 1)
		if err != nil {
			return nil, err
		}
		if v, ok := table.Find(key); ok {
			return v, nil
		}
		return false, nil
	})
	e.RegisterFn("hook-table-remove!", 2, 2, func(args []script.Value) (script.Value, error) {
		table, err := hookTableArg("hook-table-remove!", args, 0)
		if err != nil {
			return nil, err
		}
		key, err := script.StringArg("hook-table-remove!", args, 1)
		if err != nil {
			return nil, err
		}
		return table.Remove(key), nil
	})
	e.RegisterFn("hook-table-keys", 1, 1, func(args []script.Value) (script.Value, error) {
		table, err := hookTableArg("hook-table-keys", args, 0)
		if err != nil {
			return nil, err
		}
		keys := table.Keys()
		vals := make([]script.Value, len(keys))
		for i, k := range keys {
			vals[i] = k
		}
		return script.List(vals...), nil
	})
	e.Define(EventHooksVar, newHookTable(a.eventHooks))
	e.Define(TimerHooksVar, newHookTable(a.timerHooks))

	// Placeholders until the subsystems announce themselves.
	e.RegisterFn("send-simple", 2, 2, notReady("send-simple", "bus"))
	e.RegisterFn("send-retain", 2, 2, notReady("send-retain", "bus"))
	e.RegisterFn("subscribe", 1, 1, notReady("subscribe", "bus"))
	e.RegisterFn("unsubscribe", 1, 1, notReady("unsubscribe", "bus"))
	e.RegisterFn("set-timer", 2, 2, notReady("set-timer", "timer subsystem"))

	_, err := e.Eval(prelude)
	return err
}

func notReady(name, subsystem string) script.NativeFunc {
	return func([]script.Value) (script.Value, error) {
		return nil, script.Errorf("%s: %s not ready", name, subsystem)
	}
}

func newHookTable(t *hooks.Table[script.Value]) *script.Opaque {
	return &script.Opaque{TypeName: hookTableType, Data: t}
}

func hookTableArg(fn string, args []script.Value, i int) (*hooks.Table[script.Value], error) {
	if o, ok := args[i].(*script.Opaque); ok {
		if t, ok := o.Data.(*hooks.Table[script.Value]); ok {
			return t, nil
		}
	}
	return nil, script.Errorf("%s: expected %s, got %s", fn, hookTableType, script.Repr(args[i]))
}

// logNative exposes a log level to scripts: (log-info msg key value ...).
func (a *Actor) logNative(emit func(string, ...any)) script.NativeFunc {
	return func(args []script.Value) (script.Value, error) {
		attrs := make([]any, 0, len(args)-1)
		for _, v := range args[1:] {
			attrs = append(attrs, script.Display(v))
		}
		emit(script.Display(args[0]), attrs...)
		return script.Void, nil
	}
}

func (a *Actor) installBus(bus Bus) {
	publish := func(name string, retained bool) script.NativeFunc {
		return func(args []script.Value) (script.Value, error) {
			topic, err := script.StringArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			payload, err := script.StringArg(name, args, 1)
			if err != nil {
				return nil, err
			}
			if err := bus.Publish(topic, []byte(payload), retained); err != nil {
				return nil, script.Errorf("%s: %v", name, err)
			}
			return script.Void, nil
		}
	}
	topicOp := func(name string, op func(string) error) script.NativeFunc {
		return func(args []script.Value) (script.Value, error) {
			topic, err := script.StringArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			if err := op(topic); err != nil {
				return nil, script.Errorf("%s: %v", name, err)
			}
			return script.Void, nil
		}
	}
	a.engine.RegisterFn("send-simple", 2, 2, publish("send-simple", false))
	a.engine.RegisterFn("send-retain", 2, 2, publish("send-retain", true))
	a.engine.RegisterFn("subscribe", 1, 1, topicOp("subscribe", bus.Subscribe))
	a.engine.RegisterFn("unsubscribe", 1, 1, topicOp("unsubscribe", bus.Unsubscribe))
}

func (a *Actor) installTimers(ctx context.Context, registrations chan<- schedule.Entry) {
	a.engine.RegisterFn("set-timer", 2, 2, func(args []script.Value) (script.Value, error) {
		at, err := script.StringArg("set-timer", args, 0)
		if err != nil {
			return nil, err
		}
		id, err := script.StringArg("set-timer", args, 1)
		if err != nil {
			return nil, err
		}
		entry, err := schedule.ParseEntry(at, id)
		if err != nil {
			return nil, script.Errorf("set-timer: %s", strings.TrimPrefix(err.Error(), "schedule: "))
		}
		select {
		case registrations <- entry:
			return script.Void, nil
		case <-ctx.Done():
			return nil, script.Errorf("set-timer: %v", ctx.Err())
		}
	})
}
