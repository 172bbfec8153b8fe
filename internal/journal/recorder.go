package journal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Siroj42/heinzelmann/internal/actor"
)

const (
	defaultRecorderQueue = 256
	flushTimeout         = 2 * time.Second
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	// RecordAll journals successful evaluations too.
	RecordAll bool

	// QueueSize bounds the entries waiting to be written (default 256).
	QueueSize int

	Logger Logger
}

// Recorder is an actor.Observer that journals evaluations. Observe never
// blocks the actor: entries are queued and written by Run, and dropped
// with a warning when the queue is full.
type Recorder struct {
	repo      Repository
	recordAll bool
	queue     chan Entry
	logger    Logger
	dropped   atomic.Uint64
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository, opts RecorderOptions) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultRecorderQueue
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Recorder{
		repo:      repo,
		recordAll: opts.RecordAll,
		queue:     make(chan Entry, opts.QueueSize),
		logger:    opts.Logger,
	}
}

// Observe implements actor.Observer.
func (r *Recorder) Observe(_ context.Context, rec actor.Record) {
	if rec.Response.Kind != actor.Error && !r.recordAll {
		return
	}

	select {
	case r.queue <- entryFromRecord(rec):
	default:
		r.dropped.Add(1)
		r.logger.Warn("journal queue full, entry dropped", "id", rec.ID, "source", string(rec.Source))
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run writes queued entries until ctx is cancelled, then flushes what is
// already queued within a short grace period.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.queue:
			r.write(ctx, e)
		case <-ctx.Done():
			r.flush(ctx)
			return nil
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	for {
		select {
		case e := <-r.queue:
			r.write(flushCtx, e)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, e Entry) {
	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Error("writing journal entry", "id", e.ID, "error", err)
	}
}

func entryFromRecord(rec actor.Record) Entry {
	e := Entry{
		ID:        rec.ID,
		Source:    string(rec.Source),
		Code:      rec.Code,
		Duration:  rec.Duration,
		CreatedAt: rec.At,
	}
	switch rec.Response.Kind {
	case actor.Error:
		e.Outcome = OutcomeError
		e.Error = rec.Response.Text
	case actor.Return:
		e.Outcome = OutcomeReturn
		e.Value = rec.Response.Text
	default:
		e.Outcome = OutcomeEmpty
	}
	return e
}
