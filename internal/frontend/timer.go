package frontend

import (
	"context"
	"fmt"
	"time"

	"github.com/Siroj42/heinzelmann/internal/actor"
	"github.com/Siroj42/heinzelmann/internal/schedule"
	"github.com/Siroj42/heinzelmann/internal/script"
)

// TimerRecorder records timer firings. *influxdb.Client implements it.
type TimerRecorder interface {
	WriteTimerFiring(id string, at time.Time)
}

// TimerFirer turns due alarms into handle-timer Commands.
type TimerFirer struct {
	eval     Evaluator
	recorder TimerRecorder
	logger   Logger
}

// NewTimerFirer creates a TimerFirer. recorder may be nil.
func NewTimerFirer(ev Evaluator, recorder TimerRecorder, logger Logger) *TimerFirer {
	return &TimerFirer{eval: ev, recorder: recorder, logger: orNoop(logger)}
}

// Fire is a schedule.FireFunc. It blocks until the hook has run, so an
// alarm never re-arms while its previous firing is still evaluating.
func (t *TimerFirer) Fire(ctx context.Context, e schedule.Entry) error {
	t.logger.Debug("timer due", "entry", e.String())

	if t.recorder != nil {
		t.recorder.WriteTimerFiring(e.ID, time.Now())
	}

	resp, err := t.eval.Eval(ctx, actor.SourceTimer, TimerCode(e.ID))
	if err != nil {
		return fmt.Errorf("firing timer %s: %w", e.ID, err)
	}
	if resp.Kind == actor.Error {
		return fmt.Errorf("timer hook %s: %s", e.ID, resp.Text)
	}
	return nil
}

// TimerCode builds the handle-timer call for timer id.
func TimerCode(id string) string {
	return fmt.Sprintf("(handle-timer %s)", script.Quote(id))
}
