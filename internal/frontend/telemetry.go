package frontend

import (
	"context"
	"time"

	"github.com/Siroj42/heinzelmann/internal/actor"
)

// EvaluationRecorder records evaluation telemetry. *influxdb.Client
// implements it.
type EvaluationRecorder interface {
	WriteEvaluation(source, outcome string, d time.Duration, at time.Time)
}

// TelemetryObserver reports every evaluation to w.
func TelemetryObserver(w EvaluationRecorder) actor.Observer {
	return actor.ObserverFunc(func(_ context.Context, rec actor.Record) {
		w.WriteEvaluation(string(rec.Source), rec.Response.Kind.String(), rec.Duration, rec.At)
	})
}
