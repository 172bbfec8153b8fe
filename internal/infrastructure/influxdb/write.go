package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the hub.
const (
	MeasurementEvaluations  = "evaluations"
	MeasurementTimerFirings = "timer_firings"
)

// WriteEvaluation records one script evaluation, tagged by where the
// command came from and how it ended.
//
//	client.WriteEvaluation("bus", "error", 3*time.Millisecond, time.Now())
func (c *Client) WriteEvaluation(source, outcome string, d time.Duration, at time.Time) {
	c.writePoint(write.NewPoint(
		MeasurementEvaluations,
		map[string]string{
			"source":  source,
			"outcome": outcome,
		},
		map[string]any{
			"duration_ms": float64(d.Microseconds()) / 1000,
		},
		at,
	))
}

// WriteTimerFiring records that the daily timer id fired.
func (c *Client) WriteTimerFiring(id string, at time.Time) {
	c.writePoint(write.NewPoint(
		MeasurementTimerFirings,
		map[string]string{"timer_id": id},
		map[string]any{"count": 1},
		at,
	))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(p)
}
