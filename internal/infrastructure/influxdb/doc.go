// Package influxdb writes optional hub telemetry to InfluxDB v2.
//
// Two measurements are written:
//   - evaluations{source,outcome} duration_ms=<float>
//   - timer_firings{timer_id} count=1
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry switched off
//	}
//	defer client.Close()
//
//	client.WriteTimerFiring("morning", time.Now())
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Asynchronous write errors are delivered to the
// SetOnError callback.
package influxdb
