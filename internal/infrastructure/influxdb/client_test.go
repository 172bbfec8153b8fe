package influxdb

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/Siroj42/heinzelmann/internal/infrastructure/config"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func connectedClient(w *fakeWriter) *Client {
	return &Client{writer: w, connected: true}
}

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestWriteEvaluation(t *testing.T) {
	w := &fakeWriter{}
	c := connectedClient(w)
	at := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)

	c.WriteEvaluation("bus", "error", 2500*time.Microsecond, at)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != MeasurementEvaluations {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementEvaluations)
	}
	if got := tags(p); got["source"] != "bus" || got["outcome"] != "error" {
		t.Errorf("tags = %v", got)
	}
	if got := fields(p)["duration_ms"]; got != 2.5 {
		t.Errorf("duration_ms = %v, want 2.5", got)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}
}

func TestWriteTimerFiring(t *testing.T) {
	w := &fakeWriter{}
	c := connectedClient(w)

	c.WriteTimerFiring("morning", time.Now())

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != MeasurementTimerFirings {
		t.Errorf("Name() = %q", p.Name())
	}
	if got := tags(p)["timer_id"]; got != "morning" {
		t.Errorf("timer_id = %q, want morning", got)
	}
	if got := fields(p)["count"]; got != int64(1) {
		t.Errorf("count = %v (%T), want int64 1", got, got)
	}
}

func TestWritesDroppedWhenDisconnected(t *testing.T) {
	w := &fakeWriter{}
	c := &Client{writer: w}

	c.WriteEvaluation("repl", "return", time.Millisecond, time.Now())
	c.WriteTimerFiring("x", time.Now())
	c.Flush()

	if len(w.points) != 0 || w.flushes != 0 {
		t.Errorf("disconnected client wrote %d points, %d flushes", len(w.points), w.flushes)
	}
}

func TestFlush(t *testing.T) {
	w := &fakeWriter{}
	connectedClient(w).Flush()

	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOnErrorCallback(t *testing.T) {
	c := &Client{}
	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	errs := make(chan error, 1)
	errs <- errors.New("write rejected")
	close(errs)
	c.handleWriteErrors(errs)

	select {
	case err := <-got:
		if err.Error() != "write rejected" {
			t.Errorf("callback error = %v", err)
		}
	default:
		t.Fatal("callback not invoked")
	}
}

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, config.InfluxDBConfig{Enabled: true, URL: "http://127.0.0.1:59999"})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// TestConnectLive runs against a real server when INFLUXDB_TEST_URL is set.
func TestConnectLive(t *testing.T) {
	url := os.Getenv("INFLUXDB_TEST_URL")
	if url == "" {
		t.Skip("INFLUXDB_TEST_URL not set")
	}

	c, err := Connect(context.Background(), config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         os.Getenv("INFLUXDB_TEST_TOKEN"),
		Org:           "heinzelmann",
		Bucket:        "telemetry",
		FlushInterval: 1,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	c.WriteEvaluation("repl", "return", time.Millisecond, time.Now())
	c.Flush()
}
