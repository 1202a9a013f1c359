package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/config"
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

func newTestClient() (*Client, *fakeWriter) {
	w := &fakeWriter{}
	return &Client{writeAPI: w, connected: true}, w
}

func tagMap(p *write.Point) map[string]string {
	m := map[string]string{}
	for _, tag := range p.TagList() {
		m[tag.Key] = tag.Value
	}
	return m
}

func fieldMap(p *write.Point) map[string]interface{} {
	m := map[string]interface{}{}
	for _, field := range p.FieldList() {
		m[field.Key] = field.Value
	}
	return m
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Org:     "graylogic",
		Bucket:  "bridge",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteSessionMetric(t *testing.T) {
	c, w := newTestClient()

	c.WriteSessionMetric(SessionMetric{
		SessionID:  "s-1",
		RootTopic:  "homeassistant",
		Devices:    2,
		Entities:   5,
		Rejected:   1,
		Duplicates: 3,
		Window:     500 * time.Millisecond,
	})

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != MeasurementDiscoverySession {
		t.Errorf("Name() = %q", p.Name())
	}
	if tagMap(p)["root_topic"] != "homeassistant" {
		t.Errorf("tags = %v", tagMap(p))
	}
	fields := fieldMap(p)
	// The point converts ints to int64.
	if fields["devices"] != int64(2) || fields["entities"] != int64(5) || fields["window_ms"] != int64(500) {
		t.Errorf("fields = %v", fields)
	}
}

func TestWriteRegistrationMetric(t *testing.T) {
	c, w := newTestClient()

	c.WriteRegistrationMetric("dev-1", 2, false)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != MeasurementRegistration || tagMap(p)["device_id"] != "dev-1" {
		t.Errorf("point = %s %v", p.Name(), tagMap(p))
	}
	if fieldMap(p)["ok"] != false {
		t.Errorf("ok field = %v, want false", fieldMap(p)["ok"])
	}
}

func TestWrite_DroppedWhenDisconnected(t *testing.T) {
	c, w := newTestClient()
	c.connected = false

	c.WriteRegistrationMetric("dev-1", 1, true)
	c.Flush()

	if len(w.points) != 0 || w.flushes != 0 {
		t.Errorf("points = %d flushes = %d, want 0/0", len(w.points), w.flushes)
	}
}

func TestWritePointWithTime(t *testing.T) {
	c, w := newTestClient()
	ts := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	c.WritePointWithTime("custom", map[string]string{"k": "v"}, map[string]interface{}{"n": 1.5}, ts)

	if len(w.points) != 1 || !w.points[0].Time().Equal(ts) {
		t.Errorf("points = %v", w.points)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
