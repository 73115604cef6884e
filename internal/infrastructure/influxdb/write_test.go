package influxdb

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
)

// recordingWriteAPI captures points instead of sending them.
type recordingWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
	errs   chan error
}

func newRecordingWriteAPI() *recordingWriteAPI {
	return &recordingWriteAPI{errs: make(chan error)}
}

func (r *recordingWriteAPI) WriteRecord(string) {}

func (r *recordingWriteAPI) WritePoint(p *write.Point) {
	r.mu.Lock()
	r.points = append(r.points, p)
	r.mu.Unlock()
}

func (r *recordingWriteAPI) Flush()                                         {}
func (r *recordingWriteAPI) Errors() <-chan error                           { return r.errs }
func (r *recordingWriteAPI) SetWriteFailedCallback(api.WriteFailedCallback) {}

func pointTags(p *write.Point) map[string]string {
	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	return tags
}

func pointFields(p *write.Point) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	return fields
}

func TestNewChannelPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		in       ChannelPoint
		wantTags map[string]string
	}{
		{
			name: "with unit",
			in:   ChannelPoint{DeviceID: "hall-temp", Channel: "temperature", Family: "enocean", Unit: "°C", Value: 21.5, Time: ts},
			wantTags: map[string]string{
				"device": "hall-temp", "channel": "temperature", "family": "enocean", "unit": "°C",
			},
		},
		{
			name: "without unit",
			in:   ChannelPoint{DeviceID: "window", Channel: "contact", Family: "enocean", Value: 1, Time: ts},
			wantTags: map[string]string{
				"device": "window", "channel": "contact", "family": "enocean",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewChannelPoint(tt.in)

			if p.Name() != MeasurementChannelValues {
				t.Errorf("Name() = %q, want %q", p.Name(), MeasurementChannelValues)
			}
			tags := pointTags(p)
			if len(tags) != len(tt.wantTags) {
				t.Errorf("tags = %v, want %v", tags, tt.wantTags)
			}
			for k, v := range tt.wantTags {
				if tags[k] != v {
					t.Errorf("tag %s = %q, want %q", k, tags[k], v)
				}
			}
			if got := pointFields(p)["value"]; got != tt.in.Value {
				t.Errorf("value = %v, want %v", got, tt.in.Value)
			}
			if !p.Time().Equal(ts) {
				t.Errorf("Time() = %v, want %v", p.Time(), ts)
			}
		})
	}
}

func TestNewChannelPointDefaultsTime(t *testing.T) {
	before := time.Now()
	p := NewChannelPoint(ChannelPoint{DeviceID: "d", Channel: "c", Family: "knx"})
	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want >= %v", p.Time(), before)
	}
}

func TestWriteChannelValueRequiresConnection(t *testing.T) {
	rec := newRecordingWriteAPI()
	c := &Client{writeAPI: rec}

	c.WriteChannelValue(ChannelPoint{DeviceID: "d", Channel: "c", Family: "knx", Value: 1})
	if len(rec.points) != 0 {
		t.Fatalf("points written while disconnected = %d, want 0", len(rec.points))
	}

	c.connected.Store(true)
	c.WriteChannelValue(ChannelPoint{DeviceID: "d", Channel: "c", Family: "knx", Value: 1})
	if len(rec.points) != 1 {
		t.Fatalf("points written = %d, want 1", len(rec.points))
	}
}

func TestWriteGatewayStats(t *testing.T) {
	rec := newRecordingWriteAPI()
	c := &Client{writeAPI: rec}
	c.connected.Store(true)

	c.WriteGatewayStats("gw", "p1", nil)
	if len(rec.points) != 0 {
		t.Fatalf("empty counters wrote %d points", len(rec.points))
	}

	c.WriteGatewayStats("gw", "p1", map[string]uint64{"telegrams_ok": 10, "telegrams_rejected": 2})
	if len(rec.points) != 1 {
		t.Fatalf("points written = %d, want 1", len(rec.points))
	}

	p := rec.points[0]
	if p.Name() != MeasurementGatewayStats {
		t.Errorf("Name() = %q", p.Name())
	}
	if tags := pointTags(p); tags["gateway"] != "gw" || tags["transport"] != "p1" {
		t.Errorf("tags = %v", tags)
	}
	if got := pointFields(p)["telegrams_rejected"]; got != uint64(2) {
		t.Errorf("telegrams_rejected = %v (%T), want 2", got, got)
	}
}

func TestWriteOptions(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantBatch uint
		wantFlush uint
	}{
		{"defaults", config.InfluxDBConfig{}, 100, 10000},
		{"configured", config.InfluxDBConfig{BatchSize: 500, FlushInterval: 2}, 500, 2000},
		{"negative", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -1}, 100, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := writeOptions(tt.cfg)
			if got := opts.BatchSize(); got != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", got, tt.wantBatch)
			}
			if got := opts.FlushInterval(); got != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", got, tt.wantFlush)
			}
			if got := opts.Precision(); got != time.Millisecond {
				t.Errorf("Precision() = %v, want 1ms", got)
			}
		})
	}
}

func TestForwardErrorsWrapsWriteFailed(t *testing.T) {
	c := &Client{}
	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	errs := make(chan error, 1)
	errs <- errors.New("bucket not found")
	close(errs)
	c.forwardErrors(errs)

	err := <-got
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("error = %v, want ErrWriteFailed", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unopened client = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
