package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/influxdb"
)

// fakeServer answers the v2 ping and write endpoints and records every
// line protocol body it accepts.
type fakeServer struct {
	*httptest.Server

	mu        sync.Mutex
	healthy   bool
	rejecting bool
	queries   []string
	lines     []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{healthy: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.rejecting {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"invalid","message":"unable to parse points"}`) //nolint:errcheck // test server
			return
		}
		f.queries = append(f.queries, r.URL.RawQuery)
		f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
		w.WriteHeader(http.StatusNoContent)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) set(fn func(*fakeServer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeServer) written() (lines, queries []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...), append([]string(nil), f.queries...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "telegramd-test-token",
		Org:           "telegramd",
		Bucket:        "telegrams",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func connect(t *testing.T, f *fakeServer) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(testConfig(f.URL))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // test cleanup
	return client
}

func TestConnect(t *testing.T) {
	f := newFakeServer(t)

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig(f.URL)
		cfg.Enabled = false
		_, err := influxdb.Connect(cfg)
		assert.ErrorIs(t, err, influxdb.ErrDisabled)
	})

	t.Run("nothing listening", func(t *testing.T) {
		_, err := influxdb.Connect(testConfig("http://127.0.0.1:1"))
		assert.ErrorIs(t, err, influxdb.ErrConnectionFailed)
	})

	t.Run("healthy", func(t *testing.T) {
		client := connect(t, f)
		assert.True(t, client.IsConnected())
	})

	t.Run("unhealthy", func(t *testing.T) {
		f.set(func(f *fakeServer) { f.healthy = false })
		defer f.set(func(f *fakeServer) { f.healthy = true })

		_, err := influxdb.Connect(testConfig(f.URL))
		assert.ErrorIs(t, err, influxdb.ErrConnectionFailed)
	})
}

func TestHealthCheck(t *testing.T) {
	f := newFakeServer(t)
	client := connect(t, f)
	ctx := context.Background()

	require.NoError(t, client.HealthCheck(ctx))

	f.set(func(f *fakeServer) { f.healthy = false })
	assert.Error(t, client.HealthCheck(ctx))

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.HealthCheck(ctx), influxdb.ErrNotConnected)
}

func TestWriteChannelValue(t *testing.T) {
	f := newFakeServer(t)
	client := connect(t, f)

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	client.WriteChannelValue(influxdb.ChannelPoint{
		DeviceID: "meter",
		Channel:  "actualDelivery",
		Family:   "dsmr",
		Unit:     "kW",
		Value:    1.193,
		Time:     at,
	})
	client.WriteGatewayStats("telegramd-test", "p1", map[string]uint64{"ok": 3})
	client.Flush()

	require.Eventually(t, func() bool {
		lines, _ := f.written()
		return len(lines) == 2
	}, 5*time.Second, 20*time.Millisecond)

	lines, queries := f.written()
	assert.Equal(t,
		"channel_values,channel=actualDelivery,device=meter,family=dsmr,unit=kW value=1.193 1772357400000",
		lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "gateway_stats,gateway=telegramd-test,transport=p1 ok=3u "), lines[1])
	require.NotEmpty(t, queries)
	assert.Contains(t, queries[0], "bucket=telegrams")
	assert.Contains(t, queries[0], "precision=ms")
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	f := newFakeServer(t)
	client := connect(t, f)

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())

	client.WriteChannelValue(influxdb.ChannelPoint{DeviceID: "meter", Channel: "x", Value: 1})
	client.Flush()

	lines, _ := f.written()
	assert.Empty(t, lines)
}

func TestWriteFailureReachesOnError(t *testing.T) {
	f := newFakeServer(t)
	client := connect(t, f)
	f.set(func(f *fakeServer) { f.rejecting = true })

	errs := make(chan error, 4)
	client.SetOnError(func(err error) { errs <- err })

	client.WriteChannelValue(influxdb.ChannelPoint{DeviceID: "meter", Channel: "x", Family: "dsmr", Value: 1})
	client.Flush()

	select {
	case err := <-errs:
		assert.True(t, errors.Is(err, influxdb.ErrWriteFailed), "error = %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("write failure not reported")
	}
}
