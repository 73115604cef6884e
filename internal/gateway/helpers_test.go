package gateway

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-telegrams/internal/store"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// ESP3 frames of an Eltako A5-06-01 light sensor at 0180AB12: a 4BS
// teach-in announcing the profile, then a data telegram reading 50 lx.
const (
	esp3TeachIn = "55000A0701EBA518080D800180AB120001FFFFFFFF2D00FE"
	esp3Eltako  = "55000A0701EBA5006400080180AB120001FFFFFFFF2D00EE"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex %q: %v", s, err)
	}
	return b
}

// writeReplay writes frames to a capture file and returns its file:// URL.
func writeReplay(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.bin")
	var data []byte
	for _, f := range frames {
		data = append(data, f...)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write replay: %v", err)
	}
	return "file://" + path
}

type publishedMessage struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// fakeMQTT records publishes and subscriptions.
type fakeMQTT struct {
	mu         sync.Mutex
	connected  bool
	failWith   error
	messages   []publishedMessage
	handlers   map[string]mqtt.MessageHandler
	unsubCalls []string
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.messages = append(f.messages, publishedMessage{topic, append([]byte(nil), payload...), qos, retained})
	return nil
}

func (f *fakeMQTT) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubCalls = append(f.unsubCalls, topic)
	delete(f.handlers, topic)
	return nil
}

// published returns the messages whose topic starts with prefix.
func (f *fakeMQTT) published(prefix string) []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedMessage
	for _, m := range f.messages {
		if strings.HasPrefix(m.Topic, prefix) {
			out = append(out, m)
		}
	}
	return out
}

// fakePoints records InfluxDB writes.
type fakePoints struct {
	mu     sync.Mutex
	points []influxdb.ChannelPoint
	stats  map[string]map[string]uint64
}

func (f *fakePoints) WriteChannelValue(p influxdb.ChannelPoint) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakePoints) WriteGatewayStats(_, transport string, counters map[string]uint64) {
	f.mu.Lock()
	if f.stats == nil {
		f.stats = make(map[string]map[string]uint64)
	}
	f.stats[transport] = counters
	f.mu.Unlock()
}

// memJournal is an in-memory store.JournalRepository.
type memJournal struct {
	mu      sync.Mutex
	entries []store.JournalEntry
	pruned  int
}

func (m *memJournal) Insert(_ context.Context, entries []store.JournalEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, entries...)
	m.mu.Unlock()
	return nil
}

func (m *memJournal) Recent(_ context.Context, _ store.JournalFilter) ([]store.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.JournalEntry(nil), m.entries...), nil
}

func (m *memJournal) Prune(context.Context, time.Duration) (int64, error) {
	m.mu.Lock()
	m.pruned++
	m.mu.Unlock()
	return 0, nil
}

func (m *memJournal) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// memState is an in-memory store.StateRepository.
type memState struct {
	mu     sync.Mutex
	states map[string]store.ChannelState
}

func (m *memState) Upsert(_ context.Context, states []store.ChannelState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[string]store.ChannelState)
	}
	for _, s := range states {
		m.states[s.DeviceID+"/"+s.Channel] = s
	}
	return nil
}

func (m *memState) LoadAll(context.Context) ([]store.ChannelState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ChannelState, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s)
	}
	return out, nil
}

func (m *memState) get(deviceID, channel string) (store.ChannelState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[deviceID+"/"+channel]
	return s, ok
}

// result builds a dispatch result carrying values for listener tests.
func result(family string, values ...telegram.ChannelValue) telegram.Result {
	return telegram.Result{
		Telegram: telegram.NewRawTelegram(family, "test", []byte{0x01}),
		Family:   family,
		State:    telegram.StateOK,
		Values:   values,
	}
}

func storeFilter() store.JournalFilter {
	return store.JournalFilter{Limit: 100}
}
