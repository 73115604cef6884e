package gateway

import (
	"encoding/json"
	"sync"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// Publisher is the subset of the MQTT client used to publish messages.
type Publisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// stateCache tracks the last published value per device channel so
// repeated telegrams carrying the same value do not republish.
type stateCache struct {
	mu     sync.Mutex
	values map[string]telegram.Value
}

func newStateCache() *stateCache {
	return &stateCache{values: make(map[string]telegram.Value)}
}

func cacheKey(deviceID, channel string) string {
	return deviceID + "/" + channel
}

// unchanged reports whether v equals the last published value.
func (c *stateCache) unchanged(deviceID, channel string, v telegram.Value) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.values[cacheKey(deviceID, channel)]
	return ok && last.Equal(v)
}

func (c *stateCache) store(deviceID, channel string, v telegram.Value) {
	c.mu.Lock()
	c.values[cacheKey(deviceID, channel)] = v
	c.mu.Unlock()
}

// StatePublisher publishes decoded channel values as retained MQTT state
// messages.
type StatePublisher struct {
	publisher Publisher
	topics    mqtt.Topics
	qos       byte
	cache     *stateCache
	logger    Logger
}

var _ telegram.Listener = (*StatePublisher)(nil)

// NewStatePublisher creates a state publisher. logger may be nil.
func NewStatePublisher(publisher Publisher, topics mqtt.Topics, qos byte, logger Logger) *StatePublisher {
	return &StatePublisher{
		publisher: publisher,
		topics:    topics,
		qos:       qos,
		cache:     newStateCache(),
		logger:    orNop(logger),
	}
}

// OnTelegram publishes every defined value that differs from the last one
// published for its channel.
func (p *StatePublisher) OnTelegram(res telegram.Result) {
	for _, cv := range res.Values {
		if !cv.Value.Defined() || p.cache.unchanged(cv.DeviceID, cv.Channel, cv.Value) {
			continue
		}

		payload, err := json.Marshal(NewStateMessage(res, cv))
		if err != nil {
			p.logger.Error("failed to marshal state message", "device_id", cv.DeviceID, "channel", cv.Channel, "error", err)
			continue
		}

		topic := p.topics.State(res.Family, cv.DeviceID, cv.Channel)
		if err := p.publisher.Publish(topic, payload, p.qos, true); err != nil {
			p.logger.Warn("failed to publish state", "topic", topic, "error", err)
			continue
		}
		p.cache.store(cv.DeviceID, cv.Channel, cv.Value)
	}
}
