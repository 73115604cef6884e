package mqtt

import "fmt"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "telegramd"

// Topics builds the gateway's MQTT topics under a common prefix.
//
// Hierarchy:
//
//	{prefix}/state/{family}/{device}/{channel}   decoded channel values (retained)
//	{prefix}/health/{gateway}                    periodic gateway health (retained)
//	{prefix}/discovery/{family}                  teach-in announcements
//	{prefix}/config/{family}                     learn mode control (inbound)
//	{prefix}/status/{client}                     online/offline and LWT (retained)
type Topics struct {
	Prefix string
}

// NewTopics returns topic builders for prefix, falling back to
// DefaultTopicPrefix when it is empty.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// State returns the topic for one decoded device channel.
//
// Example: telegramd/state/enocean/window-kitchen/contact
func (t Topics) State(family, deviceID, channel string) string {
	return fmt.Sprintf("%s/state/%s/%s/%s", t.Prefix, family, deviceID, channel)
}

// Health returns the health topic of a gateway instance.
func (t Topics) Health(gatewayID string) string {
	return fmt.Sprintf("%s/health/%s", t.Prefix, gatewayID)
}

// Discovery returns the teach-in announcement topic of a family.
func (t Topics) Discovery(family string) string {
	return fmt.Sprintf("%s/discovery/%s", t.Prefix, family)
}

// Config returns the inbound configuration topic of a family.
func (t Topics) Config(family string) string {
	return fmt.Sprintf("%s/config/%s", t.Prefix, family)
}

// Status returns the connection status topic of an MQTT client.
func (t Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", t.Prefix, clientID)
}

// ─── Wildcard subscriptions ───────────────────────────────────────

// AllStates matches every state topic.
func (t Topics) AllStates() string {
	return t.Prefix + "/state/#"
}

// AllConfigs matches the configuration topic of every family.
func (t Topics) AllConfigs() string {
	return t.Prefix + "/config/+"
}

// AllDiscovery matches the discovery topic of every family.
func (t Topics) AllDiscovery() string {
	return t.Prefix + "/discovery/+"
}
