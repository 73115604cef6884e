package mqtt

import (
	"encoding/json"
	"time"
)

// Values of StatusMessage.Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Values of StatusMessage.Reason for offline messages.
const (
	// ReasonShutdown is published by Close.
	ReasonShutdown = "graceful_shutdown"

	// ReasonConnectionLost is the Last Will, published by the broker when
	// the gateway disappears without closing.
	ReasonConnectionLost = "unexpected_disconnect"
)

// StatusMessage is the retained payload on {prefix}/status/{client_id}.
//
// The Last Will carries no timestamp: it is registered at connect time and
// published by the broker much later.
type StatusMessage struct {
	Status    string     `json:"status"`
	ClientID  string     `json:"client_id"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func statusPayload(msg StatusMessage) []byte {
	b, _ := json.Marshal(msg) //nolint:errcheck // plain struct, cannot fail
	return b
}

func onlineStatus(clientID string, now time.Time) []byte {
	now = now.UTC()
	return statusPayload(StatusMessage{Status: StatusOnline, ClientID: clientID, Timestamp: &now})
}

func offlineStatus(clientID string, now time.Time) []byte {
	now = now.UTC()
	return statusPayload(StatusMessage{Status: StatusOffline, ClientID: clientID, Reason: ReasonShutdown, Timestamp: &now})
}

func lastWill(clientID string) []byte {
	return statusPayload(StatusMessage{Status: StatusOffline, ClientID: clientID, Reason: ReasonConnectionLost})
}
