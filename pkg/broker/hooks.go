package broker

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// Stats is a snapshot of broker traffic.
type Stats struct {
	Running       bool             `json:"running"`
	Port          int              `json:"port"`
	Uptime        time.Duration    `json:"uptime"`
	Connects      int64            `json:"connects"`
	Disconnects   int64            `json:"disconnects"`
	Subscriptions int64            `json:"subscriptions"`
	Publishes     int64            `json:"publishes"`
	ByTopic       map[string]int64 `json:"byTopic,omitempty"`
	ByFilter      map[string]int64 `json:"byFilter,omitempty"`
}

// TrafficHook counts client traffic and fans publishes out to the
// broker's in-process subscribers.
type TrafficHook struct {
	mqtt.HookBase
	broker *Broker

	connects      atomic.Int64
	disconnects   atomic.Int64
	subscriptions atomic.Int64
	publishes     atomic.Int64

	mu       sync.Mutex
	byTopic  map[string]int64
	byFilter map[string]int64
}

// NewTrafficHook creates a traffic hook bound to broker.
func NewTrafficHook(broker *Broker) *TrafficHook {
	return &TrafficHook{
		broker:   broker,
		byTopic:  make(map[string]int64),
		byFilter: make(map[string]int64),
	}
}

// ID returns the hook identifier.
func (h *TrafficHook) ID() string {
	return "traffic-hook"
}

// Provides indicates which hook methods this hook provides.
func (h *TrafficHook) Provides(b byte) bool {
	//nolint:gocritic // argument order is intentional
	return bytes.Contains([]byte{
		mqtt.OnConnect,
		mqtt.OnDisconnect,
		mqtt.OnPublish,
		mqtt.OnSubscribed,
	}, []byte{b})
}

// OnConnect counts accepted network clients.
func (h *TrafficHook) OnConnect(cl *mqtt.Client, pk packets.Packet) error {
	h.connects.Add(1)
	h.broker.log.Debug("client connected", "clientId", cl.ID, "remote", cl.Net.Remote)
	return nil
}

// OnDisconnect counts client disconnections.
func (h *TrafficHook) OnDisconnect(cl *mqtt.Client, err error, expire bool) {
	h.disconnects.Add(1)
	if err != nil {
		h.broker.log.Debug("client disconnected", "clientId", cl.ID, "error", err)
	}
}

// OnPublish counts publishes per topic and notifies in-process subscribers.
func (h *TrafficHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if cl.Net.Inline {
		return pk, nil
	}

	h.publishes.Add(1)
	h.mu.Lock()
	h.byTopic[pk.TopicName]++
	h.mu.Unlock()

	h.broker.log.Debug("publish", "clientId", cl.ID, "topic", pk.TopicName, "bytes", len(pk.Payload))
	h.broker.notifySubscribers(pk.TopicName, pk.Payload)

	return pk, nil
}

// OnSubscribed counts granted subscriptions per filter.
func (h *TrafficHook) OnSubscribed(cl *mqtt.Client, pk packets.Packet, reasonCodes []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range pk.Filters {
		if i < len(reasonCodes) && reasonCodes[i] >= packets.ErrUnspecifiedError.Code {
			continue
		}
		h.subscriptions.Add(1)
		h.byFilter[sub.Filter]++
	}
}

func (h *TrafficHook) snapshot() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := Stats{
		Connects:      h.connects.Load(),
		Disconnects:   h.disconnects.Load(),
		Subscriptions: h.subscriptions.Load(),
		Publishes:     h.publishes.Load(),
		ByTopic:       make(map[string]int64, len(h.byTopic)),
		ByFilter:      make(map[string]int64, len(h.byFilter)),
	}
	for k, v := range h.byTopic {
		stats.ByTopic[k] = v
	}
	for k, v := range h.byFilter {
		stats.ByFilter[k] = v
	}
	return stats
}

// MatchTopic checks if a topic filter matches a topic name.
// Supports MQTT wildcards: + (single level) and # (multi-level).
func MatchTopic(filter, topic string) bool {
	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}

		if i >= len(topicParts) {
			return false
		}

		if part == "+" {
			continue
		}

		if part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}
