package network

import (
	"context"

	"gridvoice/server/logging"
)

const (
	// EventChannelOpened is emitted when the control channel to the voice
	// backend finishes its websocket handshake.
	EventChannelOpened logging.EventType = "network.channel_opened"
	// EventChannelLost is emitted when the control channel drops and a
	// reconnect is scheduled.
	EventChannelLost logging.EventType = "network.channel_lost"
	// EventHeartbeatStale is emitted when the heartbeat monitor forces a
	// channel restart.
	EventHeartbeatStale logging.EventType = "network.heartbeat_stale"
	// EventSendDropped is emitted when an outbound control message is
	// discarded because the channel is not open.
	EventSendDropped logging.EventType = "network.send_dropped"
	// EventProtocolFault is emitted when an inbound backend message cannot
	// be parsed.
	EventProtocolFault logging.EventType = "network.protocol_fault"
)

// ChannelPayload captures control channel lifecycle details.
type ChannelPayload struct {
	URL      string `json:"url"`
	Attempt  int    `json:"attempt,omitempty"`
	Reason   string `json:"reason,omitempty"`
	SilentMS int64  `json:"silentMs,omitempty"`
}

// ChannelOpened publishes an info event after a successful handshake.
func ChannelOpened(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ChannelPayload) {
	publish(ctx, pub, EventChannelOpened, logging.SeverityInfo, actor, payload)
}

// ChannelLost publishes a warning event when the channel drops.
func ChannelLost(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ChannelPayload) {
	publish(ctx, pub, EventChannelLost, logging.SeverityWarn, actor, payload)
}

// HeartbeatStale publishes a warning event when a restart is forced.
func HeartbeatStale(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ChannelPayload) {
	publish(ctx, pub, EventHeartbeatStale, logging.SeverityWarn, actor, payload)
}

// SendDropped publishes a debug event for a discarded outbound message.
func SendDropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ChannelPayload) {
	publish(ctx, pub, EventSendDropped, logging.SeverityDebug, actor, payload)
}

// ProtocolFault publishes a warning event for an unparseable inbound message.
func ProtocolFault(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ChannelPayload) {
	publish(ctx, pub, EventProtocolFault, logging.SeverityWarn, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
