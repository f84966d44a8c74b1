package lifecycle

import (
	"context"

	"gridvoice/server/logging"
)

const (
	// EventParticipantJoined is emitted when a participant's voice identity
	// is registered with the backend.
	EventParticipantJoined logging.EventType = "lifecycle.participant_joined"
	// EventParticipantRemoved is emitted when a participant is torn down,
	// voluntarily or by escalation.
	EventParticipantRemoved logging.EventType = "lifecycle.participant_removed"
	// EventPluginInactive is emitted when the backend plugin has been
	// unreachable past the escalation threshold.
	EventPluginInactive logging.EventType = "lifecycle.plugin_inactive"
)

// ParticipantPayload captures participant lifecycle details.
type ParticipantPayload struct {
	ClientID int    `json:"clientId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ParticipantJoined publishes an info event for a completed voice join.
func ParticipantJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ParticipantPayload) {
	publish(ctx, pub, EventParticipantJoined, logging.SeverityInfo, actor, payload)
}

// ParticipantRemoved publishes an info event for a participant teardown.
func ParticipantRemoved(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ParticipantPayload) {
	publish(ctx, pub, EventParticipantRemoved, logging.SeverityInfo, actor, payload)
}

// PluginInactive publishes a warning event for the escalation threshold.
func PluginInactive(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ParticipantPayload) {
	publish(ctx, pub, EventPluginInactive, logging.SeverityWarn, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
